package enrich

import (
	"context"
	"sync/atomic"
	"testing"

	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingResolver serves a fixed user set and counts lookups.
type countingResolver struct {
	users   map[uuid.UUID]*models.User
	lookups atomic.Int64
}

func (r *countingResolver) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.lookups.Add(1)
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, utils.NewAppError(utils.ErrNotFound, "user not found", nil)
}

func TestEnrichCommentsPreservesOrder(t *testing.T) {
	alice := &models.User{ID: uuid.New(), Username: "alice", Karma: 10}
	bob := &models.User{ID: uuid.New(), Username: "bob", Karma: 3}
	resolver := &countingResolver{users: map[uuid.UUID]*models.User{alice.ID: alice, bob.ID: bob}}

	comments := []*models.Comment{
		{ID: uuid.New(), Content: "first", AuthorID: alice.ID},
		{ID: uuid.New(), Content: "second", AuthorID: bob.ID},
		{ID: uuid.New(), Content: "third", AuthorID: alice.ID},
	}

	enriched := NewEnricher(resolver, 4).Comments(context.Background(), comments)

	require.Len(t, enriched, 3)
	for i, e := range enriched {
		assert.Equal(t, comments[i].ID, e.Comment.ID, "output order must match input order")
	}
	assert.Equal(t, "alice", enriched[0].Author.Username)
	assert.Equal(t, "bob", enriched[1].Author.Username)
	assert.Equal(t, "alice", enriched[2].Author.Username)
	assert.Equal(t, 10, enriched[0].Author.Karma)
}

func TestEnrichDeduplicatesLookups(t *testing.T) {
	author := &models.User{ID: uuid.New(), Username: "prolific"}
	resolver := &countingResolver{users: map[uuid.UUID]*models.User{author.ID: author}}

	comments := make([]*models.Comment, 20)
	for i := range comments {
		comments[i] = &models.Comment{ID: uuid.New(), AuthorID: author.ID}
	}

	enriched := NewEnricher(resolver, 4).Comments(context.Background(), comments)

	require.Len(t, enriched, 20)
	assert.Equal(t, int64(1), resolver.lookups.Load(), "one author means one lookup")
}

func TestEnrichUnknownAuthorDoesNotFailBatch(t *testing.T) {
	known := &models.User{ID: uuid.New(), Username: "known"}
	resolver := &countingResolver{users: map[uuid.UUID]*models.User{known.ID: known}}

	ghost := uuid.New()
	comments := []*models.Comment{
		{ID: uuid.New(), AuthorID: known.ID},
		{ID: uuid.New(), AuthorID: ghost},
	}

	enriched := NewEnricher(resolver, 4).Comments(context.Background(), comments)

	require.Len(t, enriched, 2)
	assert.Equal(t, "known", enriched[0].Author.Username)
	assert.False(t, enriched[0].Author.Unknown)

	assert.Equal(t, UnknownUsername, enriched[1].Author.Username)
	assert.True(t, enriched[1].Author.Unknown)
	assert.Equal(t, ghost, enriched[1].Author.ID)
}

func TestEnrichPosts(t *testing.T) {
	author := &models.User{ID: uuid.New(), Username: "poster", AvatarURL: "https://cdn.example.com/a.png"}
	resolver := &countingResolver{users: map[uuid.UUID]*models.User{author.ID: author}}

	posts := []*models.Post{
		{ID: uuid.New(), Title: "one", AuthorID: author.ID},
		{ID: uuid.New(), Title: "two", AuthorID: uuid.New()},
	}

	enriched := NewEnricher(resolver, 0).Posts(context.Background(), posts)

	require.Len(t, enriched, 2)
	assert.Equal(t, "poster", enriched[0].Author.Username)
	assert.Equal(t, "https://cdn.example.com/a.png", enriched[0].Author.AvatarURL)
	assert.True(t, enriched[1].Author.Unknown)
}

func TestEnrichEmptyBatch(t *testing.T) {
	resolver := &countingResolver{users: map[uuid.UUID]*models.User{}}

	enriched := NewEnricher(resolver, 4).Comments(context.Background(), nil)
	assert.Empty(t, enriched)
	assert.Equal(t, int64(0), resolver.lookups.Load())
}
