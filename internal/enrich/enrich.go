// Package enrich decorates posts and comments with resolved author
// summaries. Resolution is concurrent but the output slice always matches
// the input slice in length and order, and a failed lookup degrades that
// one entry to the unknown-author placeholder instead of failing the batch.
package enrich

import (
	"context"
	"log/slog"
	"sync"

	"bayou-board/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// UnknownUsername is the placeholder shown when an author cannot be
// resolved (deleted account, store hiccup).
const UnknownUsername = "[unknown]"

// DefaultConcurrency bounds parallel author lookups per batch.
const DefaultConcurrency = 8

// AuthorResolver is the slice of the store the enricher needs.
type AuthorResolver interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Author is the public summary attached to enriched records.
type Author struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Karma     int       `json:"karma"`
	Unknown   bool      `json:"unknown,omitempty"`
}

type EnrichedPost struct {
	*models.Post
	Author *Author `json:"author"`
}

type EnrichedComment struct {
	*models.Comment
	Author *Author `json:"author"`
}

// Enricher resolves authors with bounded concurrency and a per-batch cache,
// so a page of comments by one prolific author costs one lookup.
type Enricher struct {
	resolver    AuthorResolver
	concurrency int
}

func NewEnricher(resolver AuthorResolver, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Enricher{resolver: resolver, concurrency: concurrency}
}

// resolveAuthors fetches each distinct author once. Every requested ID gets
// an entry in the result; lookups that fail map to the unknown placeholder.
func (e *Enricher) resolveAuthors(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]*Author {
	distinct := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}

	authors := make(map[uuid.UUID]*Author, len(distinct))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, id := range distinct {
		id := id
		g.Go(func() error {
			author := e.lookup(gctx, id)
			mu.Lock()
			authors[id] = author
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()

	return authors
}

func (e *Enricher) lookup(ctx context.Context, id uuid.UUID) *Author {
	user, err := e.resolver.GetUser(ctx, id)
	if err != nil {
		slog.Debug("author lookup failed, using placeholder", "author", id, "error", err)
		return &Author{ID: id, Username: UnknownUsername, Unknown: true}
	}
	return &Author{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		Karma:     user.Karma,
	}
}

// Posts returns the input posts decorated with author summaries, in input
// order.
func (e *Enricher) Posts(ctx context.Context, posts []*models.Post) []*EnrichedPost {
	ids := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		ids[i] = p.AuthorID
	}
	authors := e.resolveAuthors(ctx, ids)

	out := make([]*EnrichedPost, len(posts))
	for i, p := range posts {
		out[i] = &EnrichedPost{Post: p, Author: authors[p.AuthorID]}
	}
	return out
}

// Comments returns the input comments decorated with author summaries, in
// input order.
func (e *Enricher) Comments(ctx context.Context, comments []*models.Comment) []*EnrichedComment {
	ids := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		ids[i] = c.AuthorID
	}
	authors := e.resolveAuthors(ctx, ids)

	out := make([]*EnrichedComment, len(comments))
	for i, c := range comments {
		out[i] = &EnrichedComment{Comment: c, Author: authors[c.AuthorID]}
	}
	return out
}
