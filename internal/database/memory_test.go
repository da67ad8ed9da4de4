package database

import (
	"context"
	"sync"
	"testing"

	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPost(t *testing.T, db *MemoryDB, authorID uuid.UUID) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:          uuid.New(),
		Title:       "Test post",
		Content:     "Test content",
		AuthorID:    authorID,
		SubredditID: uuid.New(),
	}
	require.NoError(t, db.SavePost(context.Background(), post))
	return post
}

func seedUser(t *testing.T, db *MemoryDB, name string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Username: name,
		Email:    name + "@example.com",
	}
	require.NoError(t, db.SaveUser(context.Background(), user))
	return user
}

func TestCastVoteToggleSequence(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	post := seedPost(t, db, author.ID)

	// First vote creates the record
	counts, err := db.CastVote(ctx, alice.ID, post.ID, models.PostTarget, models.Upvote)
	assert.NoError(t, err)
	assert.Equal(t, 1, counts.Upvotes)
	assert.Equal(t, 0, counts.Downvotes)

	// Same stance again retracts it
	counts, err = db.CastVote(ctx, alice.ID, post.ID, models.PostTarget, models.Upvote)
	assert.NoError(t, err)
	assert.Equal(t, 0, counts.Upvotes)
	assert.Equal(t, 0, counts.Downvotes)

	// Opposite stance after retraction is a fresh vote
	counts, err = db.CastVote(ctx, alice.ID, post.ID, models.PostTarget, models.Downvote)
	assert.NoError(t, err)
	assert.Equal(t, 0, counts.Upvotes)
	assert.Equal(t, 1, counts.Downvotes)

	// A second voter is independent
	counts, err = db.CastVote(ctx, bob.ID, post.ID, models.PostTarget, models.Upvote)
	assert.NoError(t, err)
	assert.Equal(t, 1, counts.Upvotes)
	assert.Equal(t, 1, counts.Downvotes)
}

func TestCastVoteFlip(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	voter := seedUser(t, db, "voter")
	post := seedPost(t, db, author.ID)

	_, err := db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Upvote)
	require.NoError(t, err)

	// Opposite stance flips in place: one record, both counters move
	counts, err := db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Downvote)
	assert.NoError(t, err)
	assert.Equal(t, 0, counts.Upvotes)
	assert.Equal(t, 1, counts.Downvotes)

	vote, err := db.GetUserVote(ctx, voter.ID, post.ID, models.PostTarget)
	assert.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, models.Downvote, vote.Stance)

	// Flip back
	counts, err = db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Upvote)
	assert.NoError(t, err)
	assert.Equal(t, 1, counts.Upvotes)
	assert.Equal(t, 0, counts.Downvotes)
}

func TestCastVoteMissingTarget(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	voter := seedUser(t, db, "voter")

	_, err := db.CastVote(ctx, voter.ID, uuid.New(), models.PostTarget, models.Upvote)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	// A failed cast must not leave a ledger record behind
	vote, err := db.GetUserVote(ctx, voter.ID, uuid.New(), models.PostTarget)
	assert.NoError(t, err)
	assert.Nil(t, vote)
}

func TestCastVoteConcurrentVoters(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	post := seedPost(t, db, author.ID)

	const voters = 50
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.CastVote(ctx, uuid.New(), post.ID, models.PostTarget, models.Upvote)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// No lost updates: every voter's increment lands
	got, err := db.GetPost(ctx, post.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, voters, got.Upvotes)
	assert.Equal(t, 0, got.Downvotes)
}

func TestCastVoteConcurrentToggle(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	voter := seedUser(t, db, "voter")
	post := seedPost(t, db, author.ID)

	// An even number of same-stance casts from one voter must net to zero
	const casts = 20
	var wg sync.WaitGroup
	for i := 0; i < casts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Upvote)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := db.GetPost(ctx, post.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)

	vote, err := db.GetUserVote(ctx, voter.ID, post.ID, models.PostTarget)
	assert.NoError(t, err)
	assert.Nil(t, vote)
}

func TestCastVoteConcurrentDoubleSubmitFlip(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	voter := seedUser(t, db, "voter")
	post := seedPost(t, db, author.ID)

	_, err := db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Upvote)
	require.NoError(t, err)

	// Two simultaneous opposite-stance casts from the holder of an upvote
	// must serialize as flip then retract: one live branch each, never a
	// double-applied delta leaving downvotes at 2.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Downvote)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := db.GetPost(ctx, post.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)
	assert.Equal(t, 0, got.Downvotes)

	vote, err := db.GetUserVote(ctx, voter.ID, post.ID, models.PostTarget)
	assert.NoError(t, err)
	assert.Nil(t, vote)
}

func TestCastVoteOnComment(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	voter := seedUser(t, db, "voter")
	post := seedPost(t, db, author.ID)

	comment := &models.Comment{
		ID:       uuid.New(),
		Content:  "Test comment",
		AuthorID: author.ID,
		PostID:   post.ID,
	}
	require.NoError(t, db.CreateComment(ctx, comment))

	counts, err := db.CastVote(ctx, voter.ID, comment.ID, models.CommentTarget, models.Downvote)
	assert.NoError(t, err)
	assert.Equal(t, 1, counts.Downvotes)

	// Post and comment ledgers are distinct even for the same IDs
	vote, err := db.GetUserVote(ctx, voter.ID, comment.ID, models.PostTarget)
	assert.NoError(t, err)
	assert.Nil(t, vote)
}

func TestCastVoteUpdatesAuthorKarma(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	voter := seedUser(t, db, "voter")
	post := seedPost(t, db, author.ID)

	_, err := db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Upvote)
	require.NoError(t, err)

	got, err := db.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Karma)

	// Flip moves author karma by two
	_, err = db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Downvote)
	require.NoError(t, err)

	got, err = db.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, got.Karma)
}

func TestCreateCommentCounters(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	post := seedPost(t, db, author.ID)

	top := &models.Comment{ID: uuid.New(), Content: "C1", AuthorID: author.ID, PostID: post.ID}
	require.NoError(t, db.CreateComment(ctx, top))

	reply := &models.Comment{ID: uuid.New(), Content: "C2", AuthorID: author.ID, PostID: post.ID, ParentID: &top.ID}
	require.NoError(t, db.CreateComment(ctx, reply))

	// The reply bumps its parent's reply count, not the post's comment count
	gotPost, err := db.GetPost(ctx, post.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 1, gotPost.CommentCount)

	gotTop, err := db.GetComment(ctx, top.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotTop.ReplyCount)

	gotReply, err := db.GetComment(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotReply.ReplyCount)
	require.NotNil(t, gotReply.ParentID)
	assert.Equal(t, top.ID, *gotReply.ParentID)
}

func TestCreateCommentCrossPostParent(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	postA := seedPost(t, db, author.ID)
	postB := seedPost(t, db, author.ID)

	parent := &models.Comment{ID: uuid.New(), Content: "on A", AuthorID: author.ID, PostID: postA.ID}
	require.NoError(t, db.CreateComment(ctx, parent))

	bad := &models.Comment{ID: uuid.New(), Content: "on B", AuthorID: author.ID, PostID: postB.ID, ParentID: &parent.ID}
	err := db.CreateComment(ctx, bad)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	// The rejected reply must not have bumped anything
	gotParent, err := db.GetComment(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotParent.ReplyCount)
}

func TestCreateCommentMissingParent(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	post := seedPost(t, db, author.ID)

	missing := uuid.New()
	orphan := &models.Comment{ID: uuid.New(), Content: "orphan", AuthorID: author.ID, PostID: post.ID, ParentID: &missing}
	err := db.CreateComment(ctx, orphan)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestListTopLevelComments(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	post := seedPost(t, db, author.ID)

	var first *models.Comment
	for i := 0; i < 3; i++ {
		c := &models.Comment{ID: uuid.New(), Content: "top", AuthorID: author.ID, PostID: post.ID}
		require.NoError(t, db.CreateComment(ctx, c))
		if first == nil {
			first = c
		}
	}
	// Replies never appear in the top-level listing
	reply := &models.Comment{ID: uuid.New(), Content: "reply", AuthorID: author.ID, PostID: post.ID, ParentID: &first.ID}
	require.NoError(t, db.CreateComment(ctx, reply))

	page, err := db.ListTopLevelComments(ctx, post.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Comments, 3)
	for _, c := range page.Comments {
		assert.Nil(t, c.ParentID)
	}

	// Pagination caps the page but reports the full total
	page, err = db.ListTopLevelComments(ctx, post.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Comments, 2)

	page, err = db.ListTopLevelComments(ctx, post.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 1)
}

func TestListReplies(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	post := seedPost(t, db, author.ID)

	parent := &models.Comment{ID: uuid.New(), Content: "parent", AuthorID: author.ID, PostID: post.ID}
	require.NoError(t, db.CreateComment(ctx, parent))

	for i := 0; i < 2; i++ {
		r := &models.Comment{ID: uuid.New(), Content: "reply", AuthorID: author.ID, PostID: post.ID, ParentID: &parent.ID}
		require.NoError(t, db.CreateComment(ctx, r))
	}

	// limit <= 0 returns all replies
	page, err := db.ListReplies(ctx, parent.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Comments, 2)

	// Listing replies of a leaf is empty, not an error
	leaf := page.Comments[0]
	page, err = db.ListReplies(ctx, leaf.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Comments)
}

func TestGetPostAttachesCurrentUserVote(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	author := seedUser(t, db, "author")
	voter := seedUser(t, db, "voter")
	post := seedPost(t, db, author.ID)

	_, err := db.CastVote(ctx, voter.ID, post.ID, models.PostTarget, models.Upvote)
	require.NoError(t, err)

	got, err := db.GetPost(ctx, post.ID, voter.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentUserVote)
	assert.Equal(t, models.Upvote, *got.CurrentUserVote)

	// Anonymous reads carry no stance
	got, err = db.GetPost(ctx, post.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, got.CurrentUserVote)
}
