package actors

import (
	stdctx "context"
	"strings"
	"testing"
	"time"

	"bayou-board/internal/database"
	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnCommentActor(t *testing.T, db database.DBAdapter) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	metrics := utils.NewMetricsCollector()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewCommentActor(db, metrics, nil)
	})
	return system, system.Root.Spawn(props)
}

func TestCommentActor(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnCommentActor(t, db)

	authorID := uuid.New()
	post := &models.Post{ID: uuid.New(), Title: "Test post", AuthorID: authorID, SubredditID: uuid.New()}
	require.NoError(t, db.SavePost(stdctx.Background(), post))

	// Test creating a comment
	createMsg := &CreateCommentMsg{
		Content:  "Test comment",
		AuthorID: authorID,
		PostID:   post.ID,
	}

	future := system.Root.RequestFuture(pid, createMsg, 5*time.Second)
	result, err := future.Result()
	assert.NoError(t, err)

	comment, ok := result.(*models.Comment)
	require.True(t, ok, "expected *models.Comment, got %T", result)
	assert.Equal(t, "Test comment", comment.Content)
	assert.Equal(t, authorID, comment.AuthorID)
	assert.Nil(t, comment.ParentID)

	// Test nested comments
	replyMsg := &CreateCommentMsg{
		Content:  "Reply comment",
		AuthorID: authorID,
		PostID:   post.ID,
		ParentID: &comment.ID,
	}

	future = system.Root.RequestFuture(pid, replyMsg, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	reply := result.(*models.Comment)
	assert.Equal(t, comment.ID, *reply.ParentID)

	// Only the top-level comment appears in the post listing
	future = system.Root.RequestFuture(pid, &ListPostCommentsMsg{PostID: post.ID, Limit: 10}, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	page := result.(*models.CommentPage)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, comment.ID, page.Comments[0].ID)
	assert.Equal(t, 1, page.Comments[0].ReplyCount)

	// Replies listing
	future = system.Root.RequestFuture(pid, &ListRepliesMsg{ParentID: comment.ID}, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	page = result.(*models.CommentPage)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, reply.ID, page.Comments[0].ID)
}

func TestCommentActorValidation(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnCommentActor(t, db)

	post := &models.Post{ID: uuid.New(), Title: "Test post", AuthorID: uuid.New(), SubredditID: uuid.New()}
	require.NoError(t, db.SavePost(stdctx.Background(), post))

	cases := []struct {
		name string
		msg  *CreateCommentMsg
	}{
		{"empty content", &CreateCommentMsg{Content: "   ", AuthorID: uuid.New(), PostID: post.ID}},
		{"oversized content", &CreateCommentMsg{Content: strings.Repeat("a", maxCommentLength+1), AuthorID: uuid.New(), PostID: post.ID}},
		{"missing author", &CreateCommentMsg{Content: "hello", PostID: post.ID}},
		{"missing post", &CreateCommentMsg{Content: "hello", AuthorID: uuid.New()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			future := system.Root.RequestFuture(pid, tc.msg, 5*time.Second)
			result, err := future.Result()
			assert.NoError(t, err)

			appErr, ok := result.(*utils.AppError)
			require.True(t, ok, "expected *utils.AppError, got %T", result)
			assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
		})
	}
}

func TestCommentActorThread(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnCommentActor(t, db)

	authorID := uuid.New()
	post := &models.Post{ID: uuid.New(), Title: "Test post", AuthorID: authorID, SubredditID: uuid.New()}
	require.NoError(t, db.SavePost(stdctx.Background(), post))

	// Build a three-deep chain: root -> child -> grandchild
	create := func(content string, parentID *uuid.UUID) *models.Comment {
		future := system.Root.RequestFuture(pid, &CreateCommentMsg{
			Content: content, AuthorID: authorID, PostID: post.ID, ParentID: parentID,
		}, 5*time.Second)
		result, err := future.Result()
		require.NoError(t, err)
		comment, ok := result.(*models.Comment)
		require.True(t, ok, "expected *models.Comment, got %T", result)
		return comment
	}

	root := create("root", nil)
	child := create("child", &root.ID)
	grandchild := create("grandchild", &child.ID)

	future := system.Root.RequestFuture(pid, &GetThreadMsg{CommentID: root.ID}, 5*time.Second)
	result, err := future.Result()
	assert.NoError(t, err)

	node, ok := result.(*ThreadNode)
	require.True(t, ok, "expected *ThreadNode, got %T", result)
	assert.Equal(t, root.ID, node.Comment.ID)
	require.Len(t, node.Replies, 1)
	assert.Equal(t, child.ID, node.Replies[0].Comment.ID)
	require.Len(t, node.Replies[0].Replies, 1)
	assert.Equal(t, grandchild.ID, node.Replies[0].Replies[0].Comment.ID)
	assert.False(t, node.Truncated)

	// Depth 1 cuts below the child and flags the cut
	future = system.Root.RequestFuture(pid, &GetThreadMsg{CommentID: root.ID, MaxDepth: 1}, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	node = result.(*ThreadNode)
	require.Len(t, node.Replies, 1)
	truncated := node.Replies[0]
	assert.Empty(t, truncated.Replies)
	assert.True(t, truncated.Truncated)
}
