package actors

import (
	stdctx "context"
	"log/slog"
	"strings"
	"time"

	"bayou-board/internal/database"
	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

const (
	maxCommentLength = 10000

	// DefaultThreadDepth bounds recursive thread reconstruction. Deeper
	// branches are cut off and flagged so clients can fetch them lazily.
	DefaultThreadDepth = 10
)

// Message types for comment operations
type (
	CreateCommentMsg struct {
		Content  string     `json:"content"`
		AuthorID uuid.UUID  `json:"authorId"`
		PostID   uuid.UUID  `json:"postId"`
		ParentID *uuid.UUID `json:"parentId,omitempty"`
	}

	GetCommentMsg struct {
		CommentID uuid.UUID `json:"commentId"`
	}

	ListPostCommentsMsg struct {
		PostID uuid.UUID `json:"postId"`
		Limit  int       `json:"limit"`
		Offset int       `json:"offset"`
	}

	ListRepliesMsg struct {
		ParentID uuid.UUID `json:"parentId"`
		Limit    int       `json:"limit"`
		Offset   int       `json:"offset"`
	}

	GetThreadMsg struct {
		CommentID uuid.UUID `json:"commentId"`
		MaxDepth  int       `json:"maxDepth"`
	}
)

// ThreadNode is one comment with its resolved descendants. Truncated marks
// nodes whose children exist but were beyond the depth bound.
type ThreadNode struct {
	Comment   *models.Comment `json:"comment"`
	Replies   []*ThreadNode   `json:"replies"`
	Truncated bool            `json:"truncated,omitempty"`
}

// CommentActor owns the comment tree. The store adapter keeps the
// denormalized counters consistent; the actor validates input and
// reconstructs threads from the flat parent-referencing records.
type CommentActor struct {
	db       database.DBAdapter
	metrics  *utils.MetricsCollector
	notifier Notifier
}

func NewCommentActor(db database.DBAdapter, metrics *utils.MetricsCollector, notifier Notifier) actor.Actor {
	return &CommentActor{db: db, metrics: metrics, notifier: notifier}
}

func (a *CommentActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		slog.Info("comment actor started", "pid", context.Self().Id)

	case *CreateCommentMsg:
		a.handleCreateComment(context, msg)

	case *GetCommentMsg:
		a.handleGetComment(context, msg)

	case *ListPostCommentsMsg:
		a.handleListPostComments(context, msg)

	case *ListRepliesMsg:
		a.handleListReplies(context, msg)

	case *GetThreadMsg:
		a.handleGetThread(context, msg)

	default:
		slog.Warn("comment actor received unknown message", "type", msg)
	}
}

func (a *CommentActor) handleCreateComment(context actor.Context, msg *CreateCommentMsg) {
	startTime := time.Now()

	content := strings.TrimSpace(msg.Content)
	switch {
	case content == "":
		context.Respond(utils.NewValidationError("comment content cannot be empty"))
		return
	case len(content) > maxCommentLength:
		context.Respond(utils.NewValidationError("comment content exceeds maximum length"))
		return
	case msg.AuthorID == uuid.Nil:
		context.Respond(utils.NewValidationError("author id is required"))
		return
	case msg.PostID == uuid.Nil:
		context.Respond(utils.NewValidationError("post id is required"))
		return
	}

	comment := &models.Comment{
		ID:       uuid.New(),
		Content:  content,
		AuthorID: msg.AuthorID,
		PostID:   msg.PostID,
		ParentID: msg.ParentID,
	}

	ctx := stdctx.Background()
	if err := a.db.CreateComment(ctx, comment); err != nil {
		a.metrics.IncrementErrors()
		slog.Error("comment creation failed", "post", msg.PostID, "author", msg.AuthorID, "error", err)
		context.Respond(err)
		return
	}

	if a.notifier != nil {
		a.notifier.CommentCreated(comment)
	}

	a.metrics.AddOperationLatency("create_comment", time.Since(startTime))
	context.Respond(comment)
}

func (a *CommentActor) handleGetComment(context actor.Context, msg *GetCommentMsg) {
	comment, err := a.db.GetComment(stdctx.Background(), msg.CommentID)
	if err != nil {
		context.Respond(err)
		return
	}
	context.Respond(comment)
}

func (a *CommentActor) handleListPostComments(context actor.Context, msg *ListPostCommentsMsg) {
	startTime := time.Now()

	page, err := a.db.ListTopLevelComments(stdctx.Background(), msg.PostID, msg.Limit, msg.Offset)
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}

	a.metrics.AddOperationLatency("list_post_comments", time.Since(startTime))
	context.Respond(page)
}

func (a *CommentActor) handleListReplies(context actor.Context, msg *ListRepliesMsg) {
	page, err := a.db.ListReplies(stdctx.Background(), msg.ParentID, msg.Limit, msg.Offset)
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}
	context.Respond(page)
}

func (a *CommentActor) handleGetThread(context actor.Context, msg *GetThreadMsg) {
	startTime := time.Now()
	ctx := stdctx.Background()

	root, err := a.db.GetComment(ctx, msg.CommentID)
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}

	maxDepth := msg.MaxDepth
	if maxDepth <= 0 || maxDepth > DefaultThreadDepth {
		maxDepth = DefaultThreadDepth
	}

	node, err := a.buildThread(ctx, root, maxDepth)
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}

	a.metrics.AddOperationLatency("get_thread", time.Since(startTime))
	context.Respond(node)
}

// buildThread resolves a comment's descendants depth-first. The parent chain
// is acyclic, so recursion terminates; depth only bounds the response size.
func (a *CommentActor) buildThread(ctx stdctx.Context, comment *models.Comment, depth int) (*ThreadNode, error) {
	node := &ThreadNode{Comment: comment, Replies: []*ThreadNode{}}

	if comment.ReplyCount == 0 {
		return node, nil
	}
	if depth <= 0 {
		node.Truncated = true
		return node, nil
	}

	page, err := a.db.ListReplies(ctx, comment.ID, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, reply := range page.Comments {
		child, err := a.buildThread(ctx, reply, depth-1)
		if err != nil {
			return nil, err
		}
		node.Replies = append(node.Replies, child)
	}
	return node, nil
}
