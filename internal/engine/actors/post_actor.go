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

const maxPostTitleLength = 300

// Message types for post operations
type (
	CreatePostMsg struct {
		Title       string          `json:"title"`
		Content     string          `json:"content"`
		PostType    models.PostType `json:"postType"`
		ImageURL    string          `json:"imageUrl,omitempty"`
		AuthorID    uuid.UUID       `json:"authorId"`
		SubredditID uuid.UUID       `json:"subredditId"`
	}

	GetPostMsg struct {
		PostID           uuid.UUID `json:"postId"`
		RequestingUserID uuid.UUID `json:"requestingUserId,omitempty"`
	}

	ListRecentPostsMsg struct {
		Limit            int                `json:"limit"`
		Offset           int                `json:"offset"`
		Sort             database.SortOrder `json:"sort"`
		RequestingUserID uuid.UUID          `json:"requestingUserId,omitempty"`
	}

	GetSubredditPostsMsg struct {
		SubredditID uuid.UUID          `json:"subredditId"`
		Limit       int                `json:"limit"`
		Offset      int                `json:"offset"`
		Sort        database.SortOrder `json:"sort"`
	}
)

// PostActor handles post creation and listing against the store adapter.
type PostActor struct {
	db      database.DBAdapter
	metrics *utils.MetricsCollector
}

func NewPostActor(db database.DBAdapter, metrics *utils.MetricsCollector) actor.Actor {
	return &PostActor{db: db, metrics: metrics}
}

func (a *PostActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		slog.Info("post actor started", "pid", context.Self().Id)

	case *CreatePostMsg:
		a.handleCreatePost(context, msg)

	case *GetPostMsg:
		a.handleGetPost(context, msg)

	case *ListRecentPostsMsg:
		a.handleListRecent(context, msg)

	case *GetSubredditPostsMsg:
		a.handleGetSubredditPosts(context, msg)

	default:
		slog.Warn("post actor received unknown message", "type", msg)
	}
}

func (a *PostActor) handleCreatePost(context actor.Context, msg *CreatePostMsg) {
	startTime := time.Now()

	title := strings.TrimSpace(msg.Title)
	switch {
	case title == "":
		context.Respond(utils.NewValidationError("post title cannot be empty"))
		return
	case len(title) > maxPostTitleLength:
		context.Respond(utils.NewValidationError("post title exceeds maximum length"))
		return
	case msg.AuthorID == uuid.Nil:
		context.Respond(utils.NewValidationError("author id is required"))
		return
	case msg.SubredditID == uuid.Nil:
		context.Respond(utils.NewValidationError("subreddit id is required"))
		return
	}

	postType := msg.PostType
	if postType == "" {
		postType = models.TextPost
	}
	if !postType.Valid() {
		context.Respond(utils.NewValidationError("post type must be text, image or link"))
		return
	}
	if postType == models.ImagePost && strings.TrimSpace(msg.ImageURL) == "" {
		context.Respond(utils.NewValidationError("image posts require an image url"))
		return
	}

	ctx := stdctx.Background()

	// The subreddit must exist before a post can point at it.
	if _, err := a.db.GetSubredditByID(ctx, msg.SubredditID); err != nil {
		context.Respond(err)
		return
	}

	post := &models.Post{
		ID:          uuid.New(),
		Title:       title,
		Content:     msg.Content,
		PostType:    postType,
		ImageURL:    msg.ImageURL,
		AuthorID:    msg.AuthorID,
		SubredditID: msg.SubredditID,
	}

	if err := a.db.SavePost(ctx, post); err != nil {
		a.metrics.IncrementErrors()
		slog.Error("post creation failed", "author", msg.AuthorID, "subreddit", msg.SubredditID, "error", err)
		context.Respond(err)
		return
	}

	a.metrics.AddOperationLatency("create_post", time.Since(startTime))
	context.Respond(post)
}

func (a *PostActor) handleGetPost(context actor.Context, msg *GetPostMsg) {
	post, err := a.db.GetPost(stdctx.Background(), msg.PostID, msg.RequestingUserID)
	if err != nil {
		context.Respond(err)
		return
	}
	context.Respond(post)
}

func (a *PostActor) handleListRecent(context actor.Context, msg *ListRecentPostsMsg) {
	startTime := time.Now()

	limit := msg.Limit
	if limit <= 0 {
		limit = 25
	}

	posts, err := a.db.GetRecentPosts(stdctx.Background(), limit, msg.Offset, msg.Sort, msg.RequestingUserID)
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}

	a.metrics.AddOperationLatency("list_recent_posts", time.Since(startTime))
	context.Respond(posts)
}

func (a *PostActor) handleGetSubredditPosts(context actor.Context, msg *GetSubredditPostsMsg) {
	limit := msg.Limit
	if limit <= 0 {
		limit = 25
	}

	posts, err := a.db.GetPostsBySubreddit(stdctx.Background(), msg.SubredditID, limit, msg.Offset, msg.Sort)
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}
	context.Respond(posts)
}
