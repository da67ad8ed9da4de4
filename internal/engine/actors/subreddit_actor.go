package actors

import (
	stdctx "context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"bayou-board/internal/database"
	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

var subredditNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,21}$`)

// Message types for subreddit operations
type (
	CreateSubredditMsg struct {
		Name        string    `json:"name"`
		Description string    `json:"description"`
		IconURL     string    `json:"iconUrl,omitempty"`
		CreatorID   uuid.UUID `json:"creatorId"`
	}

	GetSubredditMsg struct {
		SubredditID uuid.UUID `json:"subredditId,omitempty"`
		Name        string    `json:"name,omitempty"`
	}

	ListSubredditsMsg struct{}

	JoinSubredditMsg struct {
		SubredditID uuid.UUID `json:"subredditId"`
		UserID      uuid.UUID `json:"userId"`
	}

	LeaveSubredditMsg struct {
		SubredditID uuid.UUID `json:"subredditId"`
		UserID      uuid.UUID `json:"userId"`
	}
)

// SubredditActor handles community lifecycle and membership.
type SubredditActor struct {
	db      database.DBAdapter
	metrics *utils.MetricsCollector
}

func NewSubredditActor(db database.DBAdapter, metrics *utils.MetricsCollector) actor.Actor {
	return &SubredditActor{db: db, metrics: metrics}
}

func (a *SubredditActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		slog.Info("subreddit actor started", "pid", context.Self().Id)

	case *CreateSubredditMsg:
		a.handleCreate(context, msg)

	case *GetSubredditMsg:
		a.handleGet(context, msg)

	case *ListSubredditsMsg:
		a.handleList(context)

	case *JoinSubredditMsg:
		a.handleMembership(context, msg.SubredditID, msg.UserID, true)

	case *LeaveSubredditMsg:
		a.handleMembership(context, msg.SubredditID, msg.UserID, false)

	default:
		slog.Warn("subreddit actor received unknown message", "type", msg)
	}
}

func (a *SubredditActor) handleCreate(context actor.Context, msg *CreateSubredditMsg) {
	startTime := time.Now()

	name := strings.TrimSpace(msg.Name)
	if !subredditNamePattern.MatchString(name) {
		context.Respond(utils.NewValidationError("subreddit name must be 3-21 word characters"))
		return
	}
	if msg.CreatorID == uuid.Nil {
		context.Respond(utils.NewValidationError("creator id is required"))
		return
	}

	sub := &models.Subreddit{
		ID:          uuid.New(),
		Name:        name,
		Description: msg.Description,
		IconURL:     msg.IconURL,
		CreatorID:   msg.CreatorID,
		Members:     1, // creator is the first member
	}

	ctx := stdctx.Background()
	if err := a.db.CreateSubreddit(ctx, sub); err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}

	if err := a.db.UpdateUserSubreddits(ctx, msg.CreatorID, sub.ID, true); err != nil {
		slog.Warn("failed to record creator membership", "subreddit", sub.ID, "user", msg.CreatorID, "error", err)
	}

	a.metrics.AddOperationLatency("create_subreddit", time.Since(startTime))
	context.Respond(sub)
}

func (a *SubredditActor) handleGet(context actor.Context, msg *GetSubredditMsg) {
	ctx := stdctx.Background()

	var (
		sub *models.Subreddit
		err error
	)
	if msg.SubredditID != uuid.Nil {
		sub, err = a.db.GetSubredditByID(ctx, msg.SubredditID)
	} else if msg.Name != "" {
		sub, err = a.db.GetSubredditByName(ctx, msg.Name)
	} else {
		err = utils.NewValidationError("subreddit id or name is required")
	}

	if err != nil {
		context.Respond(err)
		return
	}
	context.Respond(sub)
}

func (a *SubredditActor) handleList(context actor.Context) {
	subs, err := a.db.GetAllSubreddits(stdctx.Background())
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}
	context.Respond(subs)
}

func (a *SubredditActor) handleMembership(context actor.Context, subID, userID uuid.UUID, join bool) {
	startTime := time.Now()
	ctx := stdctx.Background()

	if _, err := a.db.GetSubredditByID(ctx, subID); err != nil {
		context.Respond(err)
		return
	}

	user, err := a.db.GetUser(ctx, userID)
	if err != nil {
		context.Respond(err)
		return
	}

	isMember := false
	for _, s := range user.Subreddits {
		if s == subID {
			isMember = true
			break
		}
	}
	if join && isMember {
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "already a member", nil))
		return
	}
	if !join && !isMember {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "not a member", nil))
		return
	}

	if err := a.db.UpdateUserSubreddits(ctx, userID, subID, join); err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}

	delta := 1
	op := "join_subreddit"
	if !join {
		delta = -1
		op = "leave_subreddit"
	}
	if err := a.db.UpdateSubredditMemberCount(ctx, subID, delta); err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}

	a.metrics.AddOperationLatency(op, time.Since(startTime))
	context.Respond(&models.StatusResponse{Success: true})
}
