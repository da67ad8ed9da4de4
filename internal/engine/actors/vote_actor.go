package actors

import (
	stdctx "context"
	"log/slog"
	"time"

	"bayou-board/internal/database"
	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for vote operations
type (
	CastVoteMsg struct {
		VoterID    uuid.UUID         `json:"voterId"`
		TargetID   uuid.UUID         `json:"targetId"`
		TargetKind models.TargetKind `json:"targetKind"`
		Stance     models.Stance     `json:"stance"`
	}

	GetVoteStatusMsg struct {
		VoterID    uuid.UUID         `json:"voterId"`
		TargetID   uuid.UUID         `json:"targetId"`
		TargetKind models.TargetKind `json:"targetKind"`
	}
)

// VoteResult is the response to a CastVoteMsg: the authoritative counters
// after the cast, plus the voter's resulting stance (nil after a retraction).
type VoteResult struct {
	TargetID   uuid.UUID         `json:"targetId"`
	TargetKind models.TargetKind `json:"targetKind"`
	Upvotes    int               `json:"upvotes"`
	Downvotes  int               `json:"downvotes"`
	Karma      int               `json:"karma"`
	UserVote   *models.Stance    `json:"userVote,omitempty"`
}

// Notifier receives store-change events for fan-out to connected clients.
// Implementations must not block.
type Notifier interface {
	VoteUpdated(result *VoteResult)
	CommentCreated(comment *models.Comment)
}

// VoteActor owns the vote ledger. All casts flow through the store adapter,
// which guarantees toggle semantics and race-safe counters; the actor adds
// input validation, metrics and event fan-out.
type VoteActor struct {
	db       database.DBAdapter
	metrics  *utils.MetricsCollector
	notifier Notifier
}

func NewVoteActor(db database.DBAdapter, metrics *utils.MetricsCollector, notifier Notifier) actor.Actor {
	return &VoteActor{db: db, metrics: metrics, notifier: notifier}
}

func (a *VoteActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		slog.Info("vote actor started", "pid", context.Self().Id)

	case *CastVoteMsg:
		a.handleCastVote(context, msg)

	case *GetVoteStatusMsg:
		a.handleGetVoteStatus(context, msg)

	default:
		slog.Warn("vote actor received unknown message", "type", msg)
	}
}

func (a *VoteActor) handleCastVote(context actor.Context, msg *CastVoteMsg) {
	startTime := time.Now()

	if msg.VoterID == uuid.Nil {
		context.Respond(utils.NewValidationError("voter id is required"))
		return
	}
	if !msg.TargetKind.Valid() {
		context.Respond(utils.NewValidationError("target kind must be post or comment"))
		return
	}
	if !msg.Stance.Valid() {
		context.Respond(utils.NewValidationError("stance must be up or down"))
		return
	}

	ctx := stdctx.Background()
	counts, err := a.db.CastVote(ctx, msg.VoterID, msg.TargetID, msg.TargetKind, msg.Stance)
	if err != nil {
		a.metrics.IncrementErrors()
		slog.Error("vote cast failed",
			"voter", msg.VoterID, "target", msg.TargetID, "kind", msg.TargetKind, "error", err)
		context.Respond(err)
		return
	}

	result := &VoteResult{
		TargetID:   msg.TargetID,
		TargetKind: msg.TargetKind,
		Upvotes:    counts.Upvotes,
		Downvotes:  counts.Downvotes,
		Karma:      counts.Karma(),
	}
	// The cast may have retracted the vote; re-read for the resulting stance.
	if vote, err := a.db.GetUserVote(ctx, msg.VoterID, msg.TargetID, msg.TargetKind); err == nil && vote != nil {
		stance := vote.Stance
		result.UserVote = &stance
	}

	if a.notifier != nil {
		a.notifier.VoteUpdated(result)
	}

	a.metrics.AddOperationLatency("cast_vote", time.Since(startTime))
	context.Respond(result)
}

func (a *VoteActor) handleGetVoteStatus(context actor.Context, msg *GetVoteStatusMsg) {
	if !msg.TargetKind.Valid() {
		context.Respond(utils.NewValidationError("target kind must be post or comment"))
		return
	}

	vote, err := a.db.GetUserVote(stdctx.Background(), msg.VoterID, msg.TargetID, msg.TargetKind)
	if err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}
	if vote == nil {
		context.Respond(&VoteResult{TargetID: msg.TargetID, TargetKind: msg.TargetKind})
		return
	}
	stance := vote.Stance
	context.Respond(&VoteResult{
		TargetID:   msg.TargetID,
		TargetKind: msg.TargetKind,
		UserVote:   &stance,
	})
}
