// Package engine wires the actor system together. Each domain concern gets
// one actor; request handlers talk to them through RequestFuture, so all
// mutations of one concern are serialized through its mailbox.
package engine

import (
	"time"

	"bayou-board/internal/database"
	"bayou-board/internal/engine/actors"
	"bayou-board/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// DefaultRequestTimeout bounds every RequestFuture against an engine actor.
const DefaultRequestTimeout = 5 * time.Second

// Engine coordinates communication between actors.
type Engine struct {
	system *actor.ActorSystem

	userActor      *actor.PID
	subredditActor *actor.PID
	postActor      *actor.PID
	commentActor   *actor.PID
	voteActor      *actor.PID
}

// NewEngine spawns the domain actors against the given store adapter.
// notifier may be nil when no realtime fan-out is wanted (tests, simulator).
func NewEngine(system *actor.ActorSystem, db database.DBAdapter, metrics *utils.MetricsCollector, notifier actors.Notifier) *Engine {
	context := system.Root

	userPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserActor(db, metrics)
	}))
	subredditPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewSubredditActor(db, metrics)
	}))
	postPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPostActor(db, metrics)
	}))
	commentPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewCommentActor(db, metrics, notifier)
	}))
	votePID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewVoteActor(db, metrics, notifier)
	}))

	return &Engine{
		system:         system,
		userActor:      userPID,
		subredditActor: subredditPID,
		postActor:      postPID,
		commentActor:   commentPID,
		voteActor:      votePID,
	}
}

// Request sends msg to the given actor and waits for its response.
func (e *Engine) Request(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := e.system.Root.RequestFuture(pid, msg, DefaultRequestTimeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewActorTimeoutError(pid.Id)
	}
	return result, nil
}

func (e *Engine) GetUserActor() *actor.PID      { return e.userActor }
func (e *Engine) GetSubredditActor() *actor.PID { return e.subredditActor }
func (e *Engine) GetPostActor() *actor.PID      { return e.postActor }
func (e *Engine) GetCommentActor() *actor.PID   { return e.commentActor }
func (e *Engine) GetVoteActor() *actor.PID      { return e.voteActor }
