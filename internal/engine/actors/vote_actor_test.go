package actors

import (
	stdctx "context"
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

func spawnVoteActor(t *testing.T, db database.DBAdapter) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	metrics := utils.NewMetricsCollector()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewVoteActor(db, metrics, nil)
	})
	return system, system.Root.Spawn(props)
}

func TestVoteActorCastAndRetract(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnVoteActor(t, db)

	author := &models.User{ID: uuid.New(), Username: "author", Email: "author@example.com"}
	require.NoError(t, db.SaveUser(stdctx.Background(), author))
	voter := uuid.New()

	post := &models.Post{ID: uuid.New(), Title: "Test post", AuthorID: author.ID, SubredditID: uuid.New()}
	require.NoError(t, db.SavePost(stdctx.Background(), post))

	castMsg := &CastVoteMsg{
		VoterID:    voter,
		TargetID:   post.ID,
		TargetKind: models.PostTarget,
		Stance:     models.Upvote,
	}

	future := system.Root.RequestFuture(pid, castMsg, 5*time.Second)
	result, err := future.Result()
	assert.NoError(t, err)

	voteResult, ok := result.(*VoteResult)
	require.True(t, ok, "expected *VoteResult, got %T", result)
	assert.Equal(t, 1, voteResult.Upvotes)
	assert.Equal(t, 0, voteResult.Downvotes)
	assert.Equal(t, 1, voteResult.Karma)
	require.NotNil(t, voteResult.UserVote)
	assert.Equal(t, models.Upvote, *voteResult.UserVote)

	// Same stance again retracts
	future = system.Root.RequestFuture(pid, castMsg, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	voteResult = result.(*VoteResult)
	assert.Equal(t, 0, voteResult.Upvotes)
	assert.Nil(t, voteResult.UserVote)
}

func TestVoteActorFlip(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnVoteActor(t, db)

	post := &models.Post{ID: uuid.New(), Title: "Test post", AuthorID: uuid.New(), SubredditID: uuid.New()}
	require.NoError(t, db.SavePost(stdctx.Background(), post))
	voter := uuid.New()

	future := system.Root.RequestFuture(pid, &CastVoteMsg{
		VoterID: voter, TargetID: post.ID, TargetKind: models.PostTarget, Stance: models.Upvote,
	}, 5*time.Second)
	_, err := future.Result()
	require.NoError(t, err)

	future = system.Root.RequestFuture(pid, &CastVoteMsg{
		VoterID: voter, TargetID: post.ID, TargetKind: models.PostTarget, Stance: models.Downvote,
	}, 5*time.Second)
	result, err := future.Result()
	assert.NoError(t, err)

	voteResult := result.(*VoteResult)
	assert.Equal(t, 0, voteResult.Upvotes)
	assert.Equal(t, 1, voteResult.Downvotes)
	assert.Equal(t, -1, voteResult.Karma)
	require.NotNil(t, voteResult.UserVote)
	assert.Equal(t, models.Downvote, *voteResult.UserVote)
}

func TestVoteActorValidation(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnVoteActor(t, db)

	future := system.Root.RequestFuture(pid, &CastVoteMsg{
		VoterID:    uuid.New(),
		TargetID:   uuid.New(),
		TargetKind: "story",
		Stance:     models.Upvote,
	}, 5*time.Second)
	result, err := future.Result()
	assert.NoError(t, err)

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected *utils.AppError, got %T", result)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)

	// Unknown target surfaces not-found
	future = system.Root.RequestFuture(pid, &CastVoteMsg{
		VoterID:    uuid.New(),
		TargetID:   uuid.New(),
		TargetKind: models.PostTarget,
		Stance:     models.Downvote,
	}, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrNotFound, appErr.Code)
}

func TestVoteActorStatus(t *testing.T) {
	db := database.NewMemoryDB()
	system, pid := spawnVoteActor(t, db)

	post := &models.Post{ID: uuid.New(), Title: "Test post", AuthorID: uuid.New(), SubredditID: uuid.New()}
	require.NoError(t, db.SavePost(stdctx.Background(), post))
	voter := uuid.New()

	// No vote yet
	future := system.Root.RequestFuture(pid, &GetVoteStatusMsg{
		VoterID: voter, TargetID: post.ID, TargetKind: models.PostTarget,
	}, 5*time.Second)
	result, err := future.Result()
	assert.NoError(t, err)
	assert.Nil(t, result.(*VoteResult).UserVote)

	future = system.Root.RequestFuture(pid, &CastVoteMsg{
		VoterID: voter, TargetID: post.ID, TargetKind: models.PostTarget, Stance: models.Upvote,
	}, 5*time.Second)
	_, err = future.Result()
	require.NoError(t, err)

	future = system.Root.RequestFuture(pid, &GetVoteStatusMsg{
		VoterID: voter, TargetID: post.ID, TargetKind: models.PostTarget,
	}, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)
	status := result.(*VoteResult)
	require.NotNil(t, status.UserVote)
	assert.Equal(t, models.Upvote, *status.UserVote)
}
