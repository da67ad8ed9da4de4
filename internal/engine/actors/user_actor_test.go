package actors

import (
	"testing"
	"time"

	"bayou-board/internal/database"
	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserActorRegisterAndLogin(t *testing.T) {
	db := database.NewMemoryDB()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewUserActor(db, utils.NewMetricsCollector())
	})
	pid := system.Root.Spawn(props)

	registerMsg := &RegisterUserMsg{
		Username: "heron",
		Email:    "heron@example.com",
		Password: "marsh-reeds-77",
	}

	future := system.Root.RequestFuture(pid, registerMsg, 5*time.Second)
	result, err := future.Result()
	assert.NoError(t, err)

	user, ok := result.(*models.User)
	require.True(t, ok, "expected *models.User, got %T", result)
	assert.Equal(t, "heron", user.Username)
	assert.NotEqual(t, "marsh-reeds-77", user.HashedPassword)

	// Duplicate email is rejected
	future = system.Root.RequestFuture(pid, registerMsg, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrUserAlreadyExists, appErr.Code)

	// Login with the right password
	future = system.Root.RequestFuture(pid, &LoginMsg{Email: "heron@example.com", Password: "marsh-reeds-77"}, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	loggedIn, ok := result.(*models.User)
	require.True(t, ok, "expected *models.User, got %T", result)
	assert.Equal(t, user.ID, loggedIn.ID)

	// Wrong password fails without leaking which part was wrong
	future = system.Root.RequestFuture(pid, &LoginMsg{Email: "heron@example.com", Password: "wrong-password"}, 5*time.Second)
	result, err = future.Result()
	assert.NoError(t, err)

	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidCredentials, appErr.Code)
}

func TestUserActorRegistrationValidation(t *testing.T) {
	db := database.NewMemoryDB()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewUserActor(db, utils.NewMetricsCollector())
	})
	pid := system.Root.Spawn(props)

	cases := []struct {
		name string
		msg  *RegisterUserMsg
	}{
		{"empty username", &RegisterUserMsg{Email: "a@example.com", Password: "longenough"}},
		{"bad email", &RegisterUserMsg{Username: "heron", Email: "not-an-email", Password: "longenough"}},
		{"short password", &RegisterUserMsg{Username: "heron", Email: "a@example.com", Password: "short"}},
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
