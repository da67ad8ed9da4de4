package actors

import (
	stdctx "context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"bayou-board/internal/database"
	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Message types for user operations
type (
	RegisterUserMsg struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginMsg struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	GetUserProfileMsg struct {
		UserID uuid.UUID `json:"userId"`
	}
)

// UserActor handles registration, credential checks and profile reads.
// Password hashes never leave the store layer except for the bcrypt
// comparison here; responses carry the model, whose hash field is not
// serialized.
type UserActor struct {
	db      database.DBAdapter
	metrics *utils.MetricsCollector
}

func NewUserActor(db database.DBAdapter, metrics *utils.MetricsCollector) actor.Actor {
	return &UserActor{db: db, metrics: metrics}
}

func (a *UserActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		slog.Info("user actor started", "pid", context.Self().Id)

	case *RegisterUserMsg:
		a.handleRegister(context, msg)

	case *LoginMsg:
		a.handleLogin(context, msg)

	case *GetUserProfileMsg:
		a.handleGetProfile(context, msg)

	default:
		slog.Warn("user actor received unknown message", "type", msg)
	}
}

func (a *UserActor) handleRegister(context actor.Context, msg *RegisterUserMsg) {
	startTime := time.Now()

	username := strings.TrimSpace(msg.Username)
	if username == "" {
		context.Respond(utils.NewValidationError("username cannot be empty"))
		return
	}
	if _, err := mail.ParseAddress(msg.Email); err != nil {
		context.Respond(utils.NewValidationError("invalid email address"))
		return
	}
	if len(msg.Password) < minPasswordLength {
		context.Respond(utils.NewValidationError("password must be at least 8 characters"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(msg.Password), bcrypt.DefaultCost)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "failed to hash password", err))
		return
	}

	user := &models.User{
		ID:             uuid.New(),
		Username:       username,
		Email:          msg.Email,
		HashedPassword: string(hash),
		Subreddits:     []uuid.UUID{},
	}

	if err := a.db.SaveUser(stdctx.Background(), user); err != nil {
		a.metrics.IncrementErrors()
		context.Respond(err)
		return
	}

	slog.Info("user registered", "user", user.ID, "username", user.Username)
	a.metrics.AddOperationLatency("register_user", time.Since(startTime))
	context.Respond(user)
}

func (a *UserActor) handleLogin(context actor.Context, msg *LoginMsg) {
	startTime := time.Now()

	user, err := a.db.GetUserByEmail(stdctx.Background(), msg.Email)
	if err != nil {
		// Do not reveal whether the email exists.
		context.Respond(utils.NewAppError(utils.ErrInvalidCredentials, "invalid credentials", nil))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(msg.Password)); err != nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidCredentials, "invalid credentials", nil))
		return
	}

	a.metrics.AddOperationLatency("login", time.Since(startTime))
	context.Respond(user)
}

func (a *UserActor) handleGetProfile(context actor.Context, msg *GetUserProfileMsg) {
	user, err := a.db.GetUser(stdctx.Background(), msg.UserID)
	if err != nil {
		context.Respond(err)
		return
	}
	context.Respond(user)
}
