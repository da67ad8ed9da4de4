package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"bayou-board/internal/database"
	"bayou-board/internal/engine"
	"bayou-board/internal/enrich"
	"bayou-board/internal/middleware"
	"bayou-board/internal/utils"
	ws "bayou-board/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	DB             database.DBAdapter
	Metrics        *utils.MetricsCollector
	Enricher       *enrich.Enricher
	Tokens         *middleware.TokenAuthority
	Hub            *ws.Hub
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	db database.DBAdapter,
	metrics *utils.MetricsCollector,
	tokens *middleware.TokenAuthority,
	hub *ws.Hub,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		DB:             db,
		Metrics:        metrics,
		Enricher:       enrich.NewEnricher(db, enrich.DefaultConcurrency),
		Tokens:         tokens,
		Hub:            hub,
		RequestTimeout: engine.DefaultRequestTimeout,
	}
}

// request sends msg to an actor and waits for the reply.
func (s *Server) request(pid *actor.PID, msg interface{}) (interface{}, error) {
	s.Metrics.IncrementRequests()
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	return future.Result()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondResult writes an actor reply: AppErrors map onto their HTTP status,
// everything else is a 2xx payload.
func (s *Server) respondResult(w http.ResponseWriter, result interface{}, okStatus int) {
	if appErr, ok := result.(*utils.AppError); ok {
		s.Metrics.IncrementErrors()
		s.respondJSON(w, utils.AppErrorToHTTPStatus(appErr.Code), &errorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		})
		return
	}
	s.respondJSON(w, okStatus, result)
}

func (s *Server) respondActorFailure(w http.ResponseWriter, err error) {
	s.Metrics.IncrementErrors()
	slog.Error("actor request failed", "error", err)
	s.respondJSON(w, http.StatusServiceUnavailable, &errorResponse{
		Error: "request timed out",
		Code:  utils.ErrActorTimeout,
	})
}
