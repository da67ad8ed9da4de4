package handlers

import (
	"encoding/json"
	"net/http"

	"bayou-board/internal/engine/actors"
	"bayou-board/internal/middleware"
	"bayou-board/internal/models"

	"github.com/google/uuid"
)

// VoteRequest represents a request to cast a vote. The voter comes from the
// authenticated context, never the body.
type VoteRequest struct {
	TargetID   string `json:"targetId"`
	TargetKind string `json:"targetKind"`
	Stance     string `json:"stance"`
}

// HandleVote casts, flips or retracts a vote depending on the voter's
// current stance on the target.
func (s *Server) HandleVote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req VoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		targetID, err := uuid.Parse(req.TargetID)
		if err != nil {
			http.Error(w, "Invalid target ID", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetVoteActor(), &actors.CastVoteMsg{
			VoterID:    userID,
			TargetID:   targetID,
			TargetKind: models.TargetKind(req.TargetKind),
			Stance:     models.Stance(req.Stance),
		})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		s.respondResult(w, result, http.StatusOK)
	}
}

// HandleVoteStatus reports the authenticated user's stance on one target.
func (s *Server) HandleVoteStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		targetID, err := uuid.Parse(r.URL.Query().Get("targetId"))
		if err != nil {
			http.Error(w, "Invalid target ID", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetVoteActor(), &actors.GetVoteStatusMsg{
			VoterID:    userID,
			TargetID:   targetID,
			TargetKind: models.TargetKind(r.URL.Query().Get("targetKind")),
		})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		s.respondResult(w, result, http.StatusOK)
	}
}
