package handlers

import (
	"encoding/json"
	"net/http"

	"bayou-board/internal/engine/actors"
	"bayou-board/internal/middleware"

	"github.com/google/uuid"
)

// CreateSubredditRequest represents a request to create a new community.
type CreateSubredditRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// MembershipRequest joins or leaves a community.
type MembershipRequest struct {
	SubredditID string `json:"subredditId"`
}

// HandleSubreddits creates communities and lists them all.
func (s *Server) HandleSubreddits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleCreateSubreddit(w, r)
		case http.MethodGet:
			s.handleListSubreddits(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleCreateSubreddit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req CreateSubredditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := s.request(s.Engine.GetSubredditActor(), &actors.CreateSubredditMsg{
		Name:        req.Name,
		Description: req.Description,
		IconURL:     req.IconURL,
		CreatorID:   userID,
	})
	if err != nil {
		s.respondActorFailure(w, err)
		return
	}

	s.respondResult(w, result, http.StatusCreated)
}

func (s *Server) handleListSubreddits(w http.ResponseWriter, r *http.Request) {
	// A name filter turns the listing into a point lookup.
	if name := r.URL.Query().Get("name"); name != "" {
		result, err := s.request(s.Engine.GetSubredditActor(), &actors.GetSubredditMsg{Name: name})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}
		s.respondResult(w, result, http.StatusOK)
		return
	}

	result, err := s.request(s.Engine.GetSubredditActor(), &actors.ListSubredditsMsg{})
	if err != nil {
		s.respondActorFailure(w, err)
		return
	}
	s.respondResult(w, result, http.StatusOK)
}

// HandleSubredditMembership joins (POST) or leaves (DELETE) a community.
func (s *Server) HandleSubredditMembership() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req MembershipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		subredditID, err := uuid.Parse(req.SubredditID)
		if err != nil {
			http.Error(w, "Invalid subreddit ID", http.StatusBadRequest)
			return
		}

		var msg interface{}
		switch r.Method {
		case http.MethodPost:
			msg = &actors.JoinSubredditMsg{SubredditID: subredditID, UserID: userID}
		case http.MethodDelete:
			msg = &actors.LeaveSubredditMsg{SubredditID: subredditID, UserID: userID}
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		result, err := s.request(s.Engine.GetSubredditActor(), msg)
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		s.respondResult(w, result, http.StatusOK)
	}
}
