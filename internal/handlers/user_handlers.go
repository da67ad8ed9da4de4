package handlers

import (
	"encoding/json"
	"net/http"

	"bayou-board/internal/engine/actors"
	"bayou-board/internal/middleware"
	"bayou-board/internal/models"

	"github.com/google/uuid"
)

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token and the logged-in user.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// HandleRegister creates a new account.
func (s *Server) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetUserActor(), &actors.RegisterUserMsg{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		s.respondResult(w, result, http.StatusCreated)
	}
}

// HandleLogin checks credentials and mints a session token.
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetUserActor(), &actors.LoginMsg{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		user, ok := result.(*models.User)
		if !ok {
			s.respondResult(w, result, http.StatusOK)
			return
		}

		token, err := s.Tokens.GenerateToken(user.ID)
		if err != nil {
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		s.respondJSON(w, http.StatusOK, &LoginResponse{Token: token, User: user})
	}
}

// HandleUserProfile returns a user's public profile. Without an id query
// parameter it returns the authenticated user.
func (s *Server) HandleUserProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var userID uuid.UUID
		if idParam := r.URL.Query().Get("id"); idParam != "" {
			parsed, err := uuid.Parse(idParam)
			if err != nil {
				http.Error(w, "Invalid user ID", http.StatusBadRequest)
				return
			}
			userID = parsed
		} else {
			authed, ok := middleware.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			userID = authed
		}

		result, err := s.request(s.Engine.GetUserActor(), &actors.GetUserProfileMsg{UserID: userID})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		s.respondResult(w, result, http.StatusOK)
	}
}
