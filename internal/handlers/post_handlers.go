package handlers

import (
	"encoding/json"
	"net/http"

	"bayou-board/internal/database"
	"bayou-board/internal/engine/actors"
	"bayou-board/internal/middleware"
	"bayou-board/internal/models"

	"github.com/google/uuid"
)

// CreatePostRequest represents a request to create a new post
type CreatePostRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	PostType    string `json:"postType,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	SubredditID string `json:"subredditId"`
}

// HandlePost creates posts and fetches single posts.
func (s *Server) HandlePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleCreatePost(w, r)
		case http.MethodGet:
			s.handleGetPost(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	subredditID, err := uuid.Parse(req.SubredditID)
	if err != nil {
		http.Error(w, "Invalid subreddit ID", http.StatusBadRequest)
		return
	}

	result, err := s.request(s.Engine.GetPostActor(), &actors.CreatePostMsg{
		Title:       req.Title,
		Content:     req.Content,
		PostType:    models.PostType(req.PostType),
		ImageURL:    req.ImageURL,
		AuthorID:    userID,
		SubredditID: subredditID,
	})
	if err != nil {
		s.respondActorFailure(w, err)
		return
	}

	s.respondResult(w, result, http.StatusCreated)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	// Anonymous requests are fine; the stance decoration is just skipped.
	requestingUserID, _ := middleware.GetUserIDFromContext(r.Context())

	result, err := s.request(s.Engine.GetPostActor(), &actors.GetPostMsg{
		PostID:           postID,
		RequestingUserID: requestingUserID,
	})
	if err != nil {
		s.respondActorFailure(w, err)
		return
	}

	post, ok := result.(*models.Post)
	if !ok {
		s.respondResult(w, result, http.StatusOK)
		return
	}

	enriched := s.Enricher.Posts(r.Context(), []*models.Post{post})
	s.respondJSON(w, http.StatusOK, enriched[0])
}

// HandleRecentPosts lists the newest or top posts across all communities.
func (s *Server) HandleRecentPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit, offset := parsePagination(r, 25)
		requestingUserID, _ := middleware.GetUserIDFromContext(r.Context())

		result, err := s.request(s.Engine.GetPostActor(), &actors.ListRecentPostsMsg{
			Limit:            limit,
			Offset:           offset,
			Sort:             database.ParseSortOrder(r.URL.Query().Get("sort")),
			RequestingUserID: requestingUserID,
		})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		posts, ok := result.([]*models.Post)
		if !ok {
			s.respondResult(w, result, http.StatusOK)
			return
		}

		s.respondJSON(w, http.StatusOK, s.Enricher.Posts(r.Context(), posts))
	}
}

// HandleSubredditPosts lists one community's posts.
func (s *Server) HandleSubredditPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		subredditID, err := uuid.Parse(r.URL.Query().Get("subredditId"))
		if err != nil {
			http.Error(w, "Invalid subreddit ID", http.StatusBadRequest)
			return
		}
		limit, offset := parsePagination(r, 25)

		result, err := s.request(s.Engine.GetPostActor(), &actors.GetSubredditPostsMsg{
			SubredditID: subredditID,
			Limit:       limit,
			Offset:      offset,
			Sort:        database.ParseSortOrder(r.URL.Query().Get("sort")),
		})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		posts, ok := result.([]*models.Post)
		if !ok {
			s.respondResult(w, result, http.StatusOK)
			return
		}

		s.respondJSON(w, http.StatusOK, s.Enricher.Posts(r.Context(), posts))
	}
}
