package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"bayou-board/internal/engine/actors"
	"bayou-board/internal/enrich"
	"bayou-board/internal/middleware"
	"bayou-board/internal/models"

	"github.com/google/uuid"
)

// CreateCommentRequest represents a request to create a new comment
type CreateCommentRequest struct {
	Content  string `json:"content"`
	PostID   string `json:"postId"`
	ParentID string `json:"parentId,omitempty"` // Optional, for replies
}

// CommentPageResponse is a comment listing with authors resolved.
type CommentPageResponse struct {
	Comments []*enrich.EnrichedComment `json:"comments"`
	Total    int                       `json:"total"`
}

func parsePagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// HandleComment creates comments and lists a post's top-level comments.
func (s *Server) HandleComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleCreateComment(w, r)
		case http.MethodGet:
			s.handleListPostComments(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	postID, err := uuid.Parse(req.PostID)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != "" {
		parsed, err := uuid.Parse(req.ParentID)
		if err != nil {
			http.Error(w, "Invalid parent comment ID", http.StatusBadRequest)
			return
		}
		parentID = &parsed
	}

	result, err := s.request(s.Engine.GetCommentActor(), &actors.CreateCommentMsg{
		Content:  req.Content,
		AuthorID: userID,
		PostID:   postID,
		ParentID: parentID,
	})
	if err != nil {
		s.respondActorFailure(w, err)
		return
	}

	s.respondResult(w, result, http.StatusCreated)
}

func (s *Server) handleListPostComments(w http.ResponseWriter, r *http.Request) {
	postID, err := uuid.Parse(r.URL.Query().Get("postId"))
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	limit, offset := parsePagination(r, 25)

	result, err := s.request(s.Engine.GetCommentActor(), &actors.ListPostCommentsMsg{
		PostID: postID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.respondActorFailure(w, err)
		return
	}

	page, ok := result.(*models.CommentPage)
	if !ok {
		s.respondResult(w, result, http.StatusOK)
		return
	}

	s.respondJSON(w, http.StatusOK, &CommentPageResponse{
		Comments: s.Enricher.Comments(r.Context(), page.Comments),
		Total:    page.Total,
	})
}

// HandleCommentReplies lists the direct children of a comment.
func (s *Server) HandleCommentReplies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		parentID, err := uuid.Parse(r.URL.Query().Get("parentId"))
		if err != nil {
			http.Error(w, "Invalid parent comment ID", http.StatusBadRequest)
			return
		}
		limit, offset := parsePagination(r, 0)

		result, err := s.request(s.Engine.GetCommentActor(), &actors.ListRepliesMsg{
			ParentID: parentID,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		page, ok := result.(*models.CommentPage)
		if !ok {
			s.respondResult(w, result, http.StatusOK)
			return
		}

		s.respondJSON(w, http.StatusOK, &CommentPageResponse{
			Comments: s.Enricher.Comments(r.Context(), page.Comments),
			Total:    page.Total,
		})
	}
}

// HandleCommentThread returns a comment with its descendants resolved,
// depth-bounded.
func (s *Server) HandleCommentThread() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		commentID, err := uuid.Parse(r.URL.Query().Get("commentId"))
		if err != nil {
			http.Error(w, "Invalid comment ID", http.StatusBadRequest)
			return
		}

		maxDepth := 0
		if v, err := strconv.Atoi(r.URL.Query().Get("maxDepth")); err == nil {
			maxDepth = v
		}

		result, err := s.request(s.Engine.GetCommentActor(), &actors.GetThreadMsg{
			CommentID: commentID,
			MaxDepth:  maxDepth,
		})
		if err != nil {
			s.respondActorFailure(w, err)
			return
		}

		s.respondResult(w, result, http.StatusOK)
	}
}
