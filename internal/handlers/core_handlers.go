package handlers

import (
	"net/http"
	"time"

	"bayou-board/internal/middleware"
)

// HandleHealth reports liveness plus the metrics snapshot.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"server_time": time.Now(),
			"metrics":     s.Metrics.Snapshot(),
		})
	}
}

// RegisterRoutes wires every endpoint onto the mux with its auth and CORS
// treatment. Reads work anonymously (with optional stance decoration);
// mutations require a session.
func (s *Server) RegisterRoutes(mux *http.ServeMux, cors *middleware.CORSConfig) {
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ApplyCORS(h, cors)
	}
	optional := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ApplyCORS(s.Tokens.OptionalAuth(h), cors)
	}
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ApplyCORS(s.Tokens.RequireAuth(h), cors)
	}

	mux.HandleFunc("/health", public(s.HandleHealth()))

	mux.HandleFunc("/user/register", public(s.HandleRegister()))
	mux.HandleFunc("/user/login", public(s.HandleLogin()))
	mux.HandleFunc("/user/profile", optional(s.HandleUserProfile()))

	mux.HandleFunc("/subreddit", protectedReadsOptional(s, cors, s.HandleSubreddits()))
	mux.HandleFunc("/subreddit/members", protected(s.HandleSubredditMembership()))
	mux.HandleFunc("/subreddit/posts", optional(s.HandleSubredditPosts()))

	mux.HandleFunc("/post", protectedReadsOptional(s, cors, s.HandlePost()))
	mux.HandleFunc("/posts/recent", optional(s.HandleRecentPosts()))

	mux.HandleFunc("/comment", protectedReadsOptional(s, cors, s.HandleComment()))
	mux.HandleFunc("/comment/replies", optional(s.HandleCommentReplies()))
	mux.HandleFunc("/comment/thread", optional(s.HandleCommentThread()))

	mux.HandleFunc("/vote", protected(s.HandleVote()))
	mux.HandleFunc("/vote/status", protected(s.HandleVoteStatus()))

	mux.HandleFunc("/ws", public(s.HandleWebSocket()))
}

// protectedReadsOptional requires auth for mutations on a mixed-method
// endpoint while leaving GET open to anonymous callers.
func protectedReadsOptional(s *Server, cors *middleware.CORSConfig, h http.HandlerFunc) http.HandlerFunc {
	authed := s.Tokens.RequireAuth(h)
	anon := s.Tokens.OptionalAuth(h)
	return middleware.ApplyCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions {
			anon(w, r)
			return
		}
		authed(w, r)
	}, cors)
}
