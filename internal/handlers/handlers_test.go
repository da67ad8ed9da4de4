package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bayou-board/internal/database"
	"bayou-board/internal/engine"
	"bayou-board/internal/middleware"
	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *http.ServeMux) {
	t.Helper()

	db := database.NewMemoryDB()
	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, db, metrics, nil)
	tokens := middleware.NewTokenAuthority("test-secret")

	server := NewServer(system, eng, db, metrics, tokens, nil)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux, middleware.DefaultCORSConfig(nil))
	return server, mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), "body: %s", w.Body.String())
	return v
}

func registerAndLogin(t *testing.T, mux *http.ServeMux, username string) (*models.User, string) {
	t.Helper()

	w := doJSON(t, mux, http.MethodPost, "/user/register", "", &RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, "register body: %s", w.Body.String())

	w = doJSON(t, mux, http.MethodPost, "/user/login", "", &LoginRequest{
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, "login body: %s", w.Body.String())
	login := decode[*LoginResponse](t, w)
	require.NotEmpty(t, login.Token)
	return login.User, login.Token
}

func TestIntegrationFlow(t *testing.T) {
	_, mux := newTestServer(t)

	// Two users
	poster, posterToken := registerAndLogin(t, mux, "poster")
	_, voterToken := registerAndLogin(t, mux, "voter")

	// Poster creates a community
	w := doJSON(t, mux, http.MethodPost, "/subreddit", posterToken, &CreateSubredditRequest{
		Name:        "bayou_general",
		Description: "General discussion",
	})
	require.Equal(t, http.StatusCreated, w.Code, "subreddit body: %s", w.Body.String())
	subreddit := decode[*models.Subreddit](t, w)
	assert.Equal(t, poster.ID, subreddit.CreatorID)

	// Poster creates a post
	w = doJSON(t, mux, http.MethodPost, "/post", posterToken, &CreatePostRequest{
		Title:       "First post",
		Content:     "hello bayou",
		SubredditID: subreddit.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, "post body: %s", w.Body.String())
	post := decode[*models.Post](t, w)

	// Voter upvotes: first cast creates
	w = doJSON(t, mux, http.MethodPost, "/vote", voterToken, &VoteRequest{
		TargetID:   post.ID.String(),
		TargetKind: "post",
		Stance:     "up",
	})
	require.Equal(t, http.StatusOK, w.Code, "vote body: %s", w.Body.String())
	voteResult := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(1), voteResult["upvotes"])
	assert.Equal(t, "up", voteResult["userVote"])

	// Same stance again retracts
	w = doJSON(t, mux, http.MethodPost, "/vote", voterToken, &VoteRequest{
		TargetID:   post.ID.String(),
		TargetKind: "post",
		Stance:     "up",
	})
	require.Equal(t, http.StatusOK, w.Code)
	voteResult = decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(0), voteResult["upvotes"])
	assert.Nil(t, voteResult["userVote"])

	// Opposite stance after retraction
	w = doJSON(t, mux, http.MethodPost, "/vote", voterToken, &VoteRequest{
		TargetID:   post.ID.String(),
		TargetKind: "post",
		Stance:     "down",
	})
	require.Equal(t, http.StatusOK, w.Code)
	voteResult = decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(1), voteResult["downvotes"])

	// Voter comments, poster replies
	w = doJSON(t, mux, http.MethodPost, "/comment", voterToken, &CreateCommentRequest{
		Content: "nice post",
		PostID:  post.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, "comment body: %s", w.Body.String())
	comment := decode[*models.Comment](t, w)

	w = doJSON(t, mux, http.MethodPost, "/comment", posterToken, &CreateCommentRequest{
		Content:  "thanks",
		PostID:   post.ID.String(),
		ParentID: comment.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	reply := decode[*models.Comment](t, w)
	require.NotNil(t, reply.ParentID)

	// Top-level listing: one enriched comment with the author resolved
	w = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/comment?postId=%s", post.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[*CommentPageResponse](t, w)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, "voter", page.Comments[0].Author.Username)
	assert.Equal(t, 1, page.Comments[0].ReplyCount)

	// Post reflects one top-level comment and the voter's stance
	w = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/post?id=%s", post.ID), voterToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	enrichedPost := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(1), enrichedPost["commentCount"])
	assert.Equal(t, "down", enrichedPost["currentUserVote"])
}

func TestVoteRequiresAuthentication(t *testing.T) {
	_, mux := newTestServer(t)

	w := doJSON(t, mux, http.MethodPost, "/vote", "", &VoteRequest{
		TargetID:   "00000000-0000-0000-0000-000000000000",
		TargetKind: "post",
		Stance:     "up",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVoteValidationErrorsMapToBadRequest(t *testing.T) {
	_, mux := newTestServer(t)
	_, token := registerAndLogin(t, mux, "someone")

	w := doJSON(t, mux, http.MethodPost, "/vote", token, &VoteRequest{
		TargetID:   "not-a-uuid",
		TargetKind: "post",
		Stance:     "up",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown stance flows through the actor and comes back as invalid input
	_, posterToken := registerAndLogin(t, mux, "poster2")
	wSub := doJSON(t, mux, http.MethodPost, "/subreddit", posterToken, &CreateSubredditRequest{Name: "validsub"})
	require.Equal(t, http.StatusCreated, wSub.Code)
	sub := decode[*models.Subreddit](t, wSub)

	wPost := doJSON(t, mux, http.MethodPost, "/post", posterToken, &CreatePostRequest{
		Title: "t", SubredditID: sub.ID.String(),
	})
	require.Equal(t, http.StatusCreated, wPost.Code)
	post := decode[*models.Post](t, wPost)

	w = doJSON(t, mux, http.MethodPost, "/vote", token, &VoteRequest{
		TargetID:   post.ID.String(),
		TargetKind: "post",
		Stance:     "sideways",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, mux := newTestServer(t)
	registerAndLogin(t, mux, "dupe")

	w := doJSON(t, mux, http.MethodPost, "/user/register", "", &RegisterRequest{
		Username: "dupe2",
		Email:    "dupe@example.com",
		Password: "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	_, mux := newTestServer(t)

	w := doJSON(t, mux, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "healthy", body["status"])
}
