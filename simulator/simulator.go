// Package simulator drives load against a running engine over HTTP. It
// registers a user population, spreads them across communities, then
// generates Zipf-distributed posting, commenting and voting traffic.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type SimConfig struct {
	NumUsers         int
	NumSubreddits    int
	SimulationTime   time.Duration
	PostFrequency    float64 // posts per user per hour
	CommentFrequency float64 // comments per user per hour
	VoteFrequency    float64 // votes per user per hour
	ZipfS            float64 // skew of target popularity
	EngineURL        string
}

type Stats struct {
	mu              sync.RWMutex
	StartTime       time.Time
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalPosts      int64
	TotalComments   int64
	TotalVotes      int64
	latencies       []time.Duration
}

func (s *Stats) record(latency time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
	if ok {
		s.SuccessRequests++
	} else {
		s.FailedRequests++
	}
	s.latencies = append(s.latencies, latency)
}

// AverageLatency is the mean over all recorded requests.
func (s *Stats) AverageLatency() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range s.latencies {
		total += l
	}
	return total / time.Duration(len(s.latencies))
}

// SimulatedUser is one registered account with its session token and the
// content it has produced so far.
type SimulatedUser struct {
	ID       uuid.UUID
	Username string
	Email    string
	Token    string
	Posts    []uuid.UUID
	Comments []uuid.UUID
}

type Simulator struct {
	config     SimConfig
	stats      *Stats
	users      []*SimulatedUser
	subreddits []uuid.UUID
	posts      []uuid.UUID
	comments   []uuid.UUID
	client     *http.Client
	rng        *rand.Rand
	mu         sync.RWMutex
}

func New(config SimConfig) *Simulator {
	return &Simulator{
		config: config,
		stats:  &Stats{StartTime: time.Now()},
		client: &http.Client{Timeout: 10 * time.Second},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) Stats() *Stats {
	return s.stats
}

// Run executes the full simulation: population setup, then concurrent
// activity until the context expires.
func (s *Simulator) Run(ctx context.Context) error {
	slog.Info("starting simulation",
		"users", s.config.NumUsers,
		"subreddits", s.config.NumSubreddits,
		"duration", s.config.SimulationTime)

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.runActivities(ctx)
	}()
	go func() {
		defer wg.Done()
		s.reportProgress(ctx)
	}()
	wg.Wait()
	return nil
}

func (s *Simulator) initialize(ctx context.Context) error {
	run := time.Now().UnixNano()

	slog.Info("creating users", "count", s.config.NumUsers)
	for i := 0; i < s.config.NumUsers; i++ {
		user, err := s.registerUser(ctx, fmt.Sprintf("sim_user_%d_%d", run, i))
		if err != nil {
			return err
		}
		s.users = append(s.users, user)
	}

	slog.Info("creating subreddits", "count", s.config.NumSubreddits)
	for i := 0; i < s.config.NumSubreddits; i++ {
		creator := s.users[i%len(s.users)]
		subID, err := s.createSubreddit(ctx, creator, fmt.Sprintf("sim_sub_%d_%d", run, i))
		if err != nil {
			return err
		}
		s.subreddits = append(s.subreddits, subID)
	}

	// Seed one post per subreddit so votes and comments have targets
	// immediately.
	for _, subID := range s.subreddits {
		author := s.users[s.rng.Intn(len(s.users))]
		if postID, err := s.createPost(ctx, author, subID); err == nil {
			s.mu.Lock()
			s.posts = append(s.posts, postID)
			s.mu.Unlock()
		}
	}
	return nil
}

// post sends an authenticated JSON request and decodes the response into out.
func (s *Simulator) post(ctx context.Context, token, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.EngineURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.stats.record(latency, false)
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	s.stats.record(latency, ok)
	if !ok {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, string(data))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Simulator) registerUser(ctx context.Context, username string) (*SimulatedUser, error) {
	email := username + "@sim.example.com"

	err := s.post(ctx, "", "/user/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "simulation-pass",
	}, nil)
	if err != nil {
		return nil, err
	}

	var login struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	err = s.post(ctx, "", "/user/login", map[string]string{
		"email":    email,
		"password": "simulation-pass",
	}, &login)
	if err != nil {
		return nil, err
	}

	return &SimulatedUser{
		ID:       login.User.ID,
		Username: username,
		Email:    email,
		Token:    login.Token,
	}, nil
}

func (s *Simulator) createSubreddit(ctx context.Context, creator *SimulatedUser, name string) (uuid.UUID, error) {
	var sub struct {
		ID uuid.UUID `json:"id"`
	}
	err := s.post(ctx, creator.Token, "/subreddit", map[string]string{
		"name":        name,
		"description": "simulated community",
	}, &sub)
	return sub.ID, err
}

func (s *Simulator) reportProgress(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.stats.mu.RLock()
			requests, failed := s.stats.TotalRequests, s.stats.FailedRequests
			s.stats.mu.RUnlock()
			posts := atomic.LoadInt64(&s.stats.TotalPosts)
			comments := atomic.LoadInt64(&s.stats.TotalComments)
			votes := atomic.LoadInt64(&s.stats.TotalVotes)
			slog.Info("simulation progress",
				"requests", requests,
				"failed", failed,
				"posts", posts,
				"comments", comments,
				"votes", votes,
				"avg_latency", s.stats.AverageLatency())
		}
	}
}
