package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// perUserInterval converts an events-per-user-per-hour rate into the delay
// between events across the whole population.
func (s *Simulator) perUserInterval(frequency float64) time.Duration {
	if frequency <= 0 || len(s.users) == 0 {
		return time.Hour
	}
	eventsPerHour := frequency * float64(len(s.users))
	return time.Duration(float64(time.Hour) / eventsPerHour)
}

// runActivities drives the three traffic generators until ctx expires.
func (s *Simulator) runActivities(ctx context.Context) {
	var wg sync.WaitGroup

	generators := []struct {
		name     string
		interval time.Duration
		fire     func(context.Context)
	}{
		{"posts", s.perUserInterval(s.config.PostFrequency), s.firePost},
		{"comments", s.perUserInterval(s.config.CommentFrequency), s.fireComment},
		{"votes", s.perUserInterval(s.config.VoteFrequency), s.fireVote},
	}

	for _, gen := range generators {
		gen := gen
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(gen.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					gen.fire(ctx)
				}
			}
		}()
	}
	wg.Wait()
}

func (s *Simulator) randomUser() *SimulatedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[s.rng.Intn(len(s.users))]
}

// zipfPick selects an index with popularity skew: low indexes are picked far
// more often, mimicking hot posts absorbing most of the votes.
func (s *Simulator) zipfPick(n int) int {
	if n <= 1 {
		return 0
	}
	zipf := rand.NewZipf(s.rng, s.config.ZipfS, 1, uint64(n-1))
	return int(zipf.Uint64())
}

func (s *Simulator) firePost(ctx context.Context) {
	user := s.randomUser()

	s.mu.RLock()
	subID := s.subreddits[s.rng.Intn(len(s.subreddits))]
	s.mu.RUnlock()

	postID, err := s.createPost(ctx, user, subID)
	if err != nil {
		slog.Debug("simulated post failed", "user", user.Username, "error", err)
		return
	}

	s.mu.Lock()
	s.posts = append(s.posts, postID)
	user.Posts = append(user.Posts, postID)
	s.mu.Unlock()
	atomic.AddInt64(&s.stats.TotalPosts, 1)
}

func (s *Simulator) createPost(ctx context.Context, user *SimulatedUser, subID uuid.UUID) (uuid.UUID, error) {
	var post struct {
		ID uuid.UUID `json:"id"`
	}
	err := s.post(ctx, user.Token, "/post", map[string]string{
		"title":       fmt.Sprintf("%s thoughts at %d", user.Username, time.Now().UnixNano()),
		"content":     "simulated post body",
		"subredditId": subID.String(),
	}, &post)
	return post.ID, err
}

func (s *Simulator) fireComment(ctx context.Context) {
	user := s.randomUser()

	s.mu.RLock()
	if len(s.posts) == 0 {
		s.mu.RUnlock()
		return
	}
	postID := s.posts[s.zipfPick(len(s.posts))]

	// A third of comments are replies when there is something to reply to.
	var parentID *uuid.UUID
	if len(s.comments) > 0 && s.rng.Float64() < 0.33 {
		id := s.comments[s.zipfPick(len(s.comments))]
		parentID = &id
	}
	s.mu.RUnlock()

	body := map[string]string{
		"content": "simulated comment",
		"postId":  postID.String(),
	}
	if parentID != nil {
		body["parentId"] = parentID.String()
	}

	var comment struct {
		ID     uuid.UUID `json:"id"`
		PostID uuid.UUID `json:"postId"`
	}
	if err := s.post(ctx, user.Token, "/comment", body, &comment); err != nil {
		// Replies race with comment creation on other posts; a mismatched
		// parent is rejected and simply retried as a fresh top-level comment
		// on the next tick.
		slog.Debug("simulated comment failed", "user", user.Username, "error", err)
		return
	}

	s.mu.Lock()
	if comment.PostID == postID && parentID == nil {
		s.comments = append(s.comments, comment.ID)
	}
	user.Comments = append(user.Comments, comment.ID)
	s.mu.Unlock()
	atomic.AddInt64(&s.stats.TotalComments, 1)
}

func (s *Simulator) fireVote(ctx context.Context) {
	user := s.randomUser()

	s.mu.RLock()
	if len(s.posts) == 0 {
		s.mu.RUnlock()
		return
	}
	targetID := s.posts[s.zipfPick(len(s.posts))]
	targetKind := "post"
	if len(s.comments) > 0 && s.rng.Float64() < 0.4 {
		targetID = s.comments[s.zipfPick(len(s.comments))]
		targetKind = "comment"
	}
	s.mu.RUnlock()

	stance := "up"
	if s.rng.Float64() < 0.25 {
		stance = "down"
	}

	err := s.post(ctx, user.Token, "/vote", map[string]string{
		"targetId":   targetID.String(),
		"targetKind": targetKind,
		"stance":     stance,
	}, nil)
	if err != nil {
		slog.Debug("simulated vote failed", "user", user.Username, "error", err)
		return
	}
	atomic.AddInt64(&s.stats.TotalVotes, 1)
}
