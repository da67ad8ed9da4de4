// internal/database/database.go
package database

import (
	"context"
	"fmt"

	"bayou-board/internal/config"
	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/google/uuid"
)

// SortOrder selects how post listings are ranked.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortTop    SortOrder = "top"
)

// ParseSortOrder maps a query-string value onto a known sort, defaulting to
// newest. "hot" is accepted as an alias for top.
func ParseSortOrder(s string) SortOrder {
	switch s {
	case "top", "hot":
		return SortTop
	default:
		return SortNewest
	}
}

// castWithConflictRetry runs one cast attempt and, when the store reports a
// duplicate ledger record, retries exactly once. The conflict means this
// voter raced themselves on the first-vote path; the second attempt re-reads
// the committed record and lands in the flip/retract branch. A conflict on
// the retry as well is surfaced to the caller.
func castWithConflictRetry(attempt func() (models.VoteCounts, error)) (models.VoteCounts, error) {
	counts, err := attempt()
	if err != nil && utils.IsErrorCode(err, utils.ErrDuplicate) {
		return attempt()
	}
	return counts, err
}

// DBAdapter defines the common interface for store operations. Three
// implementations exist: PostgresDB (transactions + unique index),
// MongoDB (conditional writes + unique index) and MemoryDB (table lock;
// used in tests and for local development).
//
// Counter invariants the adapters must uphold:
//   - upvotes/downvotes on a target always equal the count of live vote
//     records with the corresponding stance, and never go negative;
//   - at most one vote exists per (voter, target, kind);
//   - post.comment_count counts top-level comments only;
//   - comment.reply_count counts direct children only.
type DBAdapter interface {
	// Connection
	Close(ctx context.Context) error

	// User methods
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	UpdateUserKarma(ctx context.Context, id uuid.UUID, delta int) error
	UpdateUserSubreddits(ctx context.Context, userID uuid.UUID, subID uuid.UUID, join bool) error

	// Subreddit methods
	CreateSubreddit(ctx context.Context, sub *models.Subreddit) error
	GetSubredditByID(ctx context.Context, id uuid.UUID) (*models.Subreddit, error)
	GetSubredditByName(ctx context.Context, name string) (*models.Subreddit, error)
	GetAllSubreddits(ctx context.Context) ([]*models.Subreddit, error)
	UpdateSubredditMemberCount(ctx context.Context, subID uuid.UUID, delta int) error

	// Post methods
	SavePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID uuid.UUID, requestingUserID uuid.UUID) (*models.Post, error)
	GetRecentPosts(ctx context.Context, limit, offset int, sort SortOrder, requestingUserID uuid.UUID) ([]*models.Post, error)
	GetPostsBySubreddit(ctx context.Context, subredditID uuid.UUID, limit, offset int, sort SortOrder) ([]*models.Post, error)

	// Vote ledger
	//
	// CastVote applies toggle semantics for one (voter, target) pair: first
	// vote creates the record, repeating the same stance retracts it,
	// casting the opposite stance flips it in place. The returned counts are
	// the authoritative post-update values.
	CastVote(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind, stance models.Stance) (models.VoteCounts, error)
	GetUserVote(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind) (*models.Vote, error)

	// Comment tree
	//
	// CreateComment inserts the comment and, in the same atomic unit, bumps
	// the parent comment's reply_count (for replies) or the post's
	// comment_count (for top-level comments).
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListTopLevelComments(ctx context.Context, postID uuid.UUID, limit, offset int) (*models.CommentPage, error)
	ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) (*models.CommentPage, error)
}

// NewAdapter builds the store adapter selected by configuration.
func NewAdapter(ctx context.Context, cfg *config.DatabaseConfig) (DBAdapter, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgresDB(cfg.URI)
	case "mongo":
		return NewMongoDB(ctx, cfg.URI, cfg.Name)
	case "memory":
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}
