// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"bayou-board/internal/models"
	"bayou-board/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB *sqlx.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	return &PostgresDB{DB: db}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	return p.DB.Close()
}

// InitializeTables creates all necessary tables if they don't exist
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	// Users table
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			avatar_url VARCHAR(255) DEFAULT '',
			karma INTEGER DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	// Subreddits table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subreddits (
			id UUID PRIMARY KEY,
			name VARCHAR(50) UNIQUE NOT NULL,
			description TEXT DEFAULT '',
			icon_url VARCHAR(255) DEFAULT '',
			created_by UUID REFERENCES users(id),
			member_count INTEGER DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create subreddits table: %v", err)
	}

	// Subreddit members table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subreddit_members (
			subreddit_id UUID REFERENCES subreddits(id),
			user_id UUID REFERENCES users(id),
			joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (subreddit_id, user_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create subreddit_members table: %v", err)
	}

	// Posts table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS posts (
			id UUID PRIMARY KEY,
			title VARCHAR(300) NOT NULL,
			content TEXT DEFAULT '',
			post_type VARCHAR(10) DEFAULT 'text',
			image_url VARCHAR(2048) DEFAULT '',
			author_id UUID REFERENCES users(id),
			subreddit_id UUID REFERENCES subreddits(id),
			upvotes INTEGER DEFAULT 0,
			downvotes INTEGER DEFAULT 0,
			karma INTEGER DEFAULT 0,
			comment_count INTEGER DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create posts table: %v", err)
	}

	// Comments table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			content TEXT NOT NULL,
			author_id UUID REFERENCES users(id),
			post_id UUID REFERENCES posts(id),
			parent_id UUID REFERENCES comments(id),
			upvotes INTEGER DEFAULT 0,
			downvotes INTEGER DEFAULT 0,
			karma INTEGER DEFAULT 0,
			reply_count INTEGER DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create comments table: %v", err)
	}

	// Votes table. The composite unique index is what makes the
	// one-vote-per-user rule hold under concurrent first-time votes; the
	// application-level existence check alone has a race window.
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS votes (
			id UUID PRIMARY KEY,
			voter_id UUID REFERENCES users(id),
			target_id UUID NOT NULL,
			target_kind VARCHAR(20) NOT NULL,
			stance VARCHAR(10) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(voter_id, target_id, target_kind)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create votes table: %v", err)
	}

	return nil
}

// --- User Methods ---

// GetUser fetches a user by their ID.
func (p *PostgresDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, avatar_url, karma, created_at, updated_at FROM users WHERE id = $1`
	var user models.User
	err := p.DB.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrNotFound, "user not found", err)
		}
		return nil, utils.NewStoreError("query user by id", err)
	}

	membershipQuery := `SELECT subreddit_id FROM subreddit_members WHERE user_id = $1`
	var subredditIDs []uuid.UUID
	err = p.DB.SelectContext(ctx, &subredditIDs, membershipQuery, id)
	if err != nil {
		return nil, utils.NewStoreError("query user subreddit memberships", err)
	}
	user.Subreddits = subredditIDs

	return &user, nil
}

// GetUserByEmail fetches a user by their email address.
func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, avatar_url, karma, created_at, updated_at FROM users WHERE email = $1`
	var user models.User
	err := p.DB.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrNotFound, "user not found", err)
		}
		return nil, utils.NewStoreError("query user by email", err)
	}
	return &user, nil
}

// SaveUser inserts a new user into the database.
func (p *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, avatar_url, karma, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :avatar_url, :karma, :created_at, :updated_at)
	`
	_, err := p.DB.NamedExecContext(ctx, query, user)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewAppError(utils.ErrUserAlreadyExists, fmt.Sprintf("user already exists: %v", pqErr.Constraint), err)
		}
		return utils.NewStoreError("save user", err)
	}
	return nil
}

// UpdateUserKarma adjusts a user's karma by delta.
func (p *PostgresDB) UpdateUserKarma(ctx context.Context, id uuid.UUID, delta int) error {
	query := `UPDATE users SET karma = karma + $1, updated_at = NOW() WHERE id = $2`
	result, err := p.DB.ExecContext(ctx, query, delta, id)
	if err != nil {
		return utils.NewStoreError("update user karma", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return utils.NewAppError(utils.ErrNotFound, "user not found for karma update", nil)
	}
	return nil
}

// UpdateUserSubreddits adds or removes a subreddit subscription for a user.
func (p *PostgresDB) UpdateUserSubreddits(ctx context.Context, userID uuid.UUID, subID uuid.UUID, join bool) error {
	var err error
	if join {
		query := `INSERT INTO subreddit_members (user_id, subreddit_id, joined_at) VALUES ($1, $2, NOW()) ON CONFLICT (subreddit_id, user_id) DO NOTHING`
		_, err = p.DB.ExecContext(ctx, query, userID, subID)
	} else {
		query := `DELETE FROM subreddit_members WHERE user_id = $1 AND subreddit_id = $2`
		_, err = p.DB.ExecContext(ctx, query, userID, subID)
	}
	if err != nil {
		return utils.NewStoreError("update user subreddit membership", err)
	}
	return nil
}

// --- Subreddit Methods ---

// CreateSubreddit inserts a new subreddit record.
func (p *PostgresDB) CreateSubreddit(ctx context.Context, sub *models.Subreddit) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.Members < 0 {
		sub.Members = 0
	}

	query := `
		INSERT INTO subreddits (id, name, description, icon_url, created_by, member_count, created_at)
		VALUES (:id, :name, :description, :icon_url, :created_by, :member_count, :created_at)
	`
	_, err := p.DB.NamedExecContext(ctx, query, sub)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewAppError(utils.ErrSubredditExists, "subreddit already exists", err)
		}
		return utils.NewStoreError("create subreddit", err)
	}
	return nil
}

// GetSubredditByID fetches a subreddit by its ID.
func (p *PostgresDB) GetSubredditByID(ctx context.Context, id uuid.UUID) (*models.Subreddit, error) {
	query := `SELECT id, name, description, icon_url, created_by, member_count, created_at FROM subreddits WHERE id = $1`
	var sub models.Subreddit
	err := p.DB.GetContext(ctx, &sub, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found", err)
		}
		return nil, utils.NewStoreError("query subreddit by id", err)
	}
	return &sub, nil
}

// GetSubredditByName fetches a subreddit by its name.
func (p *PostgresDB) GetSubredditByName(ctx context.Context, name string) (*models.Subreddit, error) {
	query := `SELECT id, name, description, icon_url, created_by, member_count, created_at FROM subreddits WHERE name = $1`
	var sub models.Subreddit
	err := p.DB.GetContext(ctx, &sub, query, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found", err)
		}
		return nil, utils.NewStoreError("query subreddit by name", err)
	}
	return &sub, nil
}

// GetAllSubreddits fetches all subreddit records.
func (p *PostgresDB) GetAllSubreddits(ctx context.Context) ([]*models.Subreddit, error) {
	query := `SELECT id, name, description, icon_url, created_by, member_count, created_at FROM subreddits ORDER BY created_at DESC`
	subs := []*models.Subreddit{}
	err := p.DB.SelectContext(ctx, &subs, query)
	if err != nil {
		return nil, utils.NewStoreError("query all subreddits", err)
	}
	return subs, nil
}

// UpdateSubredditMemberCount adjusts the member_count of a subreddit.
func (p *PostgresDB) UpdateSubredditMemberCount(ctx context.Context, subID uuid.UUID, delta int) error {
	query := `UPDATE subreddits SET member_count = GREATEST(0, member_count + $1) WHERE id = $2`
	result, err := p.DB.ExecContext(ctx, query, delta, subID)
	if err != nil {
		return utils.NewStoreError("update subreddit member count", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return utils.NewAppError(utils.ErrSubredditNotFound, "subreddit not found when updating member count", nil)
	}
	return nil
}

// --- Post Methods ---

// SavePost inserts a new post.
func (p *PostgresDB) SavePost(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = post.UpdatedAt
	}
	if post.PostType == "" {
		post.PostType = models.TextPost
	}

	query := `
		INSERT INTO posts (id, title, content, post_type, image_url, author_id, subreddit_id, upvotes, downvotes, karma, comment_count, created_at, updated_at)
		VALUES (:id, :title, :content, :post_type, :image_url, :author_id, :subreddit_id, :upvotes, :downvotes, :karma, :comment_count, :created_at, :updated_at)
	`
	_, err := p.DB.NamedExecContext(ctx, query, post)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return utils.NewAppError(utils.ErrNotFound, "author or subreddit not found", err)
		}
		return utils.NewStoreError("save post", err)
	}
	return nil
}

// GetPost fetches a post by its ID, attaching the requesting user's vote
// stance when requestingUserID is non-nil.
func (p *PostgresDB) GetPost(ctx context.Context, postID uuid.UUID, requestingUserID uuid.UUID) (*models.Post, error) {
	query := `
		SELECT p.id, p.title, p.content, p.post_type, p.image_url, p.author_id, p.subreddit_id,
		       p.upvotes, p.downvotes, p.karma, p.comment_count, p.created_at, p.updated_at
		FROM posts p
		WHERE p.id = $1`
	var post models.Post
	err := p.DB.GetContext(ctx, &post, query, postID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrNotFound, "post not found", err)
		}
		return nil, utils.NewStoreError("query post by id", err)
	}

	if requestingUserID != uuid.Nil {
		vote, err := p.GetUserVote(ctx, requestingUserID, postID, models.PostTarget)
		if err == nil && vote != nil {
			stance := vote.Stance
			post.CurrentUserVote = &stance
		}
	}

	return &post, nil
}

func postSortClause(sort SortOrder) string {
	if sort == SortTop {
		return "ORDER BY p.upvotes DESC, p.created_at DESC"
	}
	return "ORDER BY p.created_at DESC"
}

// GetRecentPosts retrieves posts across all subreddits, including the
// requesting user's vote stance.
func (p *PostgresDB) GetRecentPosts(ctx context.Context, limit, offset int, sort SortOrder, requestingUserID uuid.UUID) ([]*models.Post, error) {
	query := fmt.Sprintf(`
		SELECT p.id, p.title, p.content, p.post_type, p.image_url, p.author_id, p.subreddit_id,
		       p.upvotes, p.downvotes, p.karma, p.comment_count, p.created_at, p.updated_at,
		       v.stance AS current_user_vote
		FROM posts p
		LEFT JOIN votes v ON v.target_id = p.id AND v.target_kind = 'post' AND v.voter_id = $3
		%s
		LIMIT $1 OFFSET $2
	`, postSortClause(sort))

	posts := []*models.Post{}
	err := p.DB.SelectContext(ctx, &posts, query, limit, offset, requestingUserID)
	if err != nil {
		return nil, utils.NewStoreError("query recent posts", err)
	}
	return posts, nil
}

// GetPostsBySubreddit retrieves posts for a specific subreddit with pagination.
func (p *PostgresDB) GetPostsBySubreddit(ctx context.Context, subredditID uuid.UUID, limit, offset int, sort SortOrder) ([]*models.Post, error) {
	query := fmt.Sprintf(`
		SELECT p.id, p.title, p.content, p.post_type, p.image_url, p.author_id, p.subreddit_id,
		       p.upvotes, p.downvotes, p.karma, p.comment_count, p.created_at, p.updated_at
		FROM posts p
		WHERE p.subreddit_id = $1
		%s
		LIMIT $2 OFFSET $3
	`, postSortClause(sort))

	posts := []*models.Post{}
	err := p.DB.SelectContext(ctx, &posts, query, subredditID, limit, offset)
	if err != nil {
		return nil, utils.NewStoreError("query posts by subreddit", err)
	}
	return posts, nil
}

// --- Vote Ledger ---

// CastVote applies one voter's action on one target with toggle semantics and
// returns the authoritative counter pair. The whole read-modify-write runs in
// a single transaction; a unique-index conflict on the first-vote path means
// this voter raced themselves, and the second pass lands in the flip/retract
// branch instead of failing the user action.
func (p *PostgresDB) CastVote(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind, stance models.Stance) (models.VoteCounts, error) {
	return castWithConflictRetry(func() (models.VoteCounts, error) {
		return p.castVoteTx(ctx, voterID, targetID, kind, stance)
	})
}

func (p *PostgresDB) castVoteTx(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind, stance models.Stance) (models.VoteCounts, error) {
	var counts models.VoteCounts

	targetTable, err := tableForKind(kind)
	if err != nil {
		return counts, err
	}

	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return counts, utils.NewStoreError("begin vote transaction", err)
	}
	defer tx.Rollback() // no-op once committed

	// FOR UPDATE locks the ledger row so a same-voter double-submit blocks
	// here and re-reads the committed stance, landing in the correct branch
	// instead of double-applying deltas. A row deleted under us falls into
	// the first-vote branch, which the unique index already guards.
	var existing models.Vote
	getVoteQuery := `SELECT id, voter_id, target_id, target_kind, stance, created_at FROM votes WHERE voter_id = $1 AND target_id = $2 AND target_kind = $3 FOR UPDATE`
	err = tx.GetContext(ctx, &existing, getVoteQuery, voterID, targetID, kind)
	hasVote := err == nil
	if err != nil && err != sql.ErrNoRows {
		return counts, utils.NewStoreError("check existing vote", err)
	}

	var upDelta, downDelta int
	switch {
	case !hasVote:
		// First vote: the unique index closes the check-then-create race.
		insertQuery := `INSERT INTO votes (id, voter_id, target_id, target_kind, stance, created_at) VALUES ($1, $2, $3, $4, $5, NOW())`
		_, err = tx.ExecContext(ctx, insertQuery, uuid.New(), voterID, targetID, kind, stance)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
				return counts, utils.NewAppError(utils.ErrDuplicate, "vote already recorded", err)
			}
			return counts, utils.NewStoreError("insert vote", err)
		}
		if stance == models.Upvote {
			upDelta = 1
		} else {
			downDelta = 1
		}

	case existing.Stance == stance:
		// Toggle off: repeating the held stance retracts the vote.
		_, err = tx.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, existing.ID)
		if err != nil {
			return counts, utils.NewStoreError("delete vote", err)
		}
		if stance == models.Upvote {
			upDelta = -1
		} else {
			downDelta = -1
		}

	default:
		// Flip: mutate the record in place rather than delete+create.
		_, err = tx.ExecContext(ctx, `UPDATE votes SET stance = $1, created_at = NOW() WHERE id = $2`, stance, existing.ID)
		if err != nil {
			return counts, utils.NewStoreError("update vote stance", err)
		}
		if stance == models.Upvote {
			upDelta, downDelta = 1, -1
		} else {
			upDelta, downDelta = -1, 1
		}
	}

	// Counter update and floor happen in one statement; SET expressions all
	// read the pre-update column values.
	updateQuery := fmt.Sprintf(`
		UPDATE %s SET
			upvotes = GREATEST(0, upvotes + $1),
			downvotes = GREATEST(0, downvotes + $2),
			karma = GREATEST(0, upvotes + $1) - GREATEST(0, downvotes + $2),
			updated_at = NOW()
		WHERE id = $3
		RETURNING upvotes, downvotes
	`, targetTable)
	err = tx.GetContext(ctx, &counts, updateQuery, upDelta, downDelta, targetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return counts, utils.NewAppError(utils.ErrNotFound, string(kind)+" not found", nil)
		}
		return counts, utils.NewStoreError("update target counters", err)
	}

	// Author karma follows the target's score; a failure here is logged, not
	// surfaced, since the vote itself already holds.
	if karmaDelta := upDelta - downDelta; karmaDelta != 0 {
		authorKarmaQuery := fmt.Sprintf(`UPDATE users SET karma = karma + $1, updated_at = NOW() WHERE id = (SELECT author_id FROM %s WHERE id = $2)`, targetTable)
		if _, err := tx.ExecContext(ctx, authorKarmaQuery, karmaDelta, targetID); err != nil {
			slog.Warn("failed to update author karma", "target", targetID, "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return counts, utils.NewStoreError("commit vote transaction", err)
	}
	return counts, nil
}

// GetUserVote returns the voter's current vote on a target, or nil if none.
func (p *PostgresDB) GetUserVote(ctx context.Context, voterID, targetID uuid.UUID, kind models.TargetKind) (*models.Vote, error) {
	query := `SELECT id, voter_id, target_id, target_kind, stance, created_at FROM votes WHERE voter_id = $1 AND target_id = $2 AND target_kind = $3`
	var vote models.Vote
	err := p.DB.GetContext(ctx, &vote, query, voterID, targetID, kind)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, utils.NewStoreError("query user vote", err)
	}
	return &vote, nil
}

func tableForKind(kind models.TargetKind) (string, error) {
	switch kind {
	case models.PostTarget:
		return "posts", nil
	case models.CommentTarget:
		return "comments", nil
	default:
		return "", utils.NewValidationError("unknown target kind " + string(kind))
	}
}

// --- Comment Tree ---

// CreateComment inserts the comment and bumps the parent reply_count (for a
// reply) or the post comment_count (for a top-level comment) in the same
// transaction, so the denormalized counters cannot drift from the rows.
func (p *PostgresDB) CreateComment(ctx context.Context, comment *models.Comment) error {
	now := time.Now()
	comment.UpdatedAt = now
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}

	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return utils.NewStoreError("begin comment transaction", err)
	}
	defer tx.Rollback()

	if comment.ParentID != nil {
		var parentPostID uuid.UUID
		err = tx.GetContext(ctx, &parentPostID, `SELECT post_id FROM comments WHERE id = $1`, *comment.ParentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return utils.NewAppError(utils.ErrNotFound, "parent comment not found", err)
			}
			return utils.NewStoreError("query parent comment", err)
		}
		if parentPostID != comment.PostID {
			return utils.NewValidationError("parent comment belongs to a different post")
		}
	}

	insertQuery := `
		INSERT INTO comments (id, content, author_id, post_id, parent_id, upvotes, downvotes, karma, reply_count, created_at, updated_at)
		VALUES (:id, :content, :author_id, :post_id, :parent_id, :upvotes, :downvotes, :karma, :reply_count, :created_at, :updated_at)
	`
	_, err = tx.NamedExecContext(ctx, insertQuery, comment)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return utils.NewAppError(utils.ErrNotFound, "post or author not found", err)
		}
		return utils.NewStoreError("insert comment", err)
	}

	if comment.ParentID == nil {
		// Only top-level comments count toward the post's displayed total.
		result, err := tx.ExecContext(ctx, `UPDATE posts SET comment_count = comment_count + 1, updated_at = NOW() WHERE id = $1`, comment.PostID)
		if err != nil {
			return utils.NewStoreError("increment post comment_count", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return utils.NewAppError(utils.ErrNotFound, "post not found", nil)
		}
	} else {
		_, err := tx.ExecContext(ctx, `UPDATE comments SET reply_count = reply_count + 1, updated_at = NOW() WHERE id = $1`, *comment.ParentID)
		if err != nil {
			return utils.NewStoreError("increment parent reply_count", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return utils.NewStoreError("commit comment transaction", err)
	}
	return nil
}

// GetComment fetches a single comment by its ID.
func (p *PostgresDB) GetComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	query := `
		SELECT id, content, author_id, post_id, parent_id, upvotes, downvotes, karma, reply_count, created_at, updated_at
		FROM comments WHERE id = $1
	`
	var comment models.Comment
	err := p.DB.GetContext(ctx, &comment, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewAppError(utils.ErrNotFound, "comment not found", err)
		}
		return nil, utils.NewStoreError("query comment by id", err)
	}
	return &comment, nil
}

// ListTopLevelComments returns one page of parentless comments for a post,
// newest first, plus the total for restartable pagination.
func (p *PostgresDB) ListTopLevelComments(ctx context.Context, postID uuid.UUID, limit, offset int) (*models.CommentPage, error) {
	query := `
		SELECT id, content, author_id, post_id, parent_id, upvotes, downvotes, karma, reply_count, created_at, updated_at
		FROM comments
		WHERE post_id = $1 AND parent_id IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	comments := []*models.Comment{}
	if err := p.DB.SelectContext(ctx, &comments, query, postID, limit, offset); err != nil {
		return nil, utils.NewStoreError("query top-level comments", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM comments WHERE post_id = $1 AND parent_id IS NULL`
	if err := p.DB.GetContext(ctx, &total, countQuery, postID); err != nil {
		return nil, utils.NewStoreError("count top-level comments", err)
	}

	return &models.CommentPage{Comments: comments, Total: total}, nil
}

// ListReplies returns one page of direct children of a comment, newest
// first. limit <= 0 returns all replies.
func (p *PostgresDB) ListReplies(ctx context.Context, parentID uuid.UUID, limit, offset int) (*models.CommentPage, error) {
	query := `
		SELECT id, content, author_id, post_id, parent_id, upvotes, downvotes, karma, reply_count, created_at, updated_at
		FROM comments
		WHERE parent_id = $1
		ORDER BY created_at DESC
	`
	args := []any{parentID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	comments := []*models.Comment{}
	if err := p.DB.SelectContext(ctx, &comments, query, args...); err != nil {
		return nil, utils.NewStoreError("query replies", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM comments WHERE parent_id = $1`
	if err := p.DB.GetContext(ctx, &total, countQuery, parentID); err != nil {
		return nil, utils.NewStoreError("count replies", err)
	}

	return &models.CommentPage{Comments: comments, Total: total}, nil
}
