package models

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Content  string    `json:"content" db:"content"`
	AuthorID uuid.UUID `json:"authorId" db:"author_id"`
	PostID   uuid.UUID `json:"postId" db:"post_id"`
	// ParentID is nil for top-level comments. The parent chain is acyclic by
	// construction: a comment is only ever created under a parent that
	// already exists.
	ParentID        *uuid.UUID `json:"parentId,omitempty" db:"parent_id"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time  `json:"updatedAt" db:"updated_at"`
	Upvotes         int        `json:"upvotes" db:"upvotes"`
	Downvotes       int        `json:"downvotes" db:"downvotes"`
	Karma           int        `json:"karma" db:"karma"`
	ReplyCount      int        `json:"replyCount" db:"reply_count"`
	CurrentUserVote *Stance    `json:"currentUserVote,omitempty" db:"current_user_vote"`
}

// IsTopLevel reports whether the comment is attached directly to its post.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// CommentPage is one page of a comment listing together with the total
// number of matching rows, so callers can build restartable pagination.
type CommentPage struct {
	Comments []*Comment `json:"comments"`
	Total    int        `json:"total"`
}
