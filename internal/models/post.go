package models

import (
	"time"

	"github.com/google/uuid"
)

// PostType distinguishes how a post's body should be interpreted.
type PostType string

const (
	TextPost  PostType = "text"
	ImagePost PostType = "image"
	LinkPost  PostType = "link"
)

// Valid reports whether the type is one of the known post types.
func (t PostType) Valid() bool {
	return t == TextPost || t == ImagePost || t == LinkPost
}

type Post struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Content     string    `json:"content" db:"content"`
	PostType    PostType  `json:"postType" db:"post_type"`
	ImageURL    string    `json:"imageUrl,omitempty" db:"image_url"` // opaque object-store reference
	AuthorID    uuid.UUID `json:"authorId" db:"author_id"`
	SubredditID uuid.UUID `json:"subredditId" db:"subreddit_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Upvotes     int       `json:"upvotes" db:"upvotes"`
	Downvotes   int       `json:"downvotes" db:"downvotes"`
	Karma       int       `json:"karma" db:"karma"`
	// CommentCount counts top-level comments only; replies are tracked on
	// their parent comment's ReplyCount.
	CommentCount int `json:"commentCount" db:"comment_count"`
	// CurrentUserVote is the requesting user's stance, when one was asked for.
	CurrentUserVote *Stance `json:"currentUserVote,omitempty" db:"current_user_vote"`
}
