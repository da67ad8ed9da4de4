package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	Username       string      `json:"username" db:"username"`
	Email          string      `json:"email" db:"email"`
	HashedPassword string      `json:"-" db:"password_hash"`
	AvatarURL      string      `json:"avatarUrl,omitempty" db:"avatar_url"`
	Karma          int         `json:"karma" db:"karma"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`
	Subreddits     []uuid.UUID `json:"subreddits"`
}
