package models

import (
	"time"

	"github.com/google/uuid"
)

// TargetKind identifies what a vote is attached to.
type TargetKind string

const (
	PostTarget    TargetKind = "post"
	CommentTarget TargetKind = "comment"
)

// Valid reports whether the kind is one of the known target kinds.
func (k TargetKind) Valid() bool {
	return k == PostTarget || k == CommentTarget
}

// Stance is the direction of a vote.
type Stance string

const (
	Upvote   Stance = "up"
	Downvote Stance = "down"
)

// Valid reports whether the stance is one of the known directions.
func (s Stance) Valid() bool {
	return s == Upvote || s == Downvote
}

// Opposite returns the flipped stance.
func (s Stance) Opposite() Stance {
	if s == Upvote {
		return Downvote
	}
	return Upvote
}

// Vote records one user's current stance on one target. At most one Vote
// exists per (voter, target, kind) tuple; the store adapters enforce this
// with a composite unique index.
type Vote struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	VoterID    uuid.UUID  `json:"voterId" db:"voter_id"`
	TargetID   uuid.UUID  `json:"targetId" db:"target_id"`
	TargetKind TargetKind `json:"targetKind" db:"target_kind"`
	Stance     Stance     `json:"stance" db:"stance"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// VoteCounts is the authoritative counter pair returned by a vote cast, so
// callers can render without a second read.
type VoteCounts struct {
	Upvotes   int `json:"upvotes" db:"upvotes"`
	Downvotes int `json:"downvotes" db:"downvotes"`
}

// Karma is the conventional score derived from the counter pair.
func (c VoteCounts) Karma() int {
	return c.Upvotes - c.Downvotes
}
