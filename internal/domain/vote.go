package domain

import "time"

// VoteChoice is a thumbs-up or thumbs-down on an activity.
type VoteChoice string

const (
	VoteUp   VoteChoice = "up"
	VoteDown VoteChoice = "down"
)

// Vote is one user's current choice on one activity. The gateway enforces
// uniqueness on (ActivityID, UserID) via upsert; the store enforces the same
// invariant in memory, so a user can never hold two votes on one activity.
type Vote struct {
	ID         string
	ActivityID string
	UserID     string
	Choice     VoteChoice
	CreatedAt  time.Time
}
