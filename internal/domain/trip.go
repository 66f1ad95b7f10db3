package domain

import "time"

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripPlanned  TripStatus = "planned"
	TripLocked   TripStatus = "locked"
	TripArchived TripStatus = "archived"
)

// Trip is the top-level planning unit; activities and messages belong to a
// trip. End date must not precede start date — the UI enforces this before
// calling the session layer.
type Trip struct {
	ID          string
	OwnerID     string
	Title       string
	Destination string
	StartDate   time.Time // date only, midnight UTC
	EndDate     time.Time // date only, midnight UTC
	Status      TripStatus
	BudgetCents *int64 // nil when no budget is set
	Currency    string // empty when no budget is set
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
