package domain

import "time"

// ActivityStatus is the voting outcome state of a proposed activity.
type ActivityStatus string

const (
	ActivityProposed  ActivityStatus = "proposed"
	ActivityConfirmed ActivityStatus = "confirmed"
	ActivityRejected  ActivityStatus = "rejected"
)

// ActivitySource records how an activity entered the itinerary.
type ActivitySource string

const (
	SourceManual ActivitySource = "manual"
	SourceAI     ActivitySource = "ai"
	SourceImport ActivitySource = "import"
)

// Activity is a proposed itinerary item belonging to exactly one trip.
// Activities are never hard-deleted; removal is a soft delete at the gateway
// and a plain removal from the in-memory collection.
type Activity struct {
	ID             string
	TripID         string
	ItineraryDayID string // empty when not scheduled onto a day
	Title          string
	Description    string // empty when unset
	Category       string // empty when unset
	StartTime      *TimeValue
	EndTime        *TimeValue
	CostCents      *int64 // nil when unknown, never zero-for-missing
	Currency       string
	Lat            *float64
	Lon            *float64
	Status         ActivityStatus
	Source         ActivitySource
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ItineraryDay is one dated slot of a trip's itinerary. Activities reference
// a day by id; days are read-only in this client.
type ItineraryDay struct {
	ID          string
	ItineraryID string
	DayIndex    int
	Date        time.Time
}
