package gateway

import "time"

// Row types mirror the gateway schema one to one. Nullable columns are
// pointers; "unset" is nil, never a zero value. DATE columns travel as
// "2006-01-02" strings and TIME columns as "15:04:05" strings, matching the
// wire format the changefeed delivers. Only the mapper converts these shapes
// into domain entities.

// ProfileRow is a row of the profiles table.
type ProfileRow struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url"`
	Locale      *string    `json:"locale"`
	Timezone    *string    `json:"timezone"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// TripRow is a row of the trips table.
type TripRow struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Title           string     `json:"title"`
	DestinationText string     `json:"destination_text"`
	StartDate       string     `json:"start_date"` // DATE
	EndDate         string     `json:"end_date"`   // DATE
	Status          string     `json:"status"`
	BudgetCents     *int64     `json:"budget_cents"`
	Currency        *string    `json:"currency"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at"`
}

// TripMemberRow is a row of the trip_members table.
type TripMemberRow struct {
	ID        string     `json:"id"`
	TripID    string     `json:"trip_id"`
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	InvitedBy *string    `json:"invited_by"`
	JoinedAt  time.Time  `json:"joined_at"`
	RemovedAt *time.Time `json:"removed_at"`
}

// ItineraryRow is a row of the itineraries table; days hang off an
// itinerary, which hangs off a trip.
type ItineraryRow struct {
	ID            string     `json:"id"`
	TripID        string     `json:"trip_id"`
	Version       int        `json:"version"`
	Title         *string    `json:"title"`
	GeneratedByAI bool       `json:"generated_by_ai"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at"`
}

// ItineraryDayRow is a row of the itinerary_days table.
type ItineraryDayRow struct {
	ID          string     `json:"id"`
	ItineraryID string     `json:"itinerary_id"`
	DayIndex    int        `json:"day_index"`
	Date        string     `json:"date"` // DATE
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// ActivityRow is a row of the activities table. StartTime and EndTime may be
// either a bare TIME ("10:00:00") or a full RFC 3339 timestamp; the mapper
// keeps the distinction.
type ActivityRow struct {
	ID             string     `json:"id"`
	TripID         string     `json:"trip_id"`
	ItineraryDayID *string    `json:"itinerary_day_id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Category       *string    `json:"category"`
	StartTime      *string    `json:"start_time"`
	EndTime        *string    `json:"end_time"`
	CostCents      *int64     `json:"cost_cents"`
	Currency       *string    `json:"currency"`
	Lat            *float64   `json:"lat"`
	Lon            *float64   `json:"lon"`
	Status         string     `json:"status"`
	Source         string     `json:"source"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at"`
}

// VoteRow is a row of the votes table. (activity_id, user_id) is unique.
type VoteRow struct {
	ID             string    `json:"id"`
	ActivityID     string    `json:"activity_id"`
	UserID         string    `json:"user_id"`
	Choice         string    `json:"choice"`
	IdempotencyKey *string   `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageRow is a row of the messages table. UserID is null when the author
// account was removed.
type MessageRow struct {
	ID          string     `json:"id"`
	TripID      string     `json:"trip_id"`
	UserID      *string    `json:"user_id"`
	Content     string     `json:"content"`
	MessageType string     `json:"message_type"`
	ClientMsgID *string    `json:"client_msg_id"`
	ReplyTo     *string    `json:"reply_to"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// TripWrite carries the mutable trip fields sent on insert and update.
// Unset optionals are nil and persist as NULL.
type TripWrite struct {
	Title           string
	DestinationText string
	StartDate       string // DATE
	EndDate         string // DATE
	Status          string
	BudgetCents     *int64
	Currency        *string
}

// ActivityWrite carries the mutable activity fields sent on insert and
// update. Unset optionals are nil and persist as NULL.
type ActivityWrite struct {
	ItineraryDayID *string
	Title          string
	Description    *string
	Category       *string
	StartTime      *string
	EndTime        *string
	CostCents      *int64
	Currency       *string
	Lat            *float64
	Lon            *float64
	Status         string
	Source         string
}

// VoteUpsert is the "set my vote on this activity" write, keyed by
// (ActivityID, UserID).
type VoteUpsert struct {
	ActivityID     string
	UserID         string
	Choice         string
	IdempotencyKey *string
}

// MessageInsert carries the fields of a new chat message.
type MessageInsert struct {
	TripID      string
	UserID      string
	Content     string
	MessageType string
	ClientMsgID *string
	ReplyTo     *string
}
