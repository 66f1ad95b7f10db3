// Package gateway defines the boundary to the remote data gateway: the wire
// row shapes, the read/write contract, authentication, and the realtime
// changefeed. The gateway owns durable state and authorization; everything
// in-process is a cache of what it returns.
//
// Two implementations live in subpackages: memory (tests and dev mode) and
// pg (Postgres via pgx). The ws subpackage implements only the changefeed
// side over a websocket.
package gateway

import "context"

// Identity is the authenticated account a mutation or load runs as.
type Identity struct {
	UserID string
	Email  string
}

// Authenticator resolves the current authenticated identity. CurrentIdentity
// is called at the start of every mutation and every initial load; when no
// session exists it returns an error wrapping domain.ErrNotAuthenticated.
type Authenticator interface {
	CurrentIdentity(ctx context.Context) (Identity, error)
	SignOut(ctx context.Context) error
}

// Reader is the gateway read contract. All reads exclude soft-deleted rows.
type Reader interface {
	// TripsForUser returns trips where the user is an active member,
	// newest first by creation time.
	TripsForUser(ctx context.Context, userID string) ([]TripRow, error)

	// Trip returns a single trip. Soft-deleted trips report
	// domain.ErrNotFound.
	Trip(ctx context.Context, tripID string) (TripRow, error)

	// Members returns the active memberships of a trip.
	Members(ctx context.Context, tripID string) ([]TripMemberRow, error)

	// ItineraryDays returns the dated itinerary slots of a trip ordered by
	// day index.
	ItineraryDays(ctx context.Context, tripID string) ([]ItineraryDayRow, error)

	// Activities returns a trip's activities ordered by time of day, then
	// creation time.
	Activities(ctx context.Context, tripID string) ([]ActivityRow, error)

	// Votes returns all votes whose activity id is in the given set.
	Votes(ctx context.Context, activityIDs []string) ([]VoteRow, error)

	// Messages returns a trip's messages oldest first.
	Messages(ctx context.Context, tripID string) ([]MessageRow, error)

	// Profile returns the profile row for a user id.
	Profile(ctx context.Context, userID string) (ProfileRow, error)
}

// Writer is the gateway write contract. Every write returns the canonical
// persisted row so callers apply the gateway's view of the data, never their
// own. Deletes for trips, activities, and messages are soft: the row is
// marked deleted and disappears from subsequent reads.
type Writer interface {
	InsertTrip(ctx context.Context, ownerID string, w TripWrite) (TripRow, error)
	UpdateTrip(ctx context.Context, tripID string, w TripWrite) (TripRow, error)
	SoftDeleteTrip(ctx context.Context, tripID string) error

	InsertActivity(ctx context.Context, tripID string, w ActivityWrite) (ActivityRow, error)
	UpdateActivity(ctx context.Context, activityID string, w ActivityWrite) (ActivityRow, error)
	SoftDeleteActivity(ctx context.Context, activityID string) error

	// UpsertVote inserts the vote or, when a vote by the same user on the
	// same activity exists, overwrites its choice. Never duplicates.
	UpsertVote(ctx context.Context, u VoteUpsert) (VoteRow, error)

	InsertMessage(ctx context.Context, m MessageInsert) (MessageRow, error)
	UpdateMessageContent(ctx context.Context, messageID, content string) (MessageRow, error)
	SoftDeleteMessage(ctx context.Context, messageID string) error
}

// Gateway is the full data-plane contract implemented by memory and pg.
type Gateway interface {
	Reader
	Writer
}
