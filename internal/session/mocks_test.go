package session_test

import (
	"context"
	"testing"

	"github.com/pmallory/tripsync/internal/gateway"
	"github.com/pmallory/tripsync/internal/gateway/memory"
	"github.com/pmallory/tripsync/internal/session"
	"github.com/pmallory/tripsync/internal/store"
)

// mockGateway is a hand-written test double for gateway.Gateway.
// Each method is a function field — set only the ones your test needs; an
// unexpected call on an unset field panics and fails the test loudly.
type mockGateway struct {
	tripsForUser  func(ctx context.Context, userID string) ([]gateway.TripRow, error)
	trip          func(ctx context.Context, tripID string) (gateway.TripRow, error)
	membersFn     func(ctx context.Context, tripID string) ([]gateway.TripMemberRow, error)
	itineraryDays func(ctx context.Context, tripID string) ([]gateway.ItineraryDayRow, error)
	activities    func(ctx context.Context, tripID string) ([]gateway.ActivityRow, error)
	votesFn       func(ctx context.Context, activityIDs []string) ([]gateway.VoteRow, error)
	messagesFn    func(ctx context.Context, tripID string) ([]gateway.MessageRow, error)
	profile       func(ctx context.Context, userID string) (gateway.ProfileRow, error)

	insertTrip     func(ctx context.Context, ownerID string, w gateway.TripWrite) (gateway.TripRow, error)
	updateTrip     func(ctx context.Context, tripID string, w gateway.TripWrite) (gateway.TripRow, error)
	softDeleteTrip func(ctx context.Context, tripID string) error

	insertActivity     func(ctx context.Context, tripID string, w gateway.ActivityWrite) (gateway.ActivityRow, error)
	updateActivity     func(ctx context.Context, activityID string, w gateway.ActivityWrite) (gateway.ActivityRow, error)
	softDeleteActivity func(ctx context.Context, activityID string) error

	upsertVote func(ctx context.Context, u gateway.VoteUpsert) (gateway.VoteRow, error)

	insertMessage        func(ctx context.Context, m gateway.MessageInsert) (gateway.MessageRow, error)
	updateMessageContent func(ctx context.Context, messageID, content string) (gateway.MessageRow, error)
	softDeleteMessage    func(ctx context.Context, messageID string) error
}

func (m *mockGateway) TripsForUser(ctx context.Context, userID string) ([]gateway.TripRow, error) {
	return m.tripsForUser(ctx, userID)
}
func (m *mockGateway) Trip(ctx context.Context, tripID string) (gateway.TripRow, error) {
	return m.trip(ctx, tripID)
}
func (m *mockGateway) Members(ctx context.Context, tripID string) ([]gateway.TripMemberRow, error) {
	return m.membersFn(ctx, tripID)
}
func (m *mockGateway) ItineraryDays(ctx context.Context, tripID string) ([]gateway.ItineraryDayRow, error) {
	return m.itineraryDays(ctx, tripID)
}
func (m *mockGateway) Activities(ctx context.Context, tripID string) ([]gateway.ActivityRow, error) {
	return m.activities(ctx, tripID)
}
func (m *mockGateway) Votes(ctx context.Context, activityIDs []string) ([]gateway.VoteRow, error) {
	return m.votesFn(ctx, activityIDs)
}
func (m *mockGateway) Messages(ctx context.Context, tripID string) ([]gateway.MessageRow, error) {
	return m.messagesFn(ctx, tripID)
}
func (m *mockGateway) Profile(ctx context.Context, userID string) (gateway.ProfileRow, error) {
	return m.profile(ctx, userID)
}
func (m *mockGateway) InsertTrip(ctx context.Context, ownerID string, w gateway.TripWrite) (gateway.TripRow, error) {
	return m.insertTrip(ctx, ownerID, w)
}
func (m *mockGateway) UpdateTrip(ctx context.Context, tripID string, w gateway.TripWrite) (gateway.TripRow, error) {
	return m.updateTrip(ctx, tripID, w)
}
func (m *mockGateway) SoftDeleteTrip(ctx context.Context, tripID string) error {
	return m.softDeleteTrip(ctx, tripID)
}
func (m *mockGateway) InsertActivity(ctx context.Context, tripID string, w gateway.ActivityWrite) (gateway.ActivityRow, error) {
	return m.insertActivity(ctx, tripID, w)
}
func (m *mockGateway) UpdateActivity(ctx context.Context, activityID string, w gateway.ActivityWrite) (gateway.ActivityRow, error) {
	return m.updateActivity(ctx, activityID, w)
}
func (m *mockGateway) SoftDeleteActivity(ctx context.Context, activityID string) error {
	return m.softDeleteActivity(ctx, activityID)
}
func (m *mockGateway) UpsertVote(ctx context.Context, u gateway.VoteUpsert) (gateway.VoteRow, error) {
	return m.upsertVote(ctx, u)
}
func (m *mockGateway) InsertMessage(ctx context.Context, msg gateway.MessageInsert) (gateway.MessageRow, error) {
	return m.insertMessage(ctx, msg)
}
func (m *mockGateway) UpdateMessageContent(ctx context.Context, messageID, content string) (gateway.MessageRow, error) {
	return m.updateMessageContent(ctx, messageID, content)
}
func (m *mockGateway) SoftDeleteMessage(ctx context.Context, messageID string) error {
	return m.softDeleteMessage(ctx, messageID)
}

// compile-time check: mockGateway must satisfy gateway.Gateway.
var _ gateway.Gateway = (*mockGateway)(nil)

// mockAuth resolves a fixed identity, or an error when err is set.
type mockAuth struct {
	ident gateway.Identity
	err   error
}

func (a *mockAuth) CurrentIdentity(ctx context.Context) (gateway.Identity, error) {
	if a.err != nil {
		return gateway.Identity{}, a.err
	}
	return a.ident, nil
}

func (a *mockAuth) SignOut(ctx context.Context) error { return a.err }

var _ gateway.Authenticator = (*mockAuth)(nil)

// newMemorySession wires a session over the in-memory gateway with userID
// signed in. The memory gateway doubles as the authenticator.
func newMemorySession(t *testing.T, userID, email string) (*session.Session, *memory.Gateway, *store.Store) {
	t.Helper()
	g := memory.New()
	g.SignIn(userID, email)
	st := store.New()
	return session.NewSession(g, g, st, nil, nil), g, st
}
