package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/store"
)

func trip(id, title string) domain.Trip {
	return domain.Trip{ID: id, Title: title, Status: domain.TripPlanned}
}

func activity(id, title string) domain.Activity {
	return domain.Activity{ID: id, TripID: "trip-1", Title: title}
}

func vote(id, activityID, userID string, choice domain.VoteChoice) domain.Vote {
	return domain.Vote{ID: id, ActivityID: activityID, UserID: userID, Choice: choice}
}

// TestStore_AddTrip_Idempotent verifies that applying the same insert twice
// (local echo plus realtime notification) leaves exactly one entry.
func TestStore_AddTrip_Idempotent(t *testing.T) {
	s := store.New()

	s.AddTrip(trip("t1", "Lisbon"))
	s.AddTrip(trip("t1", "Lisbon"))

	require.Len(t, s.Trips(), 1)
	assert.Equal(t, "Lisbon", s.Trips()[0].Title)
}

// TestStore_AddTrip_LastApplyWins verifies that a re-add with newer content
// replaces the stored entry rather than duplicating it.
func TestStore_AddTrip_LastApplyWins(t *testing.T) {
	s := store.New()

	s.AddTrip(trip("t1", "Lisbon"))
	s.AddTrip(trip("t1", "Lisbon, final"))

	require.Len(t, s.Trips(), 1)
	assert.Equal(t, "Lisbon, final", s.Trips()[0].Title)
}

// TestStore_UpdateTrip_AbsentIsNoOp verifies that an update arriving after a
// local removal changes nothing.
func TestStore_UpdateTrip_AbsentIsNoOp(t *testing.T) {
	s := store.New()
	s.AddTrip(trip("t1", "Lisbon"))

	s.UpdateTrip(trip("t2", "Porto"))

	require.Len(t, s.Trips(), 1)
	assert.Equal(t, "t1", s.Trips()[0].ID)
}

func TestStore_RemoveTrip_AbsentIsNoOp(t *testing.T) {
	s := store.New()
	s.AddTrip(trip("t1", "Lisbon"))

	s.RemoveTrip("t2")

	assert.Len(t, s.Trips(), 1)
}

// TestStore_RemoveTrip_ClearsCurrentTrip verifies that removing the open
// trip also closes its detail view.
func TestStore_RemoveTrip_ClearsCurrentTrip(t *testing.T) {
	s := store.New()
	open := trip("t1", "Lisbon")
	s.AddTrip(open)
	s.SetCurrentTrip(&open)

	s.RemoveTrip("t1")

	assert.Nil(t, s.CurrentTrip())
	assert.Empty(t, s.Trips())
}

// TestStore_UpdateTrip_MirrorsIntoCurrentTrip verifies that a change to the
// open trip is visible on both the list and the detail view.
func TestStore_UpdateTrip_MirrorsIntoCurrentTrip(t *testing.T) {
	s := store.New()
	open := trip("t1", "Lisbon")
	s.AddTrip(open)
	s.SetCurrentTrip(&open)

	s.UpdateTrip(trip("t1", "Lisbon, renamed"))

	require.NotNil(t, s.CurrentTrip())
	assert.Equal(t, "Lisbon, renamed", s.CurrentTrip().Title)
}

// TestStore_CopyOnWrite verifies that mutations install a fresh slice, so a
// snapshot taken before the mutation is untouched and observers can compare
// by reference.
func TestStore_CopyOnWrite(t *testing.T) {
	s := store.New()
	s.AddTrip(trip("t1", "Lisbon"))

	before := s.Trips()
	s.AddTrip(trip("t2", "Porto"))
	after := s.Trips()

	assert.Len(t, before, 1, "earlier snapshot must not grow")
	assert.Len(t, after, 2)
}

// TestStore_Subscribe verifies observer registration, notification on every
// mutation, and unsubscription.
func TestStore_Subscribe(t *testing.T) {
	s := store.New()

	var calls int
	unsubscribe := s.Subscribe(func() { calls++ })

	s.AddTrip(trip("t1", "Lisbon"))
	s.SetSidebarOpen(false)
	require.Equal(t, 2, calls)

	unsubscribe()
	s.AddTrip(trip("t2", "Porto"))
	assert.Equal(t, 2, calls, "no notifications after unsubscribe")
}

// TestStore_SetUserVote_OnePerUser verifies the at-most-one-vote-per-user
// invariant under re-votes.
func TestStore_SetUserVote_OnePerUser(t *testing.T) {
	s := store.New()
	s.AddActivity(activity("a1", "museum"))

	s.SetUserVote(vote("v1", "a1", "u1", domain.VoteUp))
	s.SetUserVote(vote("v2", "a1", "u1", domain.VoteDown))
	s.SetUserVote(vote("v3", "a1", "u2", domain.VoteUp))

	votes := s.VotesFor("a1")
	require.Len(t, votes, 2)

	byUser := map[string]domain.VoteChoice{}
	for _, v := range votes {
		byUser[v.UserID] = v.Choice
	}
	assert.Equal(t, domain.VoteDown, byUser["u1"], "latest choice wins")
	assert.Equal(t, domain.VoteUp, byUser["u2"])
}

func TestStore_RemoveVote(t *testing.T) {
	s := store.New()
	s.SetUserVote(vote("v1", "a1", "u1", domain.VoteUp))

	s.RemoveVote("a1", "v1")
	assert.Empty(t, s.VotesFor("a1"))

	// Absent activity and absent vote are both no-ops.
	s.RemoveVote("a9", "v9")
	s.RemoveVote("a1", "v9")
}

// TestStore_RemoveActivity_DropsVotes verifies that an activity's votes do
// not outlive it.
func TestStore_RemoveActivity_DropsVotes(t *testing.T) {
	s := store.New()
	s.AddActivity(activity("a1", "museum"))
	s.SetUserVote(vote("v1", "a1", "u1", domain.VoteUp))

	s.RemoveActivity("a1")

	assert.False(t, s.HasActivity("a1"))
	assert.Empty(t, s.VotesFor("a1"))
}

func TestStore_SetActivityVotes_ReplacesOneActivity(t *testing.T) {
	s := store.New()
	s.SetUserVote(vote("v1", "a1", "u1", domain.VoteUp))
	s.SetUserVote(vote("v2", "a2", "u1", domain.VoteUp))

	s.SetActivityVotes("a1", nil)

	assert.Empty(t, s.VotesFor("a1"))
	assert.Len(t, s.VotesFor("a2"), 1, "other activities untouched")
}

// TestStore_Reset verifies sign-out semantics: user and every entity
// collection are cleared; UI flags keep their values.
func TestStore_Reset(t *testing.T) {
	s := store.New()
	s.SetUser(&domain.User{ID: "u1", Email: "ana@example.com", CreatedAt: time.Now()})
	s.AddTrip(trip("t1", "Lisbon"))
	s.AddActivity(activity("a1", "museum"))
	s.SetUserVote(vote("v1", "a1", "u1", domain.VoteUp))
	s.AddMessage(domain.Message{ID: "m1", TripID: "t1", Content: "hi"})
	s.SetSidebarOpen(false)

	s.Reset()

	assert.Nil(t, s.User())
	assert.Empty(t, s.Trips())
	assert.Nil(t, s.CurrentTrip())
	assert.Empty(t, s.Activities())
	assert.Empty(t, s.Votes())
	assert.Empty(t, s.Messages())
	assert.False(t, s.SidebarOpen(), "UI flags survive reset")
}

func TestStore_Defaults(t *testing.T) {
	s := store.New()

	assert.True(t, s.SidebarOpen())
	assert.False(t, s.GeneratingItinerary())
	assert.False(t, s.ShowCreateTripModal())
	assert.False(t, s.ShowAddActivityModal())
}

// TestStore_AddMessage_RealtimeEcho verifies that the realtime echo of an
// own send cannot duplicate the message.
func TestStore_AddMessage_RealtimeEcho(t *testing.T) {
	s := store.New()
	m := domain.Message{ID: "m1", TripID: "t1", Content: "hi", Type: domain.MessageText}

	s.AddMessage(m)
	s.AddMessage(m)

	assert.Len(t, s.Messages(), 1)
}
