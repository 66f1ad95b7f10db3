package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
	"github.com/pmallory/tripsync/internal/realtime"
	"github.com/pmallory/tripsync/internal/store"
)

// fakeFeed is an in-test changefeed with manual event injection, subscribe
// accounting, and an optional failure budget.
type fakeFeed struct {
	mu         sync.Mutex
	subs       []*fakeSub
	subscribes int
	failNext   int // Subscribe errors while positive
}

func (f *fakeFeed) Subscribe(ctx context.Context, topic gateway.Topic) (gateway.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("transport down")
	}
	f.subscribes++
	sub := &fakeSub{topic: topic, events: make(chan gateway.ChangeEvent, 16)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) failSubscribes(n int) {
	f.mu.Lock()
	f.failNext = n
	f.mu.Unlock()
}

// emit delivers an event to every subscription whose topic matches.
func (f *fakeFeed) emit(tripID string, ev gateway.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.topic.Matches(ev.Table, tripID) {
			sub.send(ev)
		}
	}
}

// dropAll simulates a transport failure: every channel closes without the
// consumer asking for it.
func (f *fakeFeed) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		sub.close()
	}
	f.subs = nil
}

func (f *fakeFeed) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

func (f *fakeFeed) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sub := range f.subs {
		if !sub.isClosed() {
			n++
		}
	}
	return n
}

type fakeSub struct {
	topic  gateway.Topic
	events chan gateway.ChangeEvent

	mu     sync.Mutex
	closed bool
}

func (s *fakeSub) Events() <-chan gateway.ChangeEvent { return s.events }

func (s *fakeSub) Close() error {
	s.close()
	return nil
}

func (s *fakeSub) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSub) send(ev gateway.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- ev
	}
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func insertEvent(t *testing.T, table gateway.Table, row any) gateway.ChangeEvent {
	t.Helper()
	return gateway.ChangeEvent{Table: table, Type: gateway.EventInsert, New: mustRaw(t, row)}
}

func updateEvent(t *testing.T, table gateway.Table, row any) gateway.ChangeEvent {
	t.Helper()
	return gateway.ChangeEvent{Table: table, Type: gateway.EventUpdate, New: mustRaw(t, row)}
}

// newWatchedTrip wires a subscriber watching trip t1 over a fresh store.
func newWatchedTrip(t *testing.T) (*fakeFeed, *store.Store, *realtime.Subscriber) {
	t.Helper()
	feed := &fakeFeed{}
	st := store.New()
	sub := realtime.NewSubscriber(feed, st, nil)
	require.NoError(t, sub.WatchTrip(context.Background(), "t1"))
	t.Cleanup(sub.Close)
	return feed, st, sub
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestSubscriber_InsertAppliesOnce(t *testing.T) {
	feed, st, _ := newWatchedTrip(t)
	row := gateway.MessageRow{ID: "m1", TripID: "t1", Content: "hi", MessageType: "text"}

	// The same insert delivered twice (feed echo) must not duplicate.
	feed.emit("t1", insertEvent(t, gateway.TableMessages, row))
	feed.emit("t1", insertEvent(t, gateway.TableMessages, row))

	waitFor(t, func() bool { return len(st.Messages()) == 1 }, "message applied")

	// Give the second event time to misbehave before asserting.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, st.Messages(), 1)
}

// A soft delete arrives as an UPDATE whose payload carries deleted_at; it
// must remove the entity, not update it.
func TestSubscriber_SoftDeleteUpdateRemoves(t *testing.T) {
	feed, st, _ := newWatchedTrip(t)

	feed.emit("t1", insertEvent(t, gateway.TableActivities, gateway.ActivityRow{
		ID: "a1", TripID: "t1", Title: "museum", Status: "proposed", Source: "manual",
	}))
	waitFor(t, func() bool { return st.HasActivity("a1") }, "activity applied")

	now := time.Now()
	feed.emit("t1", updateEvent(t, gateway.TableActivities, gateway.ActivityRow{
		ID: "a1", TripID: "t1", Title: "museum", Status: "proposed", Source: "manual",
		DeletedAt: &now,
	}))

	waitFor(t, func() bool { return !st.HasActivity("a1") }, "activity removed")
}

// An UPDATE arriving before its INSERT (out-of-order delivery) is a no-op;
// the later INSERT then installs the row.
func TestSubscriber_UpdateBeforeInsert(t *testing.T) {
	feed, st, _ := newWatchedTrip(t)
	row := gateway.TripRow{
		ID: "t1", OwnerID: "u1", Title: "Lisbon",
		StartDate: "2026-09-10", EndDate: "2026-09-17", Status: "planned",
	}

	feed.emit("t1", updateEvent(t, gateway.TableTrips, row))
	feed.emit("t1", insertEvent(t, gateway.TableTrips, row))

	waitFor(t, func() bool { return len(st.Trips()) == 1 }, "trip applied")
	assert.Equal(t, "Lisbon", st.Trips()[0].Title)
}

// Votes ride an unfiltered channel; events for activities that are not
// loaded belong to other trips and must be dropped.
func TestSubscriber_VoteFiltering(t *testing.T) {
	feed, st, _ := newWatchedTrip(t)

	feed.emit("t1", insertEvent(t, gateway.TableActivities, gateway.ActivityRow{
		ID: "a1", TripID: "t1", Title: "museum", Status: "proposed", Source: "manual",
	}))
	waitFor(t, func() bool { return st.HasActivity("a1") }, "activity applied")

	feed.emit("", insertEvent(t, gateway.TableVotes, gateway.VoteRow{
		ID: "v-other", ActivityID: "a-other-trip", UserID: "u2", Choice: "up",
	}))
	feed.emit("", insertEvent(t, gateway.TableVotes, gateway.VoteRow{
		ID: "v1", ActivityID: "a1", UserID: "u2", Choice: "up",
	}))

	waitFor(t, func() bool { return len(st.VotesFor("a1")) == 1 }, "vote applied")
	assert.Empty(t, st.VotesFor("a-other-trip"), "foreign vote dropped")
}

// A feed echo of the user's own upsert must collapse with the locally
// applied vote instead of duplicating it.
func TestSubscriber_VoteEchoCollapses(t *testing.T) {
	feed, st, _ := newWatchedTrip(t)

	feed.emit("t1", insertEvent(t, gateway.TableActivities, gateway.ActivityRow{
		ID: "a1", TripID: "t1", Title: "museum", Status: "proposed", Source: "manual",
	}))
	waitFor(t, func() bool { return st.HasActivity("a1") }, "activity applied")

	st.SetUserVote(domain.Vote{ID: "v1", ActivityID: "a1", UserID: "u1", Choice: domain.VoteUp})

	feed.emit("", updateEvent(t, gateway.TableVotes, gateway.VoteRow{
		ID: "v1", ActivityID: "a1", UserID: "u1", Choice: "down",
	}))

	waitFor(t, func() bool {
		votes := st.VotesFor("a1")
		return len(votes) == 1 && votes[0].Choice == domain.VoteDown
	}, "vote echo collapsed to latest choice")
}

// After UnwatchTrip returns, further events for that trip must not reach
// the store.
func TestSubscriber_UnwatchStopsDelivery(t *testing.T) {
	feed, st, sub := newWatchedTrip(t)

	sub.UnwatchTrip("t1")

	feed.emit("t1", insertEvent(t, gateway.TableMessages, gateway.MessageRow{
		ID: "m1", TripID: "t1", Content: "late", MessageType: "text",
	}))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, st.Messages())
}

// Watching a key that is already watched replaces the old channel instead
// of accumulating a second one.
func TestSubscriber_RewatchReplacesPriorWatch(t *testing.T) {
	feed := &fakeFeed{}
	st := store.New()
	sub := realtime.NewSubscriber(feed, st, nil)
	t.Cleanup(sub.Close)
	topic := gateway.Topic{Table: gateway.TableMessages, TripID: "t1"}

	require.NoError(t, sub.Watch(context.Background(), topic))
	require.NoError(t, sub.Watch(context.Background(), topic))

	assert.Equal(t, 2, feed.subscribeCount())
	waitFor(t, func() bool { return feed.openCount() == 1 }, "prior channel closed")
}

// When the transport drops all channels, the subscriber re-establishes them
// and keeps applying events.
func TestSubscriber_ResubscribesAfterDrop(t *testing.T) {
	feed, st, _ := newWatchedTrip(t)
	before := feed.subscribeCount()

	feed.dropAll()

	waitFor(t, func() bool { return feed.subscribeCount() >= before+4 }, "all four topics resubscribed")

	feed.emit("t1", insertEvent(t, gateway.TableMessages, gateway.MessageRow{
		ID: "m1", TripID: "t1", Content: "still alive", MessageType: "text",
	}))
	waitFor(t, func() bool { return len(st.Messages()) == 1 }, "event applied on new channel")
}

// Resubscribe failures are retried rather than abandoned: a watch that
// cannot reconnect immediately must come back once the transport recovers,
// never sit dead under a watched key.
func TestSubscriber_ResubscribeOutlastsFailures(t *testing.T) {
	feed, st, _ := newWatchedTrip(t)

	feed.failSubscribes(6)
	feed.dropAll()

	waitFor(t, func() bool { return feed.openCount() >= 4 }, "all topics back after transient failures")

	feed.emit("t1", insertEvent(t, gateway.TableMessages, gateway.MessageRow{
		ID: "m1", TripID: "t1", Content: "recovered", MessageType: "text",
	}))
	waitFor(t, func() bool { return len(st.Messages()) == 1 }, "event applied after recovery")
}
