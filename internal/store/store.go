// Package store holds the in-memory, observable state for the active
// session: the signed-in user, trips, the open trip's activities, votes,
// messages, members, and UI flags.
//
// The store is a read-through cache of the gateway, never an authority:
// every mutation path (session façade after a confirmed write, sync
// subscriber after a change notification) funnels through the same per-
// collection add/update/remove methods, which are idempotent by entity id
// and tolerate out-of-order delivery. Setters are synchronous, total, and
// perform no I/O.
//
// Collections are copy-on-write: every mutation installs a fresh slice or
// map, so observers can detect change by reference. Values returned by
// getters must be treated as immutable.
package store

import (
	"sync"

	"github.com/pmallory/tripsync/internal/domain"
)

// Store is the single shared state container. Construct one per session
// with New and inject it into all consumers; there is no package-level
// singleton.
type Store struct {
	mu sync.RWMutex

	user        *domain.User
	trips       []domain.Trip
	currentTrip *domain.Trip
	members     []domain.TripMember
	days        []domain.ItineraryDay
	activities  []domain.Activity
	votes       map[string][]domain.Vote // keyed by activity id
	messages    []domain.Message

	generatingItinerary bool
	sidebarOpen         bool
	showCreateTripModal bool
	showAddActivity     bool

	nextObserver int
	observers    map[int]func()
}

// New returns an empty store.
func New() *Store {
	return &Store{
		votes:       map[string][]domain.Vote{},
		sidebarOpen: true,
		observers:   map[int]func(){},
	}
}

// Subscribe registers fn to run after every mutation and returns a function
// that removes the registration. fn runs on the mutating goroutine and must
// not mutate the store.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// notify runs outside the write lock so observers can read the store.
func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// ---- user ------------------------------------------------------------------

// SetUser replaces the signed-in user; nil means signed out.
func (s *Store) SetUser(u *domain.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.notify()
}

// User returns the signed-in user, or nil.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Reset clears the user and every entity collection. Called on sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	s.user = nil
	s.trips = nil
	s.currentTrip = nil
	s.members = nil
	s.days = nil
	s.activities = nil
	s.votes = map[string][]domain.Vote{}
	s.messages = nil
	s.mu.Unlock()
	s.notify()
}

// ---- trips -----------------------------------------------------------------

// SetTrips replaces the whole trip collection (full reload).
func (s *Store) SetTrips(trips []domain.Trip) {
	s.mu.Lock()
	s.trips = append([]domain.Trip(nil), trips...)
	s.mu.Unlock()
	s.notify()
}

// Trips returns the current trip collection.
func (s *Store) Trips() []domain.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trips
}

// AddTrip inserts the trip, replacing any existing entry with the same id.
// Applying the same insert twice leaves exactly one entry.
func (s *Store) AddTrip(t domain.Trip) {
	s.mu.Lock()
	s.trips = upsert(s.trips, t, func(e domain.Trip) string { return e.ID }, t.ID)
	s.syncCurrentTrip(t)
	s.mu.Unlock()
	s.notify()
}

// UpdateTrip replaces the trip with the matching id. A no-op when the id is
// not present (stale update after local removal).
func (s *Store) UpdateTrip(t domain.Trip) {
	s.mu.Lock()
	s.trips = replace(s.trips, t, func(e domain.Trip) string { return e.ID }, t.ID)
	s.syncCurrentTrip(t)
	s.mu.Unlock()
	s.notify()
}

// RemoveTrip drops the trip with the given id; no-op when absent. Clears the
// current trip if it was the removed one.
func (s *Store) RemoveTrip(id string) {
	s.mu.Lock()
	s.trips = remove(s.trips, func(e domain.Trip) string { return e.ID }, id)
	if s.currentTrip != nil && s.currentTrip.ID == id {
		s.currentTrip = nil
	}
	s.mu.Unlock()
	s.notify()
}

// SetCurrentTrip sets the trip whose detail view is open; nil closes it.
func (s *Store) SetCurrentTrip(t *domain.Trip) {
	s.mu.Lock()
	s.currentTrip = t
	s.mu.Unlock()
	s.notify()
}

// CurrentTrip returns the open trip, or nil.
func (s *Store) CurrentTrip() *domain.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTrip
}

// syncCurrentTrip mirrors a trip change into currentTrip. Caller holds mu.
func (s *Store) syncCurrentTrip(t domain.Trip) {
	if s.currentTrip != nil && s.currentTrip.ID == t.ID {
		cp := t
		s.currentTrip = &cp
	}
}

// ---- members and itinerary days -------------------------------------------

// SetMembers replaces the open trip's membership list.
func (s *Store) SetMembers(members []domain.TripMember) {
	s.mu.Lock()
	s.members = append([]domain.TripMember(nil), members...)
	s.mu.Unlock()
	s.notify()
}

// Members returns the open trip's memberships.
func (s *Store) Members() []domain.TripMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members
}

// RoleOf returns the given user's role in the open trip.
func (s *Store) RoleOf(userID string) (domain.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// SetItineraryDays replaces the open trip's itinerary days.
func (s *Store) SetItineraryDays(days []domain.ItineraryDay) {
	s.mu.Lock()
	s.days = append([]domain.ItineraryDay(nil), days...)
	s.mu.Unlock()
	s.notify()
}

// ItineraryDays returns the open trip's itinerary days.
func (s *Store) ItineraryDays() []domain.ItineraryDay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.days
}

// ---- activities ------------------------------------------------------------

// SetActivities replaces the whole activity collection (full reload).
func (s *Store) SetActivities(activities []domain.Activity) {
	s.mu.Lock()
	s.activities = append([]domain.Activity(nil), activities...)
	s.mu.Unlock()
	s.notify()
}

// Activities returns the current activity collection.
func (s *Store) Activities() []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activities
}

// HasActivity reports whether an activity id is loaded. The sync subscriber
// uses this to discard vote events from other trips.
func (s *Store) HasActivity(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.activities {
		if a.ID == id {
			return true
		}
	}
	return false
}

// AddActivity inserts the activity, replacing any existing entry with the
// same id.
func (s *Store) AddActivity(a domain.Activity) {
	s.mu.Lock()
	s.activities = upsert(s.activities, a, func(e domain.Activity) string { return e.ID }, a.ID)
	s.mu.Unlock()
	s.notify()
}

// UpdateActivity replaces the activity with the matching id; no-op when
// absent.
func (s *Store) UpdateActivity(a domain.Activity) {
	s.mu.Lock()
	s.activities = replace(s.activities, a, func(e domain.Activity) string { return e.ID }, a.ID)
	s.mu.Unlock()
	s.notify()
}

// RemoveActivity drops the activity and its votes; no-op when absent.
func (s *Store) RemoveActivity(id string) {
	s.mu.Lock()
	s.activities = remove(s.activities, func(e domain.Activity) string { return e.ID }, id)
	if _, ok := s.votes[id]; ok {
		votes := cloneVotes(s.votes)
		delete(votes, id)
		s.votes = votes
	}
	s.mu.Unlock()
	s.notify()
}

// ---- votes -----------------------------------------------------------------

// SetVotes replaces the whole vote map (full reload).
func (s *Store) SetVotes(votes map[string][]domain.Vote) {
	s.mu.Lock()
	s.votes = cloneVotes(votes)
	s.mu.Unlock()
	s.notify()
}

// Votes returns the vote map keyed by activity id.
func (s *Store) Votes() map[string][]domain.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.votes
}

// VotesFor returns the votes on one activity.
func (s *Store) VotesFor(activityID string) []domain.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.votes[activityID]
}

// SetActivityVotes replaces the votes of one activity.
func (s *Store) SetActivityVotes(activityID string, votes []domain.Vote) {
	s.mu.Lock()
	next := cloneVotes(s.votes)
	next[activityID] = append([]domain.Vote(nil), votes...)
	s.votes = next
	s.mu.Unlock()
	s.notify()
}

// SetUserVote installs the user's current vote on an activity, removing any
// prior vote by the same user first. After any sequence of calls the
// activity holds at most one vote per user, with the latest choice.
func (s *Store) SetUserVote(v domain.Vote) {
	s.mu.Lock()
	next := cloneVotes(s.votes)
	kept := make([]domain.Vote, 0, len(next[v.ActivityID])+1)
	for _, existing := range next[v.ActivityID] {
		if existing.UserID != v.UserID {
			kept = append(kept, existing)
		}
	}
	next[v.ActivityID] = append(kept, v)
	s.votes = next
	s.mu.Unlock()
	s.notify()
}

// RemoveVote drops a vote by id from an activity; no-op when absent.
func (s *Store) RemoveVote(activityID, voteID string) {
	s.mu.Lock()
	current, ok := s.votes[activityID]
	if !ok {
		s.mu.Unlock()
		return
	}
	next := cloneVotes(s.votes)
	next[activityID] = remove(current, func(v domain.Vote) string { return v.ID }, voteID)
	s.votes = next
	s.mu.Unlock()
	s.notify()
}

// ---- messages --------------------------------------------------------------

// SetMessages replaces the whole message collection (full reload).
func (s *Store) SetMessages(messages []domain.Message) {
	s.mu.Lock()
	s.messages = append([]domain.Message(nil), messages...)
	s.mu.Unlock()
	s.notify()
}

// Messages returns the current message collection.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages
}

// AddMessage inserts the message, replacing any existing entry with the same
// id. A realtime echo of an own send therefore cannot duplicate it.
func (s *Store) AddMessage(m domain.Message) {
	s.mu.Lock()
	s.messages = upsert(s.messages, m, func(e domain.Message) string { return e.ID }, m.ID)
	s.mu.Unlock()
	s.notify()
}

// UpdateMessage replaces the message with the matching id; no-op when absent.
func (s *Store) UpdateMessage(m domain.Message) {
	s.mu.Lock()
	s.messages = replace(s.messages, m, func(e domain.Message) string { return e.ID }, m.ID)
	s.mu.Unlock()
	s.notify()
}

// RemoveMessage drops the message with the given id; no-op when absent.
func (s *Store) RemoveMessage(id string) {
	s.mu.Lock()
	s.messages = remove(s.messages, func(e domain.Message) string { return e.ID }, id)
	s.mu.Unlock()
	s.notify()
}

// ---- UI flags --------------------------------------------------------------

// SetGeneratingItinerary toggles the "AI itinerary in flight" flag.
func (s *Store) SetGeneratingItinerary(v bool) {
	s.mu.Lock()
	s.generatingItinerary = v
	s.mu.Unlock()
	s.notify()
}

// GeneratingItinerary reports whether an AI itinerary request is in flight.
func (s *Store) GeneratingItinerary() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generatingItinerary
}

// SetSidebarOpen toggles the sidebar flag.
func (s *Store) SetSidebarOpen(v bool) {
	s.mu.Lock()
	s.sidebarOpen = v
	s.mu.Unlock()
	s.notify()
}

// SidebarOpen reports the sidebar flag. Defaults to open.
func (s *Store) SidebarOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sidebarOpen
}

// SetShowCreateTripModal toggles the create-trip modal flag.
func (s *Store) SetShowCreateTripModal(v bool) {
	s.mu.Lock()
	s.showCreateTripModal = v
	s.mu.Unlock()
	s.notify()
}

// ShowCreateTripModal reports the create-trip modal flag.
func (s *Store) ShowCreateTripModal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showCreateTripModal
}

// SetShowAddActivityModal toggles the add-activity modal flag.
func (s *Store) SetShowAddActivityModal(v bool) {
	s.mu.Lock()
	s.showAddActivity = v
	s.mu.Unlock()
	s.notify()
}

// ShowAddActivityModal reports the add-activity modal flag.
func (s *Store) ShowAddActivityModal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showAddActivity
}

// ---- slice helpers ---------------------------------------------------------

// upsert returns a new slice with e replacing the entry whose id matches, or
// appended when no entry matches.
func upsert[T any](in []T, e T, id func(T) string, key string) []T {
	out := make([]T, 0, len(in)+1)
	found := false
	for _, existing := range in {
		if id(existing) == key {
			out = append(out, e)
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		out = append(out, e)
	}
	return out
}

// replace returns a new slice with e replacing the matching entry, or the
// input copied unchanged when no entry matches.
func replace[T any](in []T, e T, id func(T) string, key string) []T {
	out := make([]T, len(in))
	for i, existing := range in {
		if id(existing) == key {
			out[i] = e
			continue
		}
		out[i] = existing
	}
	return out
}

// remove returns a new slice without the matching entry.
func remove[T any](in []T, id func(T) string, key string) []T {
	out := make([]T, 0, len(in))
	for _, existing := range in {
		if id(existing) != key {
			out = append(out, existing)
		}
	}
	return out
}

func cloneVotes(in map[string][]domain.Vote) map[string][]domain.Vote {
	out := make(map[string][]domain.Vote, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
