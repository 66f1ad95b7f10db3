// Package memory implements the full gateway contract in process: rows in
// maps, a changefeed fanning writes out to subscribers, and a settable
// identity. It backs the unit tests and gatewayd's dev mode; semantics match
// the pg gateway (soft deletes, vote upsert, read orderings).
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

// Gateway is the in-memory gateway. The zero value is not usable; construct
// with New.
type Gateway struct {
	mu          sync.RWMutex
	profiles    map[string]gateway.ProfileRow
	trips       map[string]gateway.TripRow
	members     map[string]gateway.TripMemberRow
	itineraries map[string]gateway.ItineraryRow
	days        map[string]gateway.ItineraryDayRow
	activities  map[string]gateway.ActivityRow
	votes       map[string]gateway.VoteRow
	messages    map[string]gateway.MessageRow

	ident *gateway.Identity

	subMu   sync.Mutex
	nextSub int
	subs    map[int]*subscription
}

// New returns an empty in-memory gateway.
func New() *Gateway {
	return &Gateway{
		profiles:    map[string]gateway.ProfileRow{},
		trips:       map[string]gateway.TripRow{},
		members:     map[string]gateway.TripMemberRow{},
		itineraries: map[string]gateway.ItineraryRow{},
		days:        map[string]gateway.ItineraryDayRow{},
		activities:  map[string]gateway.ActivityRow{},
		votes:       map[string]gateway.VoteRow{},
		messages:    map[string]gateway.MessageRow{},
		subs:        map[int]*subscription{},
	}
}

// compile-time checks against the gateway contract.
var (
	_ gateway.Gateway       = (*Gateway)(nil)
	_ gateway.Authenticator = (*Gateway)(nil)
	_ gateway.Changefeed    = (*Gateway)(nil)
)

// ---- auth ------------------------------------------------------------------

// SignIn installs the identity subsequent calls run as. A matching profile
// row is created when none exists.
func (g *Gateway) SignIn(userID, email string) {
	g.mu.Lock()
	g.ident = &gateway.Identity{UserID: userID, Email: email}
	if _, ok := g.profiles[userID]; !ok {
		now := time.Now().UTC()
		g.profiles[userID] = gateway.ProfileRow{
			ID: userID, Email: email, CreatedAt: now, UpdatedAt: now,
		}
	}
	g.mu.Unlock()
}

// CurrentIdentity returns the signed-in identity or
// domain.ErrNotAuthenticated.
func (g *Gateway) CurrentIdentity(ctx context.Context) (gateway.Identity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.ident == nil {
		return gateway.Identity{}, fmt.Errorf("memory.Gateway.CurrentIdentity: %w", domain.ErrNotAuthenticated)
	}
	return *g.ident, nil
}

// SignOut clears the identity.
func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	g.ident = nil
	g.mu.Unlock()
	return nil
}

// ---- changefeed ------------------------------------------------------------

type subscription struct {
	topic  gateway.Topic
	events chan gateway.ChangeEvent
	closed chan struct{}
	once   sync.Once
	g      *Gateway
	id     int
}

func (s *subscription) Events() <-chan gateway.ChangeEvent { return s.events }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.g.subMu.Lock()
		delete(s.g.subs, s.id)
		s.g.subMu.Unlock()
		close(s.closed)
		close(s.events)
	})
	return nil
}

// Subscribe opens a changefeed channel for the topic. Delivery is buffered;
// a subscriber that stops draining loses events rather than blocking
// writers, the same trade-off a remote feed makes.
func (g *Gateway) Subscribe(ctx context.Context, topic gateway.Topic) (gateway.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory.Gateway.Subscribe: %w", err)
	}
	g.subMu.Lock()
	id := g.nextSub
	g.nextSub++
	s := &subscription{
		topic:  topic,
		events: make(chan gateway.ChangeEvent, 64),
		closed: make(chan struct{}),
		g:      g,
		id:     id,
	}
	g.subs[id] = s
	g.subMu.Unlock()
	return s, nil
}

// publish fans an event out to every subscription whose topic matches.
// Called after the write lock is released.
func (g *Gateway) publish(table gateway.Table, typ gateway.EventType, tripID string, newRow, oldRow any) {
	ev := gateway.ChangeEvent{Table: table, Type: typ}
	if newRow != nil {
		ev.New, _ = json.Marshal(newRow)
	}
	if oldRow != nil {
		ev.Old, _ = json.Marshal(oldRow)
	}

	g.subMu.Lock()
	targets := make([]*subscription, 0, len(g.subs))
	for _, s := range g.subs {
		if s.topic.Matches(table, tripID) {
			targets = append(targets, s)
		}
	}
	g.subMu.Unlock()

	for _, s := range targets {
		select {
		case <-s.closed:
		case s.events <- ev:
		default: // subscriber not draining; drop
		}
	}
}

// ---- seeding ---------------------------------------------------------------

// SeedProfile installs a profile row directly, for tests and dev fixtures.
func (g *Gateway) SeedProfile(row gateway.ProfileRow) {
	g.mu.Lock()
	g.profiles[row.ID] = row
	g.mu.Unlock()
}

// SeedMember installs a membership row directly.
func (g *Gateway) SeedMember(row gateway.TripMemberRow) {
	g.mu.Lock()
	g.members[row.ID] = row
	g.mu.Unlock()
}

// SeedItinerary installs an itinerary row and its days directly.
func (g *Gateway) SeedItinerary(it gateway.ItineraryRow, days []gateway.ItineraryDayRow) {
	g.mu.Lock()
	g.itineraries[it.ID] = it
	for _, d := range days {
		g.days[d.ID] = d
	}
	g.mu.Unlock()
}
