// Package session is the mutation façade: the only sanctioned path for
// creates, updates, and deletes, plus the initial collection loads and the
// auth lifecycle. Every mutation resolves the authenticated identity first,
// writes to the gateway, and only on success applies the gateway's canonical
// row to the store. A gateway failure propagates to the caller with no
// store mutation; retries are a UI concern and never happen here.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
	"github.com/pmallory/tripsync/internal/store"
)

// ItineraryGenerator proposes activities for a trip. The concrete
// implementation calls the external AI itinerary API; it is injected so the
// session layer stays network-agnostic and testable.
type ItineraryGenerator interface {
	Generate(ctx context.Context, trip domain.Trip, days []domain.ItineraryDay) ([]gateway.ActivityWrite, error)
}

// Session orchestrates gateway calls and store applies for one signed-in
// user. Construct with NewSession and share a single instance per process.
type Session struct {
	auth gateway.Authenticator
	gw   gateway.Gateway
	st   *store.Store
	gen  ItineraryGenerator // nil when AI generation is not configured
	log  *slog.Logger
}

// NewSession constructs a Session. gen may be nil; a nil logger falls back
// to slog.Default().
func NewSession(auth gateway.Authenticator, gw gateway.Gateway, st *store.Store, gen ItineraryGenerator, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{auth: auth, gw: gw, st: st, gen: gen, log: log}
}

// Store returns the entity store this session applies to.
func (s *Session) Store() *store.Store { return s.st }

// identity resolves the current authenticated identity or fails with
// domain.ErrNotAuthenticated.
func (s *Session) identity(ctx context.Context) (gateway.Identity, error) {
	ident, err := s.auth.CurrentIdentity(ctx)
	if err != nil {
		return gateway.Identity{}, fmt.Errorf("session: resolve identity: %w", err)
	}
	return ident, nil
}

// notAuthenticated reports whether err is the missing-identity precondition
// failure, which initial loads treat as "clear and stay quiet" rather than
// an error (matching the load contract: unauthenticated loads reset state
// and never touch the gateway).
func notAuthenticated(err error) bool {
	return errors.Is(err, domain.ErrNotAuthenticated)
}

var errNoGenerator = errors.New("no itinerary generator configured")
