package session

import (
	"context"
	"fmt"

	"github.com/pmallory/tripsync/internal/mapper"
)

// InitializeAuth resolves the current session at startup. With no identity
// the store's user is cleared and no error is returned; with an identity the
// profile row is fetched and installed as the signed-in user.
func (s *Session) InitializeAuth(ctx context.Context) error {
	return s.loadUser(ctx, "InitializeAuth")
}

// RefreshUser re-resolves the identity and reloads the profile row. Called
// on every auth-state transition.
func (s *Session) RefreshUser(ctx context.Context) error {
	return s.loadUser(ctx, "RefreshUser")
}

func (s *Session) loadUser(ctx context.Context, op string) error {
	ident, err := s.identity(ctx)
	if err != nil {
		s.st.SetUser(nil)
		if notAuthenticated(err) {
			return nil
		}
		return fmt.Errorf("session.%s: %w", op, err)
	}

	row, err := s.gw.Profile(ctx, ident.UserID)
	if err != nil {
		s.st.SetUser(nil)
		return fmt.Errorf("session.%s: load profile: %w", op, err)
	}

	u := mapper.User(row)
	s.st.SetUser(&u)
	return nil
}

// SignOut ends the gateway session and clears all local state. On gateway
// failure the error propagates and local state is left alone.
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		return fmt.Errorf("session.SignOut: %w", err)
	}
	s.st.Reset()
	return nil
}
