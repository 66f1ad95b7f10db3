package session

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
	"github.com/pmallory/tripsync/internal/mapper"
)

// LoadVotes replaces the vote lists of the given activities with the
// gateway's current state. Votes of activities outside the set are left
// untouched (merge semantics). An empty id set is a complete no-op: no
// gateway call, no store change. Unauthenticated: clears the vote map
// without touching the gateway.
func (s *Session) LoadVotes(ctx context.Context, activityIDs []string) error {
	if len(activityIDs) == 0 {
		return nil
	}

	if _, err := s.identity(ctx); err != nil {
		if notAuthenticated(err) {
			s.st.SetVotes(nil)
			return nil
		}
		return fmt.Errorf("session.LoadVotes: %w", err)
	}

	rows, err := s.gw.Votes(ctx, activityIDs)
	if err != nil {
		return fmt.Errorf("session.LoadVotes: %w", err)
	}

	grouped := make(map[string][]domain.Vote, len(activityIDs))
	for _, row := range rows {
		grouped[row.ActivityID] = append(grouped[row.ActivityID], mapper.Vote(row))
	}
	// Replace every requested activity's list, including ones with no votes,
	// so a stale local list cannot survive a reload.
	for _, id := range activityIDs {
		s.st.SetActivityVotes(id, grouped[id])
	}
	return nil
}

// SetVote is the idempotent "set my vote on this activity to choice"
// operation, keyed (activity, user) both at the gateway (upsert) and in the
// store (per-user replacement). Repeated calls never duplicate; the latest
// choice wins.
func (s *Session) SetVote(ctx context.Context, activityID string, choice domain.VoteChoice) (domain.Vote, error) {
	ident, err := s.identity(ctx)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("session.SetVote: %w", err)
	}

	key := ulid.Make().String()
	row, err := s.gw.UpsertVote(ctx, gateway.VoteUpsert{
		ActivityID:     activityID,
		UserID:         ident.UserID,
		Choice:         string(choice),
		IdempotencyKey: &key,
	})
	if err != nil {
		return domain.Vote{}, fmt.Errorf("session.SetVote: %w", err)
	}

	v := mapper.Vote(row)
	s.st.SetUserVote(v)
	return v, nil
}
