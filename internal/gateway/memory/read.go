package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

// TripsForUser returns trips with an active membership for the user,
// excluding soft-deleted trips, newest first.
func (g *Gateway) TripsForUser(ctx context.Context, userID string) ([]gateway.TripRow, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	memberOf := map[string]bool{}
	for _, m := range g.members {
		if m.UserID == userID && m.RemovedAt == nil {
			memberOf[m.TripID] = true
		}
	}

	var out []gateway.TripRow
	for _, t := range g.trips {
		if t.DeletedAt == nil && (memberOf[t.ID] || t.OwnerID == userID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Trip returns a single active trip.
func (g *Gateway) Trip(ctx context.Context, tripID string) (gateway.TripRow, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.trips[tripID]
	if !ok || t.DeletedAt != nil {
		return gateway.TripRow{}, fmt.Errorf("memory.Gateway.Trip: %w", domain.ErrNotFound)
	}
	return t, nil
}

// Members returns a trip's active memberships.
func (g *Gateway) Members(ctx context.Context, tripID string) ([]gateway.TripMemberRow, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []gateway.TripMemberRow
	for _, m := range g.members {
		if m.TripID == tripID && m.RemovedAt == nil {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

// ItineraryDays returns the trip's days ordered by day index, resolved
// through the trip's active itineraries.
func (g *Gateway) ItineraryDays(ctx context.Context, tripID string) ([]gateway.ItineraryDayRow, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ofTrip := map[string]bool{}
	for _, it := range g.itineraries {
		if it.TripID == tripID && it.DeletedAt == nil {
			ofTrip[it.ID] = true
		}
	}

	var out []gateway.ItineraryDayRow
	for _, d := range g.days {
		if ofTrip[d.ItineraryID] && d.DeletedAt == nil {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayIndex < out[j].DayIndex })
	return out, nil
}

// Activities returns a trip's active activities ordered by time of day then
// creation time; activities without a start time sort last.
func (g *Gateway) Activities(ctx context.Context, tripID string) ([]gateway.ActivityRow, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []gateway.ActivityRow
	for _, a := range g.activities {
		if a.TripID == tripID && a.DeletedAt == nil {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, iok := daySeconds(out[i].StartTime)
		sj, jok := daySeconds(out[j].StartTime)
		switch {
		case iok != jok:
			return iok // rows with a start time first
		case iok && si != sj:
			return si < sj
		default:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
	})
	return out, nil
}

func daySeconds(wire *string) (int, bool) {
	if wire == nil {
		return 0, false
	}
	v, ok := domain.ParseTimeValue(*wire)
	if !ok {
		return 0, false
	}
	return v.DaySeconds(), true
}

// Votes returns every vote whose activity id is in the given set.
func (g *Gateway) Votes(ctx context.Context, activityIDs []string) ([]gateway.VoteRow, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	wanted := make(map[string]bool, len(activityIDs))
	for _, id := range activityIDs {
		wanted[id] = true
	}

	var out []gateway.VoteRow
	for _, v := range g.votes {
		if wanted[v.ActivityID] {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Messages returns a trip's active messages oldest first.
func (g *Gateway) Messages(ctx context.Context, tripID string) ([]gateway.MessageRow, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []gateway.MessageRow
	for _, m := range g.messages {
		if m.TripID == tripID && m.DeletedAt == nil {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Profile returns the profile row for a user id.
func (g *Gateway) Profile(ctx context.Context, userID string) (gateway.ProfileRow, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.profiles[userID]
	if !ok || p.DeletedAt != nil {
		return gateway.ProfileRow{}, fmt.Errorf("memory.Gateway.Profile: %w", domain.ErrNotFound)
	}
	return p, nil
}
