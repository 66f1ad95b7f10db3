package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/mapper"
)

// LoadTrips replaces the trip collection with the user's active trips,
// newest first. Unauthenticated: clears the collection without touching the
// gateway.
func (s *Session) LoadTrips(ctx context.Context) error {
	ident, err := s.identity(ctx)
	if err != nil {
		if notAuthenticated(err) {
			s.st.SetTrips(nil)
			return nil
		}
		return fmt.Errorf("session.LoadTrips: %w", err)
	}

	rows, err := s.gw.TripsForUser(ctx, ident.UserID)
	if err != nil {
		return fmt.Errorf("session.LoadTrips: %w", err)
	}

	trips := make([]domain.Trip, 0, len(rows))
	for _, row := range rows {
		trips = append(trips, mapper.Trip(row))
	}
	s.st.SetTrips(trips)
	return nil
}

// OpenTrip loads one trip into the detail view: the trip row, its active
// members, and its itinerary days.
func (s *Session) OpenTrip(ctx context.Context, tripID string) error {
	if _, err := s.identity(ctx); err != nil {
		return fmt.Errorf("session.OpenTrip: %w", err)
	}

	row, err := s.gw.Trip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("session.OpenTrip: %w", err)
	}
	trip := mapper.Trip(row)
	s.st.SetCurrentTrip(&trip)

	memberRows, err := s.gw.Members(ctx, tripID)
	if err != nil {
		return fmt.Errorf("session.OpenTrip: load members: %w", err)
	}
	members := make([]domain.TripMember, 0, len(memberRows))
	for _, m := range memberRows {
		members = append(members, mapper.Member(m))
	}
	s.st.SetMembers(members)

	dayRows, err := s.gw.ItineraryDays(ctx, tripID)
	if err != nil {
		return fmt.Errorf("session.OpenTrip: load itinerary days: %w", err)
	}
	days := make([]domain.ItineraryDay, 0, len(dayRows))
	for _, d := range dayRows {
		days = append(days, mapper.ItineraryDay(d))
	}
	s.st.SetItineraryDays(days)
	return nil
}

// CloseTrip clears the detail-view state when the trip view is left.
func (s *Session) CloseTrip() {
	s.st.SetCurrentTrip(nil)
	s.st.SetMembers(nil)
	s.st.SetItineraryDays(nil)
	s.st.SetActivities(nil)
	s.st.SetVotes(nil)
	s.st.SetMessages(nil)
}

// CreateTrip persists a new trip owned by the current user and appends the
// gateway's canonical row to the store.
func (s *Session) CreateTrip(ctx context.Context, t domain.Trip) (domain.Trip, error) {
	ident, err := s.identity(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("session.CreateTrip: %w", err)
	}
	if err := validateTrip(t); err != nil {
		return domain.Trip{}, fmt.Errorf("session.CreateTrip: %w", err)
	}
	if t.Status == "" {
		t.Status = domain.TripPlanned
	}

	row, err := s.gw.InsertTrip(ctx, ident.UserID, mapper.TripWrite(t))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("session.CreateTrip: %w", err)
	}

	created := mapper.Trip(row)
	s.st.AddTrip(created)
	return created, nil
}

// UpdateTrip overwrites a trip's mutable fields. Requires the owner or an
// editor role.
func (s *Session) UpdateTrip(ctx context.Context, t domain.Trip) (domain.Trip, error) {
	ident, err := s.identity(ctx)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("session.UpdateTrip: %w", err)
	}
	if err := validateTrip(t); err != nil {
		return domain.Trip{}, fmt.Errorf("session.UpdateTrip: %w", err)
	}
	if !s.canEditTrip(ident.UserID, t.OwnerID) {
		return domain.Trip{}, fmt.Errorf("session.UpdateTrip: %w", domain.ErrPermission)
	}

	row, err := s.gw.UpdateTrip(ctx, t.ID, mapper.TripWrite(t))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("session.UpdateTrip: %w", err)
	}

	updated := mapper.Trip(row)
	s.st.UpdateTrip(updated)
	return updated, nil
}

// DeleteTrip soft-deletes a trip at the gateway and removes it from the
// active collection. Owner only.
func (s *Session) DeleteTrip(ctx context.Context, tripID string) error {
	ident, err := s.identity(ctx)
	if err != nil {
		return fmt.Errorf("session.DeleteTrip: %w", err)
	}
	for _, t := range s.st.Trips() {
		if t.ID == tripID && t.OwnerID != ident.UserID {
			return fmt.Errorf("session.DeleteTrip: %w", domain.ErrPermission)
		}
	}

	if err := s.gw.SoftDeleteTrip(ctx, tripID); err != nil {
		return fmt.Errorf("session.DeleteTrip: %w", err)
	}
	s.st.RemoveTrip(tripID)
	return nil
}

// canEditTrip: owners always may; otherwise the membership role decides.
func (s *Session) canEditTrip(userID, ownerID string) bool {
	if userID == ownerID {
		return true
	}
	role, ok := s.st.RoleOf(userID)
	return ok && role.CanEdit()
}

func validateTrip(t domain.Trip) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(t.Destination) == "" {
		return fmt.Errorf("destination is required: %w", domain.ErrValidation)
	}
	if !t.EndDate.IsZero() && t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("end date before start date: %w", domain.ErrValidation)
	}
	return nil
}
