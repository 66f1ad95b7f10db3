package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/mapper"
)

// LoadActivities replaces the activity collection with the trip's active
// activities, ordered by time of day then creation time. Unauthenticated:
// clears the collection without touching the gateway.
func (s *Session) LoadActivities(ctx context.Context, tripID string) error {
	if _, err := s.identity(ctx); err != nil {
		if notAuthenticated(err) {
			s.st.SetActivities(nil)
			return nil
		}
		return fmt.Errorf("session.LoadActivities: %w", err)
	}

	rows, err := s.gw.Activities(ctx, tripID)
	if err != nil {
		return fmt.Errorf("session.LoadActivities: %w", err)
	}

	activities := make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, mapper.Activity(row))
	}
	s.st.SetActivities(activities)
	return nil
}

// CreateActivity persists a new activity on a trip and appends the
// gateway's canonical row to the store. Status defaults to proposed and
// source to manual.
func (s *Session) CreateActivity(ctx context.Context, tripID string, a domain.Activity) (domain.Activity, error) {
	if _, err := s.identity(ctx); err != nil {
		return domain.Activity{}, fmt.Errorf("session.CreateActivity: %w", err)
	}
	if strings.TrimSpace(a.Title) == "" {
		return domain.Activity{}, fmt.Errorf("session.CreateActivity: title is required: %w", domain.ErrValidation)
	}
	if a.Status == "" {
		a.Status = domain.ActivityProposed
	}
	if a.Source == "" {
		a.Source = domain.SourceManual
	}

	row, err := s.gw.InsertActivity(ctx, tripID, mapper.ActivityWrite(a))
	if err != nil {
		return domain.Activity{}, fmt.Errorf("session.CreateActivity: %w", err)
	}

	created := mapper.Activity(row)
	s.st.AddActivity(created)
	return created, nil
}

// UpdateActivity overwrites an activity's mutable fields in place.
func (s *Session) UpdateActivity(ctx context.Context, a domain.Activity) (domain.Activity, error) {
	if _, err := s.identity(ctx); err != nil {
		return domain.Activity{}, fmt.Errorf("session.UpdateActivity: %w", err)
	}

	row, err := s.gw.UpdateActivity(ctx, a.ID, mapper.ActivityWrite(a))
	if err != nil {
		return domain.Activity{}, fmt.Errorf("session.UpdateActivity: %w", err)
	}

	updated := mapper.Activity(row)
	s.st.UpdateActivity(updated)
	return updated, nil
}

// DeleteActivity soft-deletes an activity at the gateway and removes it
// (and its votes) from the active collections.
func (s *Session) DeleteActivity(ctx context.Context, activityID string) error {
	if _, err := s.identity(ctx); err != nil {
		return fmt.Errorf("session.DeleteActivity: %w", err)
	}

	if err := s.gw.SoftDeleteActivity(ctx, activityID); err != nil {
		return fmt.Errorf("session.DeleteActivity: %w", err)
	}
	s.st.RemoveActivity(activityID)
	return nil
}

// GenerateItinerary asks the configured generator for proposed activities
// and persists each through the normal mutation path with source=ai. The
// "generating" flag is set for the duration and always cleared. Activities
// persisted before a failure stay: they are confirmed gateway rows.
func (s *Session) GenerateItinerary(ctx context.Context, tripID string) error {
	if _, err := s.identity(ctx); err != nil {
		return fmt.Errorf("session.GenerateItinerary: %w", err)
	}
	if s.gen == nil {
		return fmt.Errorf("session.GenerateItinerary: %w", errNoGenerator)
	}

	row, err := s.gw.Trip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("session.GenerateItinerary: %w", err)
	}

	s.st.SetGeneratingItinerary(true)
	defer s.st.SetGeneratingItinerary(false)

	writes, err := s.gen.Generate(ctx, mapper.Trip(row), s.st.ItineraryDays())
	if err != nil {
		return fmt.Errorf("session.GenerateItinerary: %w", err)
	}

	for _, w := range writes {
		w.Source = string(domain.SourceAI)
		if w.Status == "" {
			w.Status = string(domain.ActivityProposed)
		}
		inserted, err := s.gw.InsertActivity(ctx, tripID, w)
		if err != nil {
			return fmt.Errorf("session.GenerateItinerary: insert %q: %w", w.Title, err)
		}
		s.st.AddActivity(mapper.Activity(inserted))
	}
	return nil
}
