package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

// InsertTrip persists a new trip and an implicit owner membership, then
// publishes the INSERT.
func (g *Gateway) InsertTrip(ctx context.Context, ownerID string, w gateway.TripWrite) (gateway.TripRow, error) {
	now := time.Now().UTC()
	row := gateway.TripRow{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Title:           w.Title,
		DestinationText: w.DestinationText,
		StartDate:       w.StartDate,
		EndDate:         w.EndDate,
		Status:          w.Status,
		BudgetCents:     w.BudgetCents,
		Currency:        w.Currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	member := gateway.TripMemberRow{
		ID:       uuid.NewString(),
		TripID:   row.ID,
		UserID:   ownerID,
		Role:     string(domain.RoleOwner),
		JoinedAt: now,
	}

	g.mu.Lock()
	g.trips[row.ID] = row
	g.members[member.ID] = member
	g.mu.Unlock()

	g.publish(gateway.TableTrips, gateway.EventInsert, row.ID, row, nil)
	return row, nil
}

// UpdateTrip overwrites a trip's mutable fields and publishes the UPDATE.
func (g *Gateway) UpdateTrip(ctx context.Context, tripID string, w gateway.TripWrite) (gateway.TripRow, error) {
	g.mu.Lock()
	old, ok := g.trips[tripID]
	if !ok || old.DeletedAt != nil {
		g.mu.Unlock()
		return gateway.TripRow{}, fmt.Errorf("memory.Gateway.UpdateTrip: %w", domain.ErrNotFound)
	}
	row := old
	row.Title = w.Title
	row.DestinationText = w.DestinationText
	row.StartDate = w.StartDate
	row.EndDate = w.EndDate
	row.Status = w.Status
	row.BudgetCents = w.BudgetCents
	row.Currency = w.Currency
	row.UpdatedAt = time.Now().UTC()
	g.trips[tripID] = row
	g.mu.Unlock()

	g.publish(gateway.TableTrips, gateway.EventUpdate, tripID, row, old)
	return row, nil
}

// SoftDeleteTrip marks the trip deleted and publishes the change as an
// UPDATE carrying the deleted_at timestamp, which is how a row filtered
// changefeed sees a soft delete.
func (g *Gateway) SoftDeleteTrip(ctx context.Context, tripID string) error {
	g.mu.Lock()
	old, ok := g.trips[tripID]
	if !ok || old.DeletedAt != nil {
		g.mu.Unlock()
		return fmt.Errorf("memory.Gateway.SoftDeleteTrip: %w", domain.ErrNotFound)
	}
	now := time.Now().UTC()
	row := old
	row.DeletedAt = &now
	row.UpdatedAt = now
	g.trips[tripID] = row
	g.mu.Unlock()

	g.publish(gateway.TableTrips, gateway.EventUpdate, tripID, row, old)
	return nil
}

// InsertActivity persists a new activity and publishes the INSERT.
func (g *Gateway) InsertActivity(ctx context.Context, tripID string, w gateway.ActivityWrite) (gateway.ActivityRow, error) {
	now := time.Now().UTC()
	row := gateway.ActivityRow{
		ID:             uuid.NewString(),
		TripID:         tripID,
		ItineraryDayID: w.ItineraryDayID,
		Title:          w.Title,
		Description:    w.Description,
		Category:       w.Category,
		StartTime:      w.StartTime,
		EndTime:        w.EndTime,
		CostCents:      w.CostCents,
		Currency:       w.Currency,
		Lat:            w.Lat,
		Lon:            w.Lon,
		Status:         w.Status,
		Source:         w.Source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	g.mu.Lock()
	g.activities[row.ID] = row
	g.mu.Unlock()

	g.publish(gateway.TableActivities, gateway.EventInsert, tripID, row, nil)
	return row, nil
}

// UpdateActivity overwrites an activity's mutable fields and publishes the
// UPDATE.
func (g *Gateway) UpdateActivity(ctx context.Context, activityID string, w gateway.ActivityWrite) (gateway.ActivityRow, error) {
	g.mu.Lock()
	old, ok := g.activities[activityID]
	if !ok || old.DeletedAt != nil {
		g.mu.Unlock()
		return gateway.ActivityRow{}, fmt.Errorf("memory.Gateway.UpdateActivity: %w", domain.ErrNotFound)
	}
	row := old
	row.ItineraryDayID = w.ItineraryDayID
	row.Title = w.Title
	row.Description = w.Description
	row.Category = w.Category
	row.StartTime = w.StartTime
	row.EndTime = w.EndTime
	row.CostCents = w.CostCents
	row.Currency = w.Currency
	row.Lat = w.Lat
	row.Lon = w.Lon
	row.Status = w.Status
	row.Source = w.Source
	row.UpdatedAt = time.Now().UTC()
	g.activities[activityID] = row
	g.mu.Unlock()

	g.publish(gateway.TableActivities, gateway.EventUpdate, row.TripID, row, old)
	return row, nil
}

// SoftDeleteActivity marks the activity deleted and publishes the UPDATE.
func (g *Gateway) SoftDeleteActivity(ctx context.Context, activityID string) error {
	g.mu.Lock()
	old, ok := g.activities[activityID]
	if !ok || old.DeletedAt != nil {
		g.mu.Unlock()
		return fmt.Errorf("memory.Gateway.SoftDeleteActivity: %w", domain.ErrNotFound)
	}
	now := time.Now().UTC()
	row := old
	row.DeletedAt = &now
	row.UpdatedAt = now
	g.activities[activityID] = row
	g.mu.Unlock()

	g.publish(gateway.TableActivities, gateway.EventUpdate, row.TripID, row, old)
	return nil
}

// UpsertVote inserts the vote or overwrites the existing vote by the same
// user on the same activity. The original id and creation time survive an
// overwrite, matching ON CONFLICT DO UPDATE.
func (g *Gateway) UpsertVote(ctx context.Context, u gateway.VoteUpsert) (gateway.VoteRow, error) {
	g.mu.Lock()
	var existing *gateway.VoteRow
	for _, v := range g.votes {
		if v.ActivityID == u.ActivityID && v.UserID == u.UserID {
			cp := v
			existing = &cp
			break
		}
	}

	var row gateway.VoteRow
	typ := gateway.EventInsert
	if existing != nil {
		row = *existing
		row.Choice = u.Choice
		row.IdempotencyKey = u.IdempotencyKey
		typ = gateway.EventUpdate
	} else {
		row = gateway.VoteRow{
			ID:             uuid.NewString(),
			ActivityID:     u.ActivityID,
			UserID:         u.UserID,
			Choice:         u.Choice,
			IdempotencyKey: u.IdempotencyKey,
			CreatedAt:      time.Now().UTC(),
		}
	}
	g.votes[row.ID] = row
	g.mu.Unlock()

	var old any
	if existing != nil {
		old = *existing
	}
	// Votes carry no trip id; the event goes to every vote subscriber.
	g.publish(gateway.TableVotes, typ, "", row, old)
	return row, nil
}

// InsertMessage persists a new chat message and publishes the INSERT.
func (g *Gateway) InsertMessage(ctx context.Context, m gateway.MessageInsert) (gateway.MessageRow, error) {
	now := time.Now().UTC()
	userID := m.UserID
	row := gateway.MessageRow{
		ID:          uuid.NewString(),
		TripID:      m.TripID,
		UserID:      &userID,
		Content:     m.Content,
		MessageType: m.MessageType,
		ClientMsgID: m.ClientMsgID,
		ReplyTo:     m.ReplyTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	g.mu.Lock()
	g.messages[row.ID] = row
	g.mu.Unlock()

	g.publish(gateway.TableMessages, gateway.EventInsert, row.TripID, row, nil)
	return row, nil
}

// UpdateMessageContent replaces a message's content and publishes the
// UPDATE.
func (g *Gateway) UpdateMessageContent(ctx context.Context, messageID, content string) (gateway.MessageRow, error) {
	g.mu.Lock()
	old, ok := g.messages[messageID]
	if !ok || old.DeletedAt != nil {
		g.mu.Unlock()
		return gateway.MessageRow{}, fmt.Errorf("memory.Gateway.UpdateMessageContent: %w", domain.ErrNotFound)
	}
	row := old
	row.Content = content
	row.UpdatedAt = time.Now().UTC()
	g.messages[messageID] = row
	g.mu.Unlock()

	g.publish(gateway.TableMessages, gateway.EventUpdate, row.TripID, row, old)
	return row, nil
}

// SoftDeleteMessage marks the message deleted and publishes the UPDATE.
func (g *Gateway) SoftDeleteMessage(ctx context.Context, messageID string) error {
	g.mu.Lock()
	old, ok := g.messages[messageID]
	if !ok || old.DeletedAt != nil {
		g.mu.Unlock()
		return fmt.Errorf("memory.Gateway.SoftDeleteMessage: %w", domain.ErrNotFound)
	}
	now := time.Now().UTC()
	row := old
	row.DeletedAt = &now
	row.UpdatedAt = now
	g.messages[messageID] = row
	g.mu.Unlock()

	g.publish(gateway.TableMessages, gateway.EventUpdate, row.TripID, row, old)
	return nil
}
