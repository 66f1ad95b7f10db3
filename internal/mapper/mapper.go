// Package mapper translates gateway row shapes into domain entities and
// back. Every function is pure and total: shape variance (nulls,
// unparseable optionals) degrades to documented defaults instead of
// returning errors.
//
// Defaulting rules, applied per field:
//   - missing text (description, category, currency) → empty string
//   - missing numerics (cost, lat/lon, budget) → nil, never zero
//   - missing display name → local part of the email
//   - missing avatar → deterministic generated-avatar URL seeded by email
//   - unparseable optional time → nil
package mapper

import (
	"strings"
	"time"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

// wireDate is the format of DATE columns on the wire.
const wireDate = "2006-01-02"

// User converts a profile row into the application User shape.
func User(row gateway.ProfileRow) domain.User {
	name := deref(row.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(row.Email, "@")
	}
	avatar := deref(row.AvatarURL)
	if avatar == "" {
		avatar = "https://api.dicebear.com/7.x/avataaars/svg?seed=" + row.Email
	}
	return domain.User{
		ID:          row.ID,
		Email:       row.Email,
		DisplayName: name,
		AvatarURL:   avatar,
		CreatedAt:   row.CreatedAt,
	}
}

// Trip converts a trip row into a domain Trip.
func Trip(row gateway.TripRow) domain.Trip {
	return domain.Trip{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		Destination: row.DestinationText,
		StartDate:   parseDate(row.StartDate),
		EndDate:     parseDate(row.EndDate),
		Status:      domain.TripStatus(row.Status),
		BudgetCents: row.BudgetCents,
		Currency:    deref(row.Currency),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// TripWrite converts a domain Trip into the field set sent on insert and
// update. An absent budget stays NULL; an empty currency stays NULL. Mapping
// a row through Trip and back through TripWrite changes no untouched field.
func TripWrite(t domain.Trip) gateway.TripWrite {
	return gateway.TripWrite{
		Title:           t.Title,
		DestinationText: t.Destination,
		StartDate:       t.StartDate.Format(wireDate),
		EndDate:         t.EndDate.Format(wireDate),
		Status:          string(t.Status),
		BudgetCents:     t.BudgetCents,
		Currency:        optional(t.Currency),
	}
}

// Member converts a trip membership row.
func Member(row gateway.TripMemberRow) domain.TripMember {
	return domain.TripMember{
		ID:        row.ID,
		TripID:    row.TripID,
		UserID:    row.UserID,
		Role:      domain.Role(row.Role),
		InvitedBy: deref(row.InvitedBy),
		JoinedAt:  row.JoinedAt,
	}
}

// ItineraryDay converts an itinerary day row.
func ItineraryDay(row gateway.ItineraryDayRow) domain.ItineraryDay {
	return domain.ItineraryDay{
		ID:          row.ID,
		ItineraryID: row.ItineraryID,
		DayIndex:    row.DayIndex,
		Date:        parseDate(row.Date),
	}
}

// Activity converts an activity row. Start and end times keep their wire
// kind (instant vs. time of day); anything unparseable maps to nil.
func Activity(row gateway.ActivityRow) domain.Activity {
	return domain.Activity{
		ID:             row.ID,
		TripID:         row.TripID,
		ItineraryDayID: deref(row.ItineraryDayID),
		Title:          row.Title,
		Description:    deref(row.Description),
		Category:       deref(row.Category),
		StartTime:      timeValue(row.StartTime),
		EndTime:        timeValue(row.EndTime),
		CostCents:      row.CostCents,
		Currency:       deref(row.Currency),
		Lat:            row.Lat,
		Lon:            row.Lon,
		Status:         domain.ActivityStatus(row.Status),
		Source:         domain.ActivitySource(row.Source),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

// ActivityWrite converts a domain Activity into the field set sent on insert
// and update. Times are written back in their original wire representation,
// never in anchored form.
func ActivityWrite(a domain.Activity) gateway.ActivityWrite {
	return gateway.ActivityWrite{
		ItineraryDayID: optional(a.ItineraryDayID),
		Title:          a.Title,
		Description:    optional(a.Description),
		Category:       optional(a.Category),
		StartTime:      wireTime(a.StartTime),
		EndTime:        wireTime(a.EndTime),
		CostCents:      a.CostCents,
		Currency:       optional(a.Currency),
		Lat:            a.Lat,
		Lon:            a.Lon,
		Status:         string(a.Status),
		Source:         string(a.Source),
	}
}

// Vote converts a vote row.
func Vote(row gateway.VoteRow) domain.Vote {
	return domain.Vote{
		ID:         row.ID,
		ActivityID: row.ActivityID,
		UserID:     row.UserID,
		Choice:     domain.VoteChoice(row.Choice),
		CreatedAt:  row.CreatedAt,
	}
}

// Message converts a message row. A null author maps to an empty UserID.
func Message(row gateway.MessageRow) domain.Message {
	return domain.Message{
		ID:          row.ID,
		TripID:      row.TripID,
		UserID:      deref(row.UserID),
		Content:     row.Content,
		Type:        domain.MessageType(row.MessageType),
		ClientMsgID: deref(row.ClientMsgID),
		ReplyTo:     deref(row.ReplyTo),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// deref returns the pointed-to string or "" for nil.
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// optional returns nil for "" so empty optionals persist as NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseDate decodes a wire DATE. Bad input maps to the zero time; dates are
// required columns, so this only happens on malformed payloads.
func parseDate(s string) time.Time {
	t, err := time.Parse(wireDate, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func timeValue(p *string) *domain.TimeValue {
	if p == nil {
		return nil
	}
	v, ok := domain.ParseTimeValue(*p)
	if !ok {
		return nil
	}
	return &v
}

func wireTime(v *domain.TimeValue) *string {
	if v == nil {
		return nil
	}
	s := v.Wire()
	return &s
}
