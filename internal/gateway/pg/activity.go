package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

const activityColumns = `
	id::text, trip_id::text, itinerary_day_id::text, title, description,
	category, start_time, end_time, cost_cents, currency, lat, lon,
	status, source, created_at, updated_at, deleted_at`

// Activities returns a trip's live activities ordered by time of day, then
// creation time. start_time is stored as text in either bare-time or
// RFC 3339 form; activity_clock (installed by migration) normalizes both to
// seconds since midnight so the two representations interleave correctly.
func (g *Gateway) Activities(ctx context.Context, tripID string) ([]gateway.ActivityRow, error) {
	const q = `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE trip_id = @trip_id AND deleted_at IS NULL
		ORDER BY activity_clock(start_time) NULLS LAST, created_at, id`

	rows, err := g.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("pg.Gateway.Activities: %w", err)
	}
	return collect(rows, "pg.Gateway.Activities", scanActivity)
}

// ItineraryDays returns the dated slots of a trip's itineraries ordered by
// day index.
func (g *Gateway) ItineraryDays(ctx context.Context, tripID string) ([]gateway.ItineraryDayRow, error) {
	const q = `
		SELECT d.id::text, d.itinerary_id::text, d.day_index, d.date,
		       d.created_at, d.updated_at, d.deleted_at
		FROM itinerary_days d
		JOIN itineraries i ON i.id = d.itinerary_id
		WHERE i.trip_id = @trip_id
		  AND i.deleted_at IS NULL
		  AND d.deleted_at IS NULL
		ORDER BY d.day_index, d.id`

	rows, err := g.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("pg.Gateway.ItineraryDays: %w", err)
	}
	return collect(rows, "pg.Gateway.ItineraryDays", scanItineraryDay)
}

// InsertActivity creates an activity under a trip.
func (g *Gateway) InsertActivity(ctx context.Context, tripID string, w gateway.ActivityWrite) (gateway.ActivityRow, error) {
	const q = `
		INSERT INTO activities (trip_id, itinerary_day_id, title, description,
		                        category, start_time, end_time, cost_cents,
		                        currency, lat, lon, status, source)
		VALUES (@trip_id, @itinerary_day_id, @title, @description, @category,
		        @start_time, @end_time, @cost_cents, @currency, @lat, @lon,
		        @status, @source)
		RETURNING ` + activityColumns

	row := g.db.QueryRow(ctx, q, activityArgs(w, pgx.NamedArgs{"trip_id": tripID}))
	a, err := scanActivity(row)
	if err != nil {
		return gateway.ActivityRow{}, fmt.Errorf("pg.Gateway.InsertActivity: %w", err)
	}
	return a, nil
}

// UpdateActivity overwrites the mutable fields of a live activity.
func (g *Gateway) UpdateActivity(ctx context.Context, activityID string, w gateway.ActivityWrite) (gateway.ActivityRow, error) {
	const q = `
		UPDATE activities
		SET itinerary_day_id = @itinerary_day_id,
		    title            = @title,
		    description      = @description,
		    category         = @category,
		    start_time       = @start_time,
		    end_time         = @end_time,
		    cost_cents       = @cost_cents,
		    currency         = @currency,
		    lat              = @lat,
		    lon              = @lon,
		    status           = @status,
		    source           = @source,
		    updated_at       = now()
		WHERE id = @id AND deleted_at IS NULL
		RETURNING ` + activityColumns

	row := g.db.QueryRow(ctx, q, activityArgs(w, pgx.NamedArgs{"id": activityID}))
	a, err := scanActivity(row)
	if err != nil {
		return gateway.ActivityRow{}, fmt.Errorf("pg.Gateway.UpdateActivity: %w", notFound(err))
	}
	return a, nil
}

// SoftDeleteActivity marks an activity deleted.
func (g *Gateway) SoftDeleteActivity(ctx context.Context, activityID string) error {
	const q = `
		UPDATE activities SET deleted_at = now(), updated_at = now()
		WHERE id = @id AND deleted_at IS NULL`

	tag, err := g.db.Exec(ctx, q, pgx.NamedArgs{"id": activityID})
	if err != nil {
		return fmt.Errorf("pg.Gateway.SoftDeleteActivity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pg.Gateway.SoftDeleteActivity: %w", domain.ErrNotFound)
	}
	return nil
}

func activityArgs(w gateway.ActivityWrite, args pgx.NamedArgs) pgx.NamedArgs {
	args["itinerary_day_id"] = w.ItineraryDayID
	args["title"] = w.Title
	args["description"] = w.Description
	args["category"] = w.Category
	args["start_time"] = w.StartTime
	args["end_time"] = w.EndTime
	args["cost_cents"] = w.CostCents
	args["currency"] = w.Currency
	args["lat"] = w.Lat
	args["lon"] = w.Lon
	args["status"] = w.Status
	args["source"] = w.Source
	return args
}

// scanActivity maps a database row into a gateway.ActivityRow.
func scanActivity(s scanner) (gateway.ActivityRow, error) {
	var (
		a       gateway.ActivityRow
		deleted pgtype.Timestamptz
	)

	err := s.Scan(&a.ID, &a.TripID, &a.ItineraryDayID, &a.Title, &a.Description,
		&a.Category, &a.StartTime, &a.EndTime, &a.CostCents, &a.Currency,
		&a.Lat, &a.Lon, &a.Status, &a.Source, &a.CreatedAt, &a.UpdatedAt, &deleted)
	if err != nil {
		return gateway.ActivityRow{}, err
	}

	a.DeletedAt = timePtr(deleted)
	return a, nil
}

// scanItineraryDay maps a database row into a gateway.ItineraryDayRow.
func scanItineraryDay(s scanner) (gateway.ItineraryDayRow, error) {
	var (
		d       gateway.ItineraryDayRow
		date    pgtype.Date
		deleted pgtype.Timestamptz
	)

	err := s.Scan(&d.ID, &d.ItineraryID, &d.DayIndex, &date,
		&d.CreatedAt, &d.UpdatedAt, &deleted)
	if err != nil {
		return gateway.ItineraryDayRow{}, err
	}

	d.Date = dateString(date)
	d.DeletedAt = timePtr(deleted)
	return d, nil
}
