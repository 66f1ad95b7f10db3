package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

const tripColumns = `
	id::text, owner_id::text, title, destination_text, start_date, end_date,
	status, budget_cents, currency, created_at, updated_at, deleted_at`

// TripsForUser returns trips the user is an active member of, newest first.
// Membership rows are created by the gateway itself: inserting a trip
// installs the owner membership via trigger, so a bare JOIN is enough.
func (g *Gateway) TripsForUser(ctx context.Context, userID string) ([]gateway.TripRow, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips t
		JOIN trip_members m ON m.trip_id = t.id
		WHERE m.user_id = @user_id
		  AND m.removed_at IS NULL
		  AND t.deleted_at IS NULL
		ORDER BY t.created_at DESC, t.id`

	rows, err := g.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("pg.Gateway.TripsForUser: %w", err)
	}
	return collect(rows, "pg.Gateway.TripsForUser", scanTrip)
}

// Trip returns a single live trip by id.
func (g *Gateway) Trip(ctx context.Context, tripID string) (gateway.TripRow, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips t
		WHERE t.id = @id AND t.deleted_at IS NULL`

	row := g.db.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID})
	t, err := scanTrip(row)
	if err != nil {
		return gateway.TripRow{}, fmt.Errorf("pg.Gateway.Trip: %w", notFound(err))
	}
	return t, nil
}

// Members returns the active memberships of a trip, oldest join first.
func (g *Gateway) Members(ctx context.Context, tripID string) ([]gateway.TripMemberRow, error) {
	const q = `
		SELECT id::text, trip_id::text, user_id::text, role, invited_by::text,
		       joined_at, removed_at
		FROM trip_members
		WHERE trip_id = @trip_id AND removed_at IS NULL
		ORDER BY joined_at, id`

	rows, err := g.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("pg.Gateway.Members: %w", err)
	}
	return collect(rows, "pg.Gateway.Members", scanMember)
}

// InsertTrip creates a trip owned by ownerID. The owner membership row is
// installed by an AFTER INSERT trigger so the two rows commit atomically
// without a client-side transaction.
func (g *Gateway) InsertTrip(ctx context.Context, ownerID string, w gateway.TripWrite) (gateway.TripRow, error) {
	const q = `
		INSERT INTO trips (owner_id, title, destination_text, start_date, end_date,
		                   status, budget_cents, currency)
		VALUES (@owner_id, @title, @destination_text, @start_date, @end_date,
		        @status, @budget_cents, @currency)
		RETURNING ` + tripColumns

	row := g.db.QueryRow(ctx, q, tripArgs(w, pgx.NamedArgs{"owner_id": ownerID}))
	t, err := scanTrip(row)
	if err != nil {
		return gateway.TripRow{}, fmt.Errorf("pg.Gateway.InsertTrip: %w", err)
	}
	return t, nil
}

// UpdateTrip overwrites the mutable fields of a live trip.
func (g *Gateway) UpdateTrip(ctx context.Context, tripID string, w gateway.TripWrite) (gateway.TripRow, error) {
	const q = `
		UPDATE trips
		SET title            = @title,
		    destination_text = @destination_text,
		    start_date       = @start_date,
		    end_date         = @end_date,
		    status           = @status,
		    budget_cents     = @budget_cents,
		    currency         = @currency,
		    updated_at       = now()
		WHERE id = @id AND deleted_at IS NULL
		RETURNING ` + tripColumns

	row := g.db.QueryRow(ctx, q, tripArgs(w, pgx.NamedArgs{"id": tripID}))
	t, err := scanTrip(row)
	if err != nil {
		return gateway.TripRow{}, fmt.Errorf("pg.Gateway.UpdateTrip: %w", notFound(err))
	}
	return t, nil
}

// SoftDeleteTrip marks a trip deleted. Already-deleted trips report
// domain.ErrNotFound rather than being touched twice.
func (g *Gateway) SoftDeleteTrip(ctx context.Context, tripID string) error {
	const q = `
		UPDATE trips SET deleted_at = now(), updated_at = now()
		WHERE id = @id AND deleted_at IS NULL`

	tag, err := g.db.Exec(ctx, q, pgx.NamedArgs{"id": tripID})
	if err != nil {
		return fmt.Errorf("pg.Gateway.SoftDeleteTrip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pg.Gateway.SoftDeleteTrip: %w", domain.ErrNotFound)
	}
	return nil
}

// tripArgs merges the TripWrite fields into extra named args.
func tripArgs(w gateway.TripWrite, args pgx.NamedArgs) pgx.NamedArgs {
	args["title"] = w.Title
	args["destination_text"] = w.DestinationText
	args["start_date"] = w.StartDate
	args["end_date"] = w.EndDate
	args["status"] = w.Status
	args["budget_cents"] = w.BudgetCents // nil becomes NULL
	args["currency"] = w.Currency
	return args
}

// scanTrip maps a database row into a gateway.TripRow, converting the DATE
// columns to wire-format strings.
func scanTrip(s scanner) (gateway.TripRow, error) {
	var (
		t          gateway.TripRow
		start, end pgtype.Date
		deleted    pgtype.Timestamptz
	)

	err := s.Scan(&t.ID, &t.OwnerID, &t.Title, &t.DestinationText, &start, &end,
		&t.Status, &t.BudgetCents, &t.Currency, &t.CreatedAt, &t.UpdatedAt, &deleted)
	if err != nil {
		return gateway.TripRow{}, err
	}

	t.StartDate = dateString(start)
	t.EndDate = dateString(end)
	t.DeletedAt = timePtr(deleted)
	return t, nil
}

// scanMember maps a database row into a gateway.TripMemberRow.
func scanMember(s scanner) (gateway.TripMemberRow, error) {
	var (
		m       gateway.TripMemberRow
		removed pgtype.Timestamptz
	)

	err := s.Scan(&m.ID, &m.TripID, &m.UserID, &m.Role, &m.InvitedBy,
		&m.JoinedAt, &removed)
	if err != nil {
		return gateway.TripMemberRow{}, err
	}

	m.RemovedAt = timePtr(removed)
	return m, nil
}
