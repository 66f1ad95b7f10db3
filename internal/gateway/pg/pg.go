// Package pg implements the gateway contract against Postgres with pgx.
// Only SQL and row mapping live here — no business logic. The changefeed
// side rides LISTEN/NOTIFY: migration-installed triggers emit one JSON
// payload per row change on a single channel, and Changefeed fans the
// payloads out to topic subscribers.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and
// pgx.Tx. Accepting this instead of *pgxpool.Pool directly lets integration
// tests pass a transaction that is rolled back after each test, giving free
// per-test isolation without manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Gateway is the Postgres implementation of gateway.Gateway.
type Gateway struct {
	db db
}

var _ gateway.Gateway = (*Gateway)(nil)

// NewGateway constructs a Gateway over the provided connection. In
// production pass *pgxpool.Pool; in tests pass a pgx.Tx.
func NewGateway(db db) *Gateway {
	return &Gateway{db: db}
}

// scanner is satisfied by both pgx.Row and pgx.Rows, so one scan helper
// serves QueryRow and Query alike.
type scanner interface {
	Scan(dest ...any) error
}

// wireDate is the wire format of DATE columns.
const wireDate = "2006-01-02"

// dateString renders a pgtype.Date in wire form.
func dateString(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(wireDate)
}

// notFound maps pgx.ErrNoRows onto the domain sentinel, leaving other
// errors untouched.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// timePtr converts a nullable timestamp.
func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

// collect drains rows through scan, wrapping errors with op.
func collect[T any](rows pgx.Rows, op string, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}
