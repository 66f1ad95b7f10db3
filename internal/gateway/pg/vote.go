package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pmallory/tripsync/internal/gateway"
)

const voteColumns = `
	id::text, activity_id::text, user_id::text, choice, idempotency_key, created_at`

// Votes returns all votes whose activity id is in the given set. The
// unfiltered-channel consumers never call this with an empty set; an empty
// set still yields an empty result rather than an error.
func (g *Gateway) Votes(ctx context.Context, activityIDs []string) ([]gateway.VoteRow, error) {
	const q = `
		SELECT ` + voteColumns + `
		FROM votes
		WHERE activity_id = ANY(@activity_ids::uuid[])
		ORDER BY created_at, id`

	rows, err := g.db.Query(ctx, q, pgx.NamedArgs{"activity_ids": activityIDs})
	if err != nil {
		return nil, fmt.Errorf("pg.Gateway.Votes: %w", err)
	}
	return collect(rows, "pg.Gateway.Votes", scanVote)
}

// UpsertVote inserts or overwrites the caller's vote on an activity. The
// unique index on (activity_id, user_id) makes the overwrite race-free: two
// concurrent votes by the same user collapse to a single row with the
// last-committed choice.
func (g *Gateway) UpsertVote(ctx context.Context, u gateway.VoteUpsert) (gateway.VoteRow, error) {
	const q = `
		INSERT INTO votes (activity_id, user_id, choice, idempotency_key)
		VALUES (@activity_id, @user_id, @choice, @idempotency_key)
		ON CONFLICT (activity_id, user_id) DO UPDATE
		SET choice          = EXCLUDED.choice,
		    idempotency_key = EXCLUDED.idempotency_key
		RETURNING ` + voteColumns

	args := pgx.NamedArgs{
		"activity_id":     u.ActivityID,
		"user_id":         u.UserID,
		"choice":          u.Choice,
		"idempotency_key": u.IdempotencyKey,
	}

	row := g.db.QueryRow(ctx, q, args)
	v, err := scanVote(row)
	if err != nil {
		return gateway.VoteRow{}, fmt.Errorf("pg.Gateway.UpsertVote: %w", err)
	}
	return v, nil
}

// scanVote maps a database row into a gateway.VoteRow.
func scanVote(s scanner) (gateway.VoteRow, error) {
	var v gateway.VoteRow
	err := s.Scan(&v.ID, &v.ActivityID, &v.UserID, &v.Choice,
		&v.IdempotencyKey, &v.CreatedAt)
	if err != nil {
		return gateway.VoteRow{}, err
	}
	return v, nil
}
