package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
)

const messageColumns = `
	id::text, trip_id::text, user_id::text, content, message_type,
	client_msg_id, reply_to::text, created_at, updated_at, deleted_at`

// Messages returns a trip's live messages oldest first.
func (g *Gateway) Messages(ctx context.Context, tripID string) ([]gateway.MessageRow, error) {
	const q = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE trip_id = @trip_id AND deleted_at IS NULL
		ORDER BY created_at, id`

	rows, err := g.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("pg.Gateway.Messages: %w", err)
	}
	return collect(rows, "pg.Gateway.Messages", scanMessage)
}

// InsertMessage appends a chat message to a trip.
func (g *Gateway) InsertMessage(ctx context.Context, m gateway.MessageInsert) (gateway.MessageRow, error) {
	const q = `
		INSERT INTO messages (trip_id, user_id, content, message_type,
		                      client_msg_id, reply_to)
		VALUES (@trip_id, @user_id, @content, @message_type,
		        @client_msg_id, @reply_to)
		RETURNING ` + messageColumns

	args := pgx.NamedArgs{
		"trip_id":       m.TripID,
		"user_id":       m.UserID,
		"content":       m.Content,
		"message_type":  m.MessageType,
		"client_msg_id": m.ClientMsgID,
		"reply_to":      m.ReplyTo,
	}

	row := g.db.QueryRow(ctx, q, args)
	out, err := scanMessage(row)
	if err != nil {
		return gateway.MessageRow{}, fmt.Errorf("pg.Gateway.InsertMessage: %w", err)
	}
	return out, nil
}

// UpdateMessageContent replaces the body of a live message.
func (g *Gateway) UpdateMessageContent(ctx context.Context, messageID, content string) (gateway.MessageRow, error) {
	const q = `
		UPDATE messages
		SET content = @content, updated_at = now()
		WHERE id = @id AND deleted_at IS NULL
		RETURNING ` + messageColumns

	row := g.db.QueryRow(ctx, q, pgx.NamedArgs{"id": messageID, "content": content})
	out, err := scanMessage(row)
	if err != nil {
		return gateway.MessageRow{}, fmt.Errorf("pg.Gateway.UpdateMessageContent: %w", notFound(err))
	}
	return out, nil
}

// SoftDeleteMessage marks a message deleted.
func (g *Gateway) SoftDeleteMessage(ctx context.Context, messageID string) error {
	const q = `
		UPDATE messages SET deleted_at = now(), updated_at = now()
		WHERE id = @id AND deleted_at IS NULL`

	tag, err := g.db.Exec(ctx, q, pgx.NamedArgs{"id": messageID})
	if err != nil {
		return fmt.Errorf("pg.Gateway.SoftDeleteMessage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pg.Gateway.SoftDeleteMessage: %w", domain.ErrNotFound)
	}
	return nil
}

// scanMessage maps a database row into a gateway.MessageRow.
func scanMessage(s scanner) (gateway.MessageRow, error) {
	var (
		m       gateway.MessageRow
		deleted pgtype.Timestamptz
	)

	err := s.Scan(&m.ID, &m.TripID, &m.UserID, &m.Content, &m.MessageType,
		&m.ClientMsgID, &m.ReplyTo, &m.CreatedAt, &m.UpdatedAt, &deleted)
	if err != nil {
		return gateway.MessageRow{}, err
	}

	m.DeletedAt = timePtr(deleted)
	return m, nil
}
