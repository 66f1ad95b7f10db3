package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/pmallory/tripsync/internal/domain"
	"github.com/pmallory/tripsync/internal/gateway"
	"github.com/pmallory/tripsync/internal/mapper"
)

// LoadMessages replaces the message collection with the trip's active
// messages, oldest first. Unauthenticated: clears the collection without
// touching the gateway.
func (s *Session) LoadMessages(ctx context.Context, tripID string) error {
	if _, err := s.identity(ctx); err != nil {
		if notAuthenticated(err) {
			s.st.SetMessages(nil)
			return nil
		}
		return fmt.Errorf("session.LoadMessages: %w", err)
	}

	rows, err := s.gw.Messages(ctx, tripID)
	if err != nil {
		return fmt.Errorf("session.LoadMessages: %w", err)
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, mapper.Message(row))
	}
	s.st.SetMessages(messages)
	return nil
}

// SendMessage posts a text message to a trip's chat. A client message id is
// minted per send so the realtime echo of the insert can be recognised and
// deduplicated by id.
func (s *Session) SendMessage(ctx context.Context, tripID, content, replyTo string) (domain.Message, error) {
	ident, err := s.identity(ctx)
	if err != nil {
		return domain.Message{}, fmt.Errorf("session.SendMessage: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, fmt.Errorf("session.SendMessage: empty content: %w", domain.ErrValidation)
	}

	clientID := ulid.Make().String()
	ins := gateway.MessageInsert{
		TripID:      tripID,
		UserID:      ident.UserID,
		Content:     content,
		MessageType: string(domain.MessageText),
		ClientMsgID: &clientID,
	}
	if replyTo != "" {
		ins.ReplyTo = &replyTo
	}

	row, err := s.gw.InsertMessage(ctx, ins)
	if err != nil {
		return domain.Message{}, fmt.Errorf("session.SendMessage: %w", err)
	}

	m := mapper.Message(row)
	s.st.AddMessage(m)
	return m, nil
}

// EditMessage replaces a message's content. Author only.
func (s *Session) EditMessage(ctx context.Context, messageID, content string) (domain.Message, error) {
	ident, err := s.identity(ctx)
	if err != nil {
		return domain.Message{}, fmt.Errorf("session.EditMessage: %w", err)
	}
	for _, m := range s.st.Messages() {
		if m.ID == messageID && m.UserID != ident.UserID {
			return domain.Message{}, fmt.Errorf("session.EditMessage: %w", domain.ErrPermission)
		}
	}

	row, err := s.gw.UpdateMessageContent(ctx, messageID, content)
	if err != nil {
		return domain.Message{}, fmt.Errorf("session.EditMessage: %w", err)
	}

	m := mapper.Message(row)
	s.st.UpdateMessage(m)
	return m, nil
}

// DeleteMessage soft-deletes a message. Allowed for the author and for
// moderator/owner roles in the open trip.
func (s *Session) DeleteMessage(ctx context.Context, messageID string) error {
	ident, err := s.identity(ctx)
	if err != nil {
		return fmt.Errorf("session.DeleteMessage: %w", err)
	}
	for _, m := range s.st.Messages() {
		if m.ID != messageID || m.UserID == ident.UserID {
			continue
		}
		role, ok := s.st.RoleOf(ident.UserID)
		if !ok || !role.CanModerate() {
			return fmt.Errorf("session.DeleteMessage: %w", domain.ErrPermission)
		}
	}

	if err := s.gw.SoftDeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("session.DeleteMessage: %w", err)
	}
	s.st.RemoveMessage(messageID)
	return nil
}
