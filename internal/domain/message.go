package domain

import "time"

// MessageType tags the kind of chat entry.
type MessageType string

const (
	MessageText       MessageType = "text"
	MessageSystem     MessageType = "system"
	MessageAttachment MessageType = "attachment"
)

// Message is a chat entry in a trip. UserID is empty when the author was
// removed from the platform. ClientMsgID is minted by the sending client so
// a realtime echo of an own message can be recognised.
type Message struct {
	ID          string
	TripID      string
	UserID      string
	Content     string
	Type        MessageType
	ClientMsgID string
	ReplyTo     string // id of the replied-to message, empty when none
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
