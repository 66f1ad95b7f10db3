// Package domain contains the core data types for the trip-planning sync
// client. This package has zero external dependencies and is imported by
// every other internal package (gateway, mapper, store, session).
//
// All entity identifiers are opaque strings assigned by the gateway; the
// client never parses or generates them.
package domain

import "time"

// User is the display profile of an authenticated account.
// Constructed only by the mapper from a gateway profile row.
type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
}
