package domain

import "time"

// Role is a user's membership role within a trip. Roles are resolved by the
// gateway (trip_members); the client only reads them for permission checks.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleEditor    Role = "editor"
	RoleViewer    Role = "viewer"
	RoleModerator Role = "moderator"
)

// TripMember links a user to a trip with a role.
type TripMember struct {
	ID        string
	TripID    string
	UserID    string
	Role      Role
	InvitedBy string // empty for the implicit owner membership
	JoinedAt  time.Time
}

// CanEdit reports whether the role may create or modify trip content.
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// CanModerate reports whether the role may remove other users' messages.
func (r Role) CanModerate() bool {
	return r == RoleOwner || r == RoleModerator
}
