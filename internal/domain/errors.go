package domain

import "errors"

// ErrNotAuthenticated is returned by session operations when no identity can
// be resolved. It is a definitive precondition failure: callers surface it to
// the user instead of retrying.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNotFound is returned by gateway reads and writes when the requested
// row does not exist or is soft-deleted.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. missing required field, end date before start date).
var ErrValidation = errors.New("validation error")

// ErrPermission is returned when the authenticated user's trip role does not
// allow the attempted operation (e.g. a viewer editing a trip, a non-author
// editing someone else's message).
var ErrPermission = errors.New("permission denied")
