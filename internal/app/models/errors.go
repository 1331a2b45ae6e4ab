package models

import "errors"

// Domain specific errors shared across services and handlers.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation failed")
	ErrQuotaExceeded   = errors.New("posting limit reached for current month")
	ErrNoSubscription  = errors.New("no active subscription")
	ErrModeration      = errors.New("listing content rejected by moderation")
)
