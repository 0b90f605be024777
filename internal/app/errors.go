package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrNotStarted rejects refresh requests before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrDuplicateRequest reports a refresh request id that was already accepted.
	ErrDuplicateRequest = errors.New("duplicate refresh request")
)
