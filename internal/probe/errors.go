package probe

import "errors"

// Sentinel kinds for probe failures.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrNotSettled   = errors.New("dashboard did not settle")
	ErrInconsistent = errors.New("inconsistent view")
	ErrIdempotency  = errors.New("duplicate request was not recognised")
)
