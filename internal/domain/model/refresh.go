package model

import "time"

// Refresh triggers.
const (
	TriggerAPI       = "api"
	TriggerScheduled = "scheduled"
	TriggerStartup   = "startup"
	TriggerTUI       = "tui"
)

// RefreshRequest asks the refresh worker to reload the session records.
// ID is the idempotency key; a repeated ID is dropped before it reaches the queue.
type RefreshRequest struct {
	ID          string    `json:"requestId"`
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requestedAt"`
}
