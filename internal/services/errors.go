package services

import "errors"

// Service-level failures mapped to HTTP statuses by the handlers.
// Ownership failures are deliberately reported through store.ErrNotFound
// so callers cannot distinguish "someone else's record" from "no record".
var (
	// ErrFormLocked rejects record mutations against a form whose
	// status is not read-write.
	ErrFormLocked = errors.New("form locked")

	// ErrValidation flags malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")

	// ErrConflict flags a duplicate oauth registration.
	ErrConflict = errors.New("already registered")

	// ErrBanned rejects any action by a status-flagged account.
	ErrBanned = errors.New("account banned")

	// ErrPrivacyBlocked rejects profile reads blocked by the owner's
	// privacy level.
	ErrPrivacyBlocked = errors.New("profile is private")
)

// Notifier receives change events for fan-out to form watchers.
// Implementations must not block; delivery is best effort and failures
// are never surfaced to the mutating caller.
type Notifier interface {
	Broadcast(formID, eventType string, data any)
}

// NopNotifier discards events; used when no live channel is wired.
type NopNotifier struct{}

func (NopNotifier) Broadcast(formID, eventType string, data any) {}
