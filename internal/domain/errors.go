package domain

import "errors"

var (
	// ErrNotFound is returned when the referenced token does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the token's current state no longer matches the caller's expectation
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition is returned when the desired status is not reachable from the current status
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidOperation is returned when the operation is not permitted in the token's current status
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrValidation is returned when the input fails validation
	ErrValidation = errors.New("validation error")

	// ErrPublishDeferred is returned when an event cannot be enqueued for publication right now.
	// The mutation it describes is already committed.
	ErrPublishDeferred = errors.New("publish deferred")

	// ErrPublisherClosed is returned when enqueueing to a publisher that has been closed
	ErrPublisherClosed = errors.New("publisher closed")
)

// Code returns a stable machine readable code for a ledger error
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	default:
		return "internal_error"
	}
}
