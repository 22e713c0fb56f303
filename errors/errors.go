package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// ErrResourceNotFound is a typed "not found" result: missing group, user,
	// subscription or removal snapshot.
	ErrResourceNotFound = fmt.Errorf("resource not found")
	// ErrInvariantViolation signals a data-integrity fault, e.g. a removal recorded in
	// the event log without the snapshot that must have been written with it.
	ErrInvariantViolation = fmt.Errorf("invariant violation")

	ErrNotMember        = fmt.Errorf("user is not a member of the topic")
	ErrAlreadyMember    = fmt.Errorf("user is already a member of the topic")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrInvalidTopic     = fmt.Errorf("invalid topic")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrContentTooLong   = fmt.Errorf("message content too long")
)
