package errors

import "errors"

// Sentinel errors shared by the service and API layers. Services wrap them
// with context; the API maps them to status codes with errors.Is.
var (
	// ErrNotFound: an unknown conversation, message, step or action (404).
	ErrNotFound = errors.New("resource not found")

	// ErrValidation: the request is malformed or breaks a rule of the
	// conversation model (400).
	ErrValidation = errors.New("validation failed")

	// ErrConflict: the request races a session that is closing (409).
	ErrConflict = errors.New("resource conflict")

	// ErrUnavailable: the conversation store cannot be reached (503).
	ErrUnavailable = errors.New("store unavailable")
)
