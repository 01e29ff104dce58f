package compaction

import (
	"errors"
	"fmt"
)

// Sentinel errors for GC operations.
var (
	// ErrInvalidConfig indicates invalid GC configuration.
	ErrInvalidConfig = errors.New("invalid compaction configuration")

	// ErrNoMessages indicates a cycle was requested for an empty conversation.
	ErrNoMessages = errors.New("no messages to compact")

	// ErrBrainLookupFailed indicates the brain-id lookup collaborator failed.
	ErrBrainLookupFailed = errors.New("brain id lookup failed")

	// ErrExternalizeFailed indicates write-through could not externalize a message.
	ErrExternalizeFailed = errors.New("externalize failed")

	// ErrTokenCountingFailed indicates token counting failed.
	ErrTokenCountingFailed = errors.New("token counting failed")
)

// Error provides structured error context for GC operations.
type Error struct {
	// Op is the operation that failed (e.g., "Classify", "Compress", "Collect")
	Op string

	// SessionID is the session ID if applicable
	SessionID string

	// Err is the underlying error
	Err error

	// Cause is the collaborator error behind Err, if any
	Cause error

	// Context holds additional key-value pairs for debugging
	Context map[string]any
}

// Error returns a formatted error message.
func (e *Error) Error() string {
	msg := fmt.Sprintf("compaction %s failed", e.Op)
	if e.SessionID != "" {
		msg += fmt.Sprintf(" for session %s", e.SessionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns Err and Cause for errors.Is/errors.As support.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:      op,
		Err:     err,
		Context: make(map[string]any),
	}
}

// WithSession sets the session ID on the error and returns the error for chaining.
func (e *Error) WithSession(sessionID string) *Error {
	e.SessionID = sessionID
	return e
}

// WithCause records the collaborator error behind Err and returns the error for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithContext adds a key-value pair to the error context and returns the error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WrapError wraps an error with operation context. If err is nil, returns nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// WrapErrorWithSession wraps an error with operation and session context.
func WrapErrorWithSession(op, sessionID string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err).WithSession(sessionID)
}
