package contextgc

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrStorage is returned when a brain-id store operation failed
	ErrStorage = errors.New("storage operation failed")

	// ErrSessionRequired is returned when a store call is made without a session ID
	ErrSessionRequired = errors.New("session id is required")
)

// StoreError represents a failed brain-id store operation
type StoreError struct {
	Op        string // Operation that failed
	SessionID string // Session ID if applicable
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("%s (session=%s): %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// NewStoreError wraps err as a storage failure of op.
// errors.Is(err, ErrStorage) holds for the result.
func NewStoreError(op, sessionID string, err error) *StoreError {
	return &StoreError{
		Op:        op,
		SessionID: sessionID,
		Err:       err,
	}
}
