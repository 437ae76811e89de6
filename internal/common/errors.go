package common

import (
	"fmt"
	"time"
)

// ThrottledError indicates the remote side rejected a send because we exceeded
// its allowed request rate. RetryAfter carries the wait the server asked for.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled by remote, retry after %s", e.RetryAfter)
}

// NewThrottledError creates a ThrottledError from the whole-second delay
// supplied by the remote side.
func NewThrottledError(retryAfterSeconds int) *ThrottledError {
	return &ThrottledError{RetryAfter: time.Duration(retryAfterSeconds) * time.Second}
}

// TransportError indicates a non-throttling delivery failure (network error,
// invalid destination, malformed payload).
type TransportError struct {
	Op      string
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// NewTransportError creates a new TransportError.
func NewTransportError(op, message string) *TransportError {
	return &TransportError{Op: op, Message: message}
}

// ValidationError indicates invalid input data or configuration.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
