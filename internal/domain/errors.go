// Package domain defines core types and errors for the invoice analytics service.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource or a busy session).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// === Chat stream errors ===

// ErrStreamBodyMissing is returned when the analytics service accepted the
// request but no readable body came back. It is handled as a transport failure.
var ErrStreamBodyMissing = errors.New("no streaming body")

// TransportError indicates the chat request could not be sent or the
// connection dropped before a terminal event arrived.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteRejectionError is a non-success status on the initial chat response.
// Body holds the full response text and becomes the session error verbatim.
type RemoteRejectionError struct {
	StatusCode int
	Body       string
}

func (e *RemoteRejectionError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analytics service returned status %d", e.StatusCode)
	}
	return e.Body
}

// FrameDecodeError indicates one frame payload could not be decoded into an
// event. It is recovered at the frame level and never fails a session.
type FrameDecodeError struct {
	Payload string
	Reason  string
	Err     error
}

func (e *FrameDecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return "decode frame: " + e.Reason
}

func (e *FrameDecodeError) Unwrap() error { return e.Err }

// RemoteReportedError is an explicit error event sent by the analytics service.
type RemoteReportedError struct {
	Message string
}

func (e *RemoteReportedError) Error() string { return e.Message }
