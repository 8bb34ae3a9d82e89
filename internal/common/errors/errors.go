// Package errors provides standardized error handling for the follow-up
// mail dispatcher.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSettingsLoadFailed ErrorCode = "SETTINGS_LOAD_FAILED"
	ErrCodeSettingsInvalid    ErrorCode = "SETTINGS_INVALID"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeEventQueryFailed         ErrorCode = "EVENT_QUERY_FAILED"
	ErrCodeBookingQueryFailed       ErrorCode = "BOOKING_QUERY_FAILED"

	ErrCodeInvalidRecipient ErrorCode = "INVALID_RECIPIENT"
	ErrCodeMailSendFailed   ErrorCode = "MAIL_SEND_FAILED"

	ErrCodeRunLockHeld   ErrorCode = "RUN_LOCK_HELD"
	ErrCodeRunLockFailed ErrorCode = "RUN_LOCK_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or empty when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsRetryable reports whether the error is worth retrying on a later run.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// NewSettingsLoadFailedError creates a retryable settings store error.
func NewSettingsLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSettingsLoadFailed,
		Message:   "Failed to load dispatch settings",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSettingsInvalidError creates a non-retryable settings validation error.
func NewSettingsInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSettingsInvalid,
		Message:   "Dispatch settings record failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventQueryFailedError creates a retryable event query error.
func NewEventQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventQueryFailed,
		Message:   "Event query execution error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBookingQueryFailedError creates a retryable booking query error.
func NewBookingQueryFailedError(eventID int64, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBookingQueryFailed,
		Message:   "Booking query execution error",
		Details:   fmt.Sprintf("eventId: %d, error: %s", eventID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]interface{}{"eventId": eventID},
	}
}

// NewInvalidRecipientError creates a non-retryable recipient error.
func NewInvalidRecipientError(address string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecipient,
		Message:   "Recipient address is not a valid email address",
		Details:   fmt.Sprintf("address: %q", address),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMailSendFailedError creates a retryable mail transport error.
func NewMailSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMailSendFailed,
		Message:   "Mail transport send error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRunLockHeldError signals that today's dispatch already ran (or is
// running elsewhere). Not retryable within the same day.
func NewRunLockHeldError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunLockHeld,
		Message:   "Daily run lock is already held",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRunLockFailedError creates a retryable lock backend error.
func NewRunLockFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunLockFailed,
		Message:   "Daily run lock backend error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
