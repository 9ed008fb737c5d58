// Package errors provides error code definitions for the Go-UI boundary.
package errors

import "fmt"

// ErrorCode represents a unique error code that can be bridged to the UI layer.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Storage errors
	ErrStorage          ErrorCode = "STORAGE_ERROR"
	ErrStorageCorrupted ErrorCode = "STORAGE_CORRUPTED"

	// Queue errors
	ErrQueueItemNotFound ErrorCode = "QUEUE_ITEM_NOT_FOUND"

	// Save gateway failure kinds
	ErrGatewayOffline    ErrorCode = "GATEWAY_OFFLINE"
	ErrGatewayQuota      ErrorCode = "GATEWAY_QUOTA_EXCEEDED"
	ErrGatewayPermission ErrorCode = "GATEWAY_PERMISSION_DENIED"
	ErrGatewayNetwork    ErrorCode = "GATEWAY_NETWORK"
	ErrGatewaySave       ErrorCode = "GATEWAY_SAVE_FAILED"

	// Sync errors
	ErrSyncOffline    ErrorCode = "SYNC_OFFLINE"
	ErrSyncFailed     ErrorCode = "SYNC_FAILED"
	ErrSyncInProgress ErrorCode = "SYNC_IN_PROGRESS"

	// Config errors
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Media errors
	ErrMediaDecode ErrorCode = "MEDIA_DECODE_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the error code of err, or ErrInternal for plain errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternal
}
