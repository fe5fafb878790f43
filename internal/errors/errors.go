package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error code
type ErrorCode string

const (
	// Validation errors, rejected before any I/O
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Storage errors
	CodeStorage            ErrorCode = "STORAGE_ERROR"
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	CodeQuotaExceeded      ErrorCode = "QUOTA_EXCEEDED"

	// Parse errors
	CodeParse      ErrorCode = "PARSE_ERROR"
	CodeNoChannels ErrorCode = "NO_CHANNELS"

	// Network errors
	CodeNetwork    ErrorCode = "NETWORK_ERROR"
	CodeHTTPStatus ErrorCode = "HTTP_STATUS_ERROR"

	CodeNotFound ErrorCode = "NOT_FOUND"

	// Config errors
	CodeConfig ErrorCode = "CONFIG_ERROR"

	CodeInternal ErrorCode = "INTERNAL_ERROR"
	CodeUnknown  ErrorCode = "UNKNOWN_ERROR"
)

// AppError represents a structured application error. Its message is meant
// to be shown to the user as is; the code drives programmatic handling.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError creates a validation error
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// StorageError creates a storage error
func StorageError(message string, err error) *AppError {
	return Wrap(err, CodeStorage, message)
}

// ParseError creates a parse error
func ParseError(message string, err error) *AppError {
	return Wrap(err, CodeParse, message)
}

// NetworkError creates a network error for a remote url
func NetworkError(url, message string, err error) *AppError {
	return Wrap(err, CodeNetwork, message).WithContext("url", url)
}

// ConfigError creates a configuration error
func ConfigError(message string, err error) *AppError {
	if err != nil {
		return Wrap(err, CodeConfig, message)
	}
	return New(CodeConfig, message)
}

// NotFoundError creates a not found error
func NotFoundError(resource, identifier string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, identifier))
}

// GetErrorCode returns the code of the outermost AppError in the chain
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// HasCode reports whether any AppError in the chain carries code
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return HasCode(err, CodeValidation) || HasCode(err, CodeInvalidInput)
}

// IsNetworkError checks if an error came from fetching a remote playlist
func IsNetworkError(err error) bool {
	return HasCode(err, CodeNetwork) || HasCode(err, CodeHTTPStatus)
}
