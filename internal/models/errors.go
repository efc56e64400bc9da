package models

import (
	"errors"
	"fmt"
)

// AppError is the application error type carrying a stable code.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes used across the client.
const (
	CodeAuthRequired     = "AUTH_REQUIRED"
	CodeValidationFailed = "VALIDATION_ERROR"
	CodeRemoteRejected   = "REMOTE_REJECTED"
	CodeNotFound         = "NOT_FOUND"
	CodeUploadFailed     = "UPLOAD_FAILED"
)

// Predefined error constructors
func NewAuthRequiredError(action string) *AppError {
	return &AppError{
		Code:    CodeAuthRequired,
		Message: fmt.Sprintf("you must be signed in to %s", action),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidationFailed,
		Message: message,
	}
}

func NewNotFoundError(resource string, key any) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, key),
	}
}

func NewRemoteError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeRemoteRejected,
		Message: fmt.Sprintf("backend rejected %s", operation),
		Err:     err,
	}
}

// NewUploadError reports a failed upload of a single file. Batch uploads
// surface one of these per failed file, never a single aggregate failure.
func NewUploadError(filename string, err error) *AppError {
	return &AppError{
		Code:    CodeUploadFailed,
		Message: fmt.Sprintf("upload of %s failed", filename),
		Err:     err,
	}
}

// CodeOf returns the AppError code of err, or "" if err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND application error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsAuthRequired reports whether err is an AUTH_REQUIRED application error.
func IsAuthRequired(err error) bool {
	return CodeOf(err) == CodeAuthRequired
}

// IsValidation reports whether err is a VALIDATION_ERROR application error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidationFailed
}
