package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	// ErrNoCredentials means the credential pool was constructed empty.
	// Fatal at startup, not recoverable.
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrCredentialsExhausted means every credential was tried for one call
	// and all were rate-limited. Fatal for that call, not for the run.
	ErrCredentialsExhausted = errors.New("all credentials exhausted")

	// ErrNothingToSave means a save batch had no valid records left after
	// filtering.
	ErrNothingToSave = errors.New("nothing to save")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
