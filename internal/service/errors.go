package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrTooManyAttempts    = errors.New("Too many login attempts, try again later")

	ErrRequestNotFound = fmt.Errorf("Request %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("User %w", ErrNotFound)
)

// ValidationError is a caller mistake; Message is shown as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError carries the message of a failed bookmaker call.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}
