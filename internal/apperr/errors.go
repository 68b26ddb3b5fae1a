// Package apperr defines the error kinds handlers map to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ValidationError reports a missing or empty required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation returns a ValidationError for field.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthError means the request carries no valid session.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "Authentication required"
	}
	return e.Reason
}

// RateLimitError means the client address is locked out of login.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Too many failed attempts. Try again in %d seconds.", Seconds(e.RetryAfter))
}

// NotFoundError is returned for unknown resources. Item operations on a
// missing id are no-ops and never produce it.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// StoreError wraps a storage failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store wraps err in a StoreError; nil stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// HTTPStatus maps an error to the status code an API response should carry.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		ae *AuthError
		re *RateLimitError
		ne *NotFoundError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &re):
		return http.StatusTooManyRequests
	case errors.As(err, &ne):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns text that is safe to show a client. Store and
// unknown errors collapse to a generic message.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}

// Seconds rounds d up to whole seconds, never below zero.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
