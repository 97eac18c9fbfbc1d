// Package apperr defines the error taxonomy shared by every layer of the service
// and maps each class to its HTTP status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ValidationError indicates malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// AuthenticationError indicates bad credentials or an expired, malformed or revoked token.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}

// AuthorizationError indicates the caller is authenticated but lacks the required role.
type AuthorizationError struct {
	Required string
}

func (e *AuthorizationError) Error() string {
	if e.Required == "" {
		return "forbidden"
	}
	return fmt.Sprintf("forbidden: requires %s role", e.Required)
}

// NotFoundError indicates the requested resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConflictError indicates a uniqueness violation, such as a duplicate email.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// RateLimitError indicates too many attempts. RetryAfter is the wait hint for the client.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "too many requests"
	}
	return fmt.Sprintf("%s, retry after %ds", msg, int(e.RetryAfter.Seconds()))
}

// ExternalServiceError indicates an upstream API or model failure.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ExternalServiceError) Error() string {
	msg := fmt.Sprintf("%s error", e.Service)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Cause
}

// ConfigurationError indicates a required secret or key is absent.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("configuration error: %s is required but not set", e.Key)
}

// HTTPStatus returns the HTTP status code for an error, looking through wrapped errors.
func HTTPStatus(err error) int {
	var (
		validationErr *ValidationError
		authnErr      *AuthenticationError
		authzErr      *AuthorizationError
		notFoundErr   *NotFoundError
		conflictErr   *ConflictError
		rateErr       *RateLimitError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &authnErr):
		return http.StatusUnauthorized
	case errors.As(err, &authzErr):
		return http.StatusForbidden
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RetryAfter reports the retry hint carried by a RateLimitError, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.RetryAfter, true
	}
	return 0, false
}

// PublicMessage returns the message safe to show to API clients.
// Internal failures are masked so upstream details do not leak.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		var extErr *ExternalServiceError
		if errors.As(err, &extErr) {
			return fmt.Sprintf("%s is unavailable", extErr.Service)
		}
		return "internal server error"
	}
	var (
		validationErr *ValidationError
		authnErr      *AuthenticationError
		authzErr      *AuthorizationError
		notFoundErr   *NotFoundError
		conflictErr   *ConflictError
		rateErr       *RateLimitError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &authnErr):
		return authnErr.Error()
	case errors.As(err, &authzErr):
		return authzErr.Error()
	case errors.As(err, &notFoundErr):
		return notFoundErr.Error()
	case errors.As(err, &conflictErr):
		return conflictErr.Error()
	case errors.As(err, &rateErr):
		return rateErr.Error()
	}
	return err.Error()
}
