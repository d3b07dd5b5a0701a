package errors

import (
	"errors"
	"fmt"
)

// Common error types for the manager
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailInUse         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too weak")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrForbidden        = errors.New("forbidden")

	// External token errors
	ErrConfigMissing  = errors.New("oauth configuration missing")
	ErrPopupBlocked   = errors.New("popup blocked")
	ErrUserCancelled  = errors.New("authorization cancelled by user")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrSignInPending  = errors.New("authorization already in progress")

	// Storage errors
	ErrStorageCorrupt = errors.New("stored data corrupt")
	ErrNotFound       = errors.New("not found")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// ProviderError is a non-2xx answer from a remote provider endpoint.
// Body holds the provider's error text as received.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: provider returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: provider returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
