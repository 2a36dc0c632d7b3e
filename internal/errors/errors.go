package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error categories surfaced by the credential core. Callers wrap these with
// fmt.Errorf("...: %w") and the HTTP boundary maps them with Is.
var (
	// Authentication errors
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountLocked       = errors.New("account locked")
	ErrInvalidRefreshToken = errors.New("invalid or reused refresh token")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenRevoked        = errors.New("token revoked")

	// Infrastructure errors
	ErrConfiguration    = errors.New("configuration error")
	ErrStoreUnavailable = errors.New("store unavailable")

	// General errors
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// LockedError carries the remaining lock duration for a throttled principal.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: retry after %ds", ErrAccountLocked, int64(e.RetryAfter/time.Second))
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Unavailable marks err as a store fault.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
