package errors_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/stretchr/testify/require"
)

// TestLockedErrorUnwrapsToAccountLocked checks the boundary can match a lock by category
func TestLockedErrorUnwrapsToAccountLocked(t *testing.T) {
	err := fmt.Errorf("login: %w", &autherrors.LockedError{RetryAfter: 90 * time.Second})

	require.True(t, autherrors.Is(err, autherrors.ErrAccountLocked))

	var locked *autherrors.LockedError
	require.True(t, autherrors.As(err, &locked))
	require.Equal(t, 90*time.Second, locked.RetryAfter)
	require.Contains(t, err.Error(), "retry after 90s")
}

// TestUnavailableKeepsCause checks store faults keep both the category and the driver error
func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := autherrors.Unavailable("throttle.IsLocked", cause)

	require.True(t, autherrors.Is(err, autherrors.ErrStoreUnavailable))
	require.True(t, autherrors.Is(err, cause))
	require.Nil(t, autherrors.Unavailable("noop", nil))
}

// TestWrapf checks nil passthrough and wrapping
func TestWrapf(t *testing.T) {
	require.Nil(t, autherrors.Wrapf(nil, "ignored"))

	err := autherrors.Wrapf(autherrors.ErrNotFound, "user %s", "bob")
	require.EqualError(t, err, "user bob: not found")
	require.True(t, autherrors.Is(err, autherrors.ErrNotFound))
}
