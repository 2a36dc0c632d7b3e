package observability

import (
	"errors"
	"fmt"
	"testing"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/stretchr/testify/require"
)

// TestIsFault checks only infrastructure errors are reported
func TestIsFault(t *testing.T) {
	require.False(t, isFault(fmt.Errorf("login: %w", autherrors.ErrInvalidCredentials)))
	require.False(t, isFault(&autherrors.LockedError{}))
	require.False(t, isFault(autherrors.ErrInvalidRefreshToken))
	require.True(t, isFault(autherrors.Unavailable("redis", errors.New("timeout"))))
	require.True(t, isFault(errors.New("boom")))
}

// TestInitSentryWithoutDSN checks a missing DSN disables reporting
func TestInitSentryWithoutDSN(t *testing.T) {
	require.NoError(t, InitSentry("", "TEST"))
}
