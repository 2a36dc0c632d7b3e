package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
)

// InitSentry is a no-op without a DSN.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports infrastructure faults. Expected domain failures
// (bad credentials, locks, rejected refresh secrets) are not reported.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil || !isFault(err) {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

func isFault(err error) bool {
	for _, expected := range []error{
		autherrors.ErrInvalidCredentials,
		autherrors.ErrAccountLocked,
		autherrors.ErrInvalidRefreshToken,
		autherrors.ErrInvalidToken,
		autherrors.ErrTokenRevoked,
		autherrors.ErrValidation,
		autherrors.ErrConflict,
		autherrors.ErrNotFound,
		autherrors.ErrForbidden,
	} {
		if autherrors.Is(err, expected) {
			return false
		}
	}
	return true
}
