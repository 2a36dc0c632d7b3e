// Package throttle implements escalating login lockout over failed attempts.
//
// State for each (tenant, username) lives in three keys of the shared kv store:
// a failure counter, a lock flag and a lock level. Every mutation is a single
// atomic store operation; concurrent threshold crossings may escalate twice
// but can never leave the account unlocked.
package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-hris-auth/internal/config"
	"github.com/jrsteele09/go-hris-auth/internal/kv"
	"github.com/jrsteele09/go-hris-auth/internal/metrics"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "auth:login"

// Result is returned by RegisterFailure.
type Result struct {
	LockedNow    bool
	RetryAfter   time.Duration
	AttemptCount int
}

type LoginThrottle struct {
	store       kv.Store
	maxAttempts int
	lockStep    time.Duration
	levelTTL    time.Duration
}

func New(store kv.Store, cfg config.ThrottleConfig) *LoginThrottle {
	return &LoginThrottle{
		store:       store,
		maxAttempts: cfg.GetMaxLoginAttempts(),
		lockStep:    cfg.GetLockStep(),
		levelTTL:    cfg.GetLockLevelTTL(),
	}
}

// MaxAttempts is the number of consecutive failures that starts a lock.
func (lt *LoginThrottle) MaxAttempts() int {
	return lt.maxAttempts
}

// IsLocked reports whether the principal is locked and for how long. It has no side effects.
func (lt *LoginThrottle) IsLocked(ctx context.Context, tenantCode, username string) (bool, time.Duration, error) {
	ttl, err := lt.store.TTL(ctx, lockKey(tenantCode, username))
	if err != nil {
		return false, 0, fmt.Errorf("throttle.IsLocked: %w", err)
	}
	if ttl == kv.Missing {
		return false, 0, nil
	}
	return true, lt.retryAfter(ttl), nil
}

// RegisterFailure records a failed login. ip is only logged.
func (lt *LoginThrottle) RegisterFailure(ctx context.Context, tenantCode, username, ip string) (Result, error) {
	locked, retryAfter, err := lt.IsLocked(ctx, tenantCode, username)
	if err != nil {
		return Result{}, fmt.Errorf("throttle.RegisterFailure: %w", err)
	}
	if locked {
		return Result{LockedNow: true, RetryAfter: retryAfter, AttemptCount: lt.maxAttempts}, nil
	}

	count, err := lt.store.IncrFirstTTL(ctx, failKey(tenantCode, username), lt.levelTTL)
	if err != nil {
		return Result{}, fmt.Errorf("throttle.RegisterFailure: %w", err)
	}
	if int(count) < lt.maxAttempts {
		log.Info().Str("tenant", tenantCode).Str("username", username).Str("ip", ip).
			Int64("attempt", count).Msg("login failure registered")
		return Result{AttemptCount: int(count)}, nil
	}

	level, err := lt.store.IncrTTL(ctx, levelKey(tenantCode, username), lt.levelTTL)
	if err != nil {
		return Result{}, fmt.Errorf("throttle.RegisterFailure escalate: %w", err)
	}
	lockFor := lt.lockStep * time.Duration(level)
	if err := lt.store.SetTTL(ctx, lockKey(tenantCode, username), "1", lockFor); err != nil {
		return Result{}, fmt.Errorf("throttle.RegisterFailure lock: %w", err)
	}
	if err := lt.store.Delete(ctx, failKey(tenantCode, username)); err != nil {
		return Result{}, fmt.Errorf("throttle.RegisterFailure reset: %w", err)
	}

	metrics.LockoutsTotal.Inc()
	log.Warn().Str("tenant", tenantCode).Str("username", username).Str("ip", ip).
		Int64("level", level).Dur("lock", lockFor).Msg("login locked")
	return Result{LockedNow: true, RetryAfter: lockFor, AttemptCount: int(count)}, nil
}

// Clear resets all throttle state after a successful login or an admin unlock.
func (lt *LoginThrottle) Clear(ctx context.Context, tenantCode, username string) error {
	err := lt.store.Delete(ctx,
		failKey(tenantCode, username),
		lockKey(tenantCode, username),
		levelKey(tenantCode, username),
	)
	if err != nil {
		return fmt.Errorf("throttle.Clear: %w", err)
	}
	return nil
}

// retryAfter rounds down to whole seconds with a floor of one. A lock flag
// without an expiry reports a single step.
func (lt *LoginThrottle) retryAfter(ttl time.Duration) time.Duration {
	if ttl == kv.NoExpiry {
		return lt.lockStep
	}
	secs := ttl.Truncate(time.Second)
	if secs < time.Second {
		return time.Second
	}
	return secs
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func failKey(tenant, user string) string {
	return fmt.Sprintf("%s:fail:%s:%s", keyPrefix, normalize(tenant), normalize(user))
}

func lockKey(tenant, user string) string {
	return fmt.Sprintf("%s:lock:%s:%s", keyPrefix, normalize(tenant), normalize(user))
}

func levelKey(tenant, user string) string {
	return fmt.Sprintf("%s:level:%s:%s", keyPrefix, normalize(tenant), normalize(user))
}
