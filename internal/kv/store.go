// Package kv is the low-latency shared key-value store behind login throttling
// and access-token revocation.
package kv

import (
	"context"
	"time"
)

// TTL sentinels, matching the values redis returns for PTTL.
const (
	NoExpiry time.Duration = -1
	Missing  time.Duration = -2
)

// Store is implemented by RedisStore and MemoryStore. Every method is a
// single atomic operation against one key (Delete excepted). Failures are
// reported wrapped in errors.ErrStoreUnavailable and must never be read as
// "absent".
type Store interface {
	// IncrFirstTTL increments key and applies ttl only when the increment created it.
	IncrFirstTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// IncrTTL increments key and (re)sets its ttl.
	IncrTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	// TTL returns the remaining lifetime, NoExpiry or Missing.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}
