package kv

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

const shardCount = 32

var _ Store = (*MemoryStore)(nil)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type shard struct {
	lock    sync.Mutex
	entries map[string]entry
}

// MemoryStore is an in-process Store for single-instance deployments and tests.
// Expired keys are invisible immediately and reclaimed by Sweep.
type MemoryStore struct {
	shards  [shardCount]*shard
	nowFunc func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithClock replaces time.Now (primarily for testing)
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(m *MemoryStore) {
		m.nowFunc = now
	}
}

func NewMemoryStore(options ...MemoryStoreOption) *MemoryStore {
	m := &MemoryStore{nowFunc: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]entry)}
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

// live returns the entry for key, dropping it if it has expired. Caller holds the shard lock.
func (sh *shard) live(key string, now time.Time) (entry, bool) {
	e, ok := sh.entries[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(now) {
		delete(sh.entries, key)
		return entry{}, false
	}
	return e, true
}

func (m *MemoryStore) incr(ctx context.Context, key string, ttl time.Duration, always bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, autherrors.Unavailable("memory incr "+key, err)
	}
	now := m.nowFunc()
	sh := m.shardFor(key)
	sh.lock.Lock()
	defer sh.lock.Unlock()

	e, ok := sh.live(key, now)
	var n int64
	if ok {
		var err error
		if n, err = strconv.ParseInt(e.value, 10, 64); err != nil {
			return 0, autherrors.Wrapf(err, "memory incr %s: value is not an integer", key)
		}
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	if (always || !ok) && ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	sh.entries[key] = e
	return n, nil
}

func (m *MemoryStore) IncrFirstTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return m.incr(ctx, key, ttl, false)
}

func (m *MemoryStore) IncrTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return m.incr(ctx, key, ttl, true)
}

func (m *MemoryStore) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return autherrors.Unavailable("memory set "+key, err)
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.nowFunc().Add(ttl)
	}
	sh := m.shardFor(key)
	sh.lock.Lock()
	sh.entries[key] = e
	sh.lock.Unlock()
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, autherrors.Unavailable("memory exists "+key, err)
	}
	sh := m.shardFor(key)
	sh.lock.Lock()
	defer sh.lock.Unlock()
	_, ok := sh.live(key, m.nowFunc())
	return ok, nil
}

func (m *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, autherrors.Unavailable("memory ttl "+key, err)
	}
	now := m.nowFunc()
	sh := m.shardFor(key)
	sh.lock.Lock()
	defer sh.lock.Unlock()
	e, ok := sh.live(key, now)
	switch {
	case !ok:
		return Missing, nil
	case e.expiresAt.IsZero():
		return NoExpiry, nil
	}
	return e.expiresAt.Sub(now), nil
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return autherrors.Unavailable("memory del", err)
	}
	for _, key := range keys {
		sh := m.shardFor(key)
		sh.lock.Lock()
		delete(sh.entries, key)
		sh.lock.Unlock()
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return autherrors.Unavailable("memory ping", err)
	}
	return nil
}

// Sweep removes expired keys and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.nowFunc()
	removed := 0
	for _, sh := range m.shards {
		sh.lock.Lock()
		for k, e := range sh.entries {
			if e.expired(now) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.lock.Unlock()
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (m *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					log.Debug().Int("removed", n).Msg("kv sweep")
				}
			}
		}
	}()
}
