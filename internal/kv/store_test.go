package kv_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/internal/kv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeUnderTest pairs a Store with a way to move its clock forward
type storeUnderTest struct {
	name    string
	store   kv.Store
	advance func(d time.Duration)
}

func memoryStore(t *testing.T) storeUnderTest {
	t.Helper()
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := kv.NewMemoryStore(kv.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))
	return storeUnderTest{
		name:  "memory",
		store: store,
		advance: func(d time.Duration) {
			mu.Lock()
			now = now.Add(d)
			mu.Unlock()
		},
	}
}

func redisStore(t *testing.T) storeUnderTest {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return storeUnderTest{
		name:    "redis",
		store:   kv.NewRedisStoreFromClient(client),
		advance: mr.FastForward,
	}
}

func stores(t *testing.T) []storeUnderTest {
	return []storeUnderTest{memoryStore(t), redisStore(t)}
}

// TestIncrFirstTTL checks the ttl is only applied when the counter is created
func TestIncrFirstTTL(t *testing.T) {
	ctx := context.Background()
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			n, err := s.store.IncrFirstTTL(ctx, "fail", time.Minute)
			require.NoError(t, err)
			require.EqualValues(t, 1, n)

			s.advance(30 * time.Second)
			n, err = s.store.IncrFirstTTL(ctx, "fail", time.Minute)
			require.NoError(t, err)
			require.EqualValues(t, 2, n)

			ttl, err := s.store.TTL(ctx, "fail")
			require.NoError(t, err)
			require.InDelta(t, (30 * time.Second).Seconds(), ttl.Seconds(), 1)

			s.advance(31 * time.Second)
			n, err = s.store.IncrFirstTTL(ctx, "fail", time.Minute)
			require.NoError(t, err)
			require.EqualValues(t, 1, n, "counter restarts once the window decays")
		})
	}
}

// TestIncrTTL checks the ttl is refreshed on every increment
func TestIncrTTL(t *testing.T) {
	ctx := context.Background()
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			_, err := s.store.IncrTTL(ctx, "level", time.Minute)
			require.NoError(t, err)
			s.advance(45 * time.Second)
			n, err := s.store.IncrTTL(ctx, "level", time.Minute)
			require.NoError(t, err)
			require.EqualValues(t, 2, n)

			s.advance(45 * time.Second)
			ok, err := s.store.Exists(ctx, "level")
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

// TestSetTTLAndExpiry checks markers vanish when their ttl elapses
func TestSetTTLAndExpiry(t *testing.T) {
	ctx := context.Background()
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			require.NoError(t, s.store.SetTTL(ctx, "lock", "1", 10*time.Second))

			ok, err := s.store.Exists(ctx, "lock")
			require.NoError(t, err)
			require.True(t, ok)

			s.advance(10 * time.Second)
			ok, err = s.store.Exists(ctx, "lock")
			require.NoError(t, err)
			require.False(t, ok)

			ttl, err := s.store.TTL(ctx, "lock")
			require.NoError(t, err)
			require.Equal(t, kv.Missing, ttl)
		})
	}
}

// TestTTLWithoutExpiry checks persistent keys report NoExpiry
func TestTTLWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			require.NoError(t, s.store.SetTTL(ctx, "forever", "1", 0))
			ttl, err := s.store.TTL(ctx, "forever")
			require.NoError(t, err)
			require.Equal(t, kv.NoExpiry, ttl)
		})
	}
}

// TestDelete checks multiple keys are removed and missing keys are ignored
func TestDelete(t *testing.T) {
	ctx := context.Background()
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			require.NoError(t, s.store.SetTTL(ctx, "a", "1", time.Minute))
			require.NoError(t, s.store.SetTTL(ctx, "b", "1", time.Minute))
			require.NoError(t, s.store.Delete(ctx, "a", "b", "never-set"))

			for _, k := range []string{"a", "b"} {
				ok, err := s.store.Exists(ctx, k)
				require.NoError(t, err)
				require.False(t, ok)
			}
			require.NoError(t, s.store.Ping(ctx))
		})
	}
}

// TestConcurrentIncrements checks no increments are lost under contention
func TestConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	for _, s := range stores(t) {
		t.Run(s.name, func(t *testing.T) {
			const workers = 50
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.store.IncrFirstTTL(ctx, "hot", time.Minute)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			n, err := s.store.IncrFirstTTL(ctx, "hot", time.Minute)
			require.NoError(t, err)
			require.EqualValues(t, workers+1, n)
		})
	}
}

// TestRedisUnavailable checks connection failures surface as ErrStoreUnavailable
func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	store := kv.NewRedisStore(kv.RedisOptions{Addr: mr.Addr(), Timeout: 200 * time.Millisecond})
	defer store.Close()
	mr.Close()

	ctx := context.Background()
	_, err := store.Exists(ctx, "x")
	require.True(t, autherrors.Is(err, autherrors.ErrStoreUnavailable))
	_, err = store.TTL(ctx, "x")
	require.True(t, autherrors.Is(err, autherrors.ErrStoreUnavailable))
	_, err = store.IncrFirstTTL(ctx, "x", time.Minute)
	require.True(t, autherrors.Is(err, autherrors.ErrStoreUnavailable))
	require.True(t, autherrors.Is(store.Ping(ctx), autherrors.ErrStoreUnavailable))
}

// TestMemoryCancelledContext checks a cancelled request never reads as "absent"
func TestMemoryCancelledContext(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Exists(ctx, "x")
	require.True(t, autherrors.Is(err, autherrors.ErrStoreUnavailable))

	err = store.Ping(ctx)
	require.ErrorIs(t, err, autherrors.ErrStoreUnavailable)
	require.ErrorIs(t, err, context.Canceled)
}

// TestMemorySweep checks expired keys are reclaimed
func TestMemorySweep(t *testing.T) {
	s := memoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.store.SetTTL(ctx, "short", "1", time.Second))
	require.NoError(t, s.store.SetTTL(ctx, "long", "1", time.Hour))
	s.advance(2 * time.Second)

	require.Equal(t, 1, s.store.(*kv.MemoryStore).Sweep())
	ok, err := s.store.Exists(ctx, "long")
	require.NoError(t, err)
	require.True(t, ok)
}
