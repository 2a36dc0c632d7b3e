package refresh_test

import (
	"context"
	"sync"
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/tenants"
	tenantrepofakes "github.com/jrsteele09/go-hris-auth/tenants/repofakes"
	"github.com/jrsteele09/go-hris-auth/token"
	"github.com/jrsteele09/go-hris-auth/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-hris-auth/token/refresh/repofake"
	"github.com/jrsteele09/go-hris-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-hris-auth/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	refreshExpiry = 14 * 24 * time.Hour
	testUserID    = "user-1"
	testIP        = "203.0.113.7"
)

type jwtConfig struct{}

func (jwtConfig) GetIssuer() string                    { return "issuer" }
func (jwtConfig) GetAudience() string                  { return "audience" }
func (jwtConfig) GetSigningKey() string                { return "" }
func (jwtConfig) GetAccessTokenExpiry() time.Duration  { return 15 * time.Minute }
func (jwtConfig) GetRefreshTokenExpiry() time.Duration { return refreshExpiry }

// testFixture holds the manager, its fake repos and a controllable clock
type testFixture struct {
	lock    sync.Mutex
	now     time.Time
	users   *fakeuserrepo.FakeUserRepo
	repo    *refreshrepofake.FakeRefreshTokenRepo
	manager *refresh.Manager
	user    *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	f.users = fakeuserrepo.NewFakeUserRepo()
	f.repo = refreshrepofake.NewFakeRefreshTokenRepo(f.users)
	f.manager = refresh.NewManager(f.repo, jwtConfig{}, refresh.WithNowFunc(f.clock))

	f.user = &users.User{
		ID:       testUserID,
		TenantID: "tenant-1",
		Username: "finteq_admin",
		Active:   true,
		Roles:    []string{users.RoleStandardUser},
	}
	require.NoError(t, f.users.Upsert(context.Background(), f.user))
	return f
}

func (f *testFixture) clock() time.Time {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.lock.Lock()
	f.now = f.now.Add(d)
	f.lock.Unlock()
}

var meta = refresh.Metadata{IP: testIP, UserAgent: "test-agent"}

// TestIssue checks only the hash of the secret is stored
func TestIssue(t *testing.T) {
	f := setupTestFixture(t)

	secret, record, err := f.manager.Issue(context.Background(), f.user, meta)
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	stored, ok := f.repo.Get(record.ID)
	require.True(t, ok)
	require.Equal(t, token.HashRefreshSecret(secret), stored.TokenHash)
	require.NotEqual(t, secret, stored.TokenHash)
	require.Equal(t, f.now.Add(refreshExpiry), stored.ExpiresAt)
	require.Equal(t, testIP, stored.CreatedByIP)
	require.Equal(t, refresh.StateIssued, stored.State(f.now))
}

// TestRotateBuildsChain checks rotation links the old record to its successor
func TestRotateBuildsChain(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	secret, first, err := f.manager.Issue(ctx, f.user, meta)
	require.NoError(t, err)

	f.advance(time.Minute)
	nextSecret, second, err := f.manager.Rotate(ctx, secret, meta)
	require.NoError(t, err)
	require.NotEqual(t, secret, nextSecret)
	require.Equal(t, testUserID, second.User.ID)

	old, _ := f.repo.Get(first.ID)
	require.Equal(t, refresh.StateRotated, old.State(f.now))
	require.Equal(t, second.ID, old.ReplacedBy)
	require.Equal(t, f.now, *old.RevokedAt)

	tail, _ := f.repo.Get(second.ID)
	require.Equal(t, refresh.StateIssued, tail.State(f.now))
}

// TestRotateRederivesRoles checks the successor carries the user's current roles
func TestRotateRederivesRoles(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	secret, _, err := f.manager.Issue(ctx, f.user, meta)
	require.NoError(t, err)
	require.NoError(t, f.users.SetRoles(ctx, testUserID, []string{users.RoleAdmin}))

	_, next, err := f.manager.Rotate(ctx, secret, meta)
	require.NoError(t, err)
	require.Equal(t, []string{users.RoleAdmin}, next.User.Roles)
}

// TestRejectedSecretsFailIdentically checks rotated, revoked, expired and unknown secrets
func TestRejectedSecretsFailIdentically(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *testFixture) string
	}{
		{"unknown", func(t *testing.T, f *testFixture) string {
			secret, err := token.GenerateRefreshSecret()
			require.NoError(t, err)
			return secret
		}},
		{"rotated", func(t *testing.T, f *testFixture) string {
			secret, _, err := f.manager.Issue(ctx, f.user, meta)
			require.NoError(t, err)
			_, _, err = f.manager.Rotate(ctx, secret, meta)
			require.NoError(t, err)
			return secret
		}},
		{"revoked", func(t *testing.T, f *testFixture) string {
			secret, _, err := f.manager.Issue(ctx, f.user, meta)
			require.NoError(t, err)
			require.NoError(t, f.manager.RevokeBySecret(ctx, secret, meta))
			return secret
		}},
		{"expired", func(t *testing.T, f *testFixture) string {
			secret, _, err := f.manager.Issue(ctx, f.user, meta)
			require.NoError(t, err)
			f.advance(refreshExpiry)
			return secret
		}},
		{"inactive user", func(t *testing.T, f *testFixture) string {
			secret, _, err := f.manager.Issue(ctx, f.user, meta)
			require.NoError(t, err)
			require.NoError(t, f.users.SetActive(ctx, testUserID, false))
			return secret
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			secret := tc.prepare(t, f)

			for i := 0; i < 2; i++ {
				_, _, err := f.manager.Rotate(ctx, secret, meta)
				require.Equal(t, autherrors.ErrInvalidRefreshToken, err)
			}
		})
	}
}

// TestConcurrentRotationSingleWinner checks two presentations of one secret can't both succeed
func TestConcurrentRotationSingleWinner(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		secret, _, err := f.manager.Issue(ctx, f.user, meta)
		require.NoError(t, err)

		const callers = 8
		errs := make([]error, callers)
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, _, errs[i] = f.manager.Rotate(ctx, secret, meta)
			}(i)
		}
		close(start)
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			require.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)
		}
		require.Equal(t, 1, succeeded)
	}
}

// TestRevokeBySecretIsIdempotent checks logout never errors for unknown or repeated secrets
func TestRevokeBySecretIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	secret, record, err := f.manager.Issue(ctx, f.user, meta)
	require.NoError(t, err)

	require.NoError(t, f.manager.RevokeBySecret(ctx, secret, meta))
	first, _ := f.repo.Get(record.ID)
	require.Equal(t, refresh.StateRevoked, first.State(f.now))

	f.advance(time.Minute)
	require.NoError(t, f.manager.RevokeBySecret(ctx, secret, meta))
	second, _ := f.repo.Get(record.ID)
	require.Equal(t, *first.RevokedAt, *second.RevokedAt)

	require.NoError(t, f.manager.RevokeBySecret(ctx, "never-issued", meta))
	require.NoError(t, f.manager.RevokeBySecret(ctx, "", meta))
}

// TestPurge checks only records inactive for longer than the retention are removed
func TestPurge(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	revokedSecret, revoked, err := f.manager.Issue(ctx, f.user, meta)
	require.NoError(t, err)
	require.NoError(t, f.manager.RevokeBySecret(ctx, revokedSecret, meta))
	_, live, err := f.manager.Issue(ctx, f.user, meta)
	require.NoError(t, err)

	f.advance(72*time.Hour + time.Second)
	n, err := f.manager.Purge(ctx, 72*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, ok := f.repo.Get(revoked.ID)
	require.False(t, ok)
	_, ok = f.repo.Get(live.ID)
	require.True(t, ok)
}

// TestRotateChecksTenant checks rotation needs the user's tenant to exist and be active
func TestRotateChecksTenant(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	tenantRepo := tenantrepofakes.NewFakeTenantRepo()
	manager := refresh.NewManager(f.repo, jwtConfig{}, refresh.WithNowFunc(f.clock), refresh.WithTenants(tenantRepo))

	secret, _, err := manager.Issue(ctx, f.user, meta)
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, secret, meta)
	require.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)

	require.NoError(t, tenantRepo.Upsert(ctx, &tenants.Tenant{ID: f.user.TenantID, Code: "FINTEQ", Active: false}))
	_, _, err = manager.Rotate(ctx, secret, meta)
	require.ErrorIs(t, err, autherrors.ErrInvalidRefreshToken)

	require.NoError(t, tenantRepo.Upsert(ctx, &tenants.Tenant{ID: f.user.TenantID, Code: "FINTEQ", Active: true}))
	next, _, err := manager.Rotate(ctx, secret, meta)
	require.NoError(t, err)
	require.NotEqual(t, secret, next)
}
