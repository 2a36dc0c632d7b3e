package token_test

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/internal/kv"
	"github.com/jrsteele09/go-hris-auth/token"
	"github.com/jrsteele09/go-hris-auth/users"
	"github.com/stretchr/testify/require"
)

const (
	signingKey   = "0123456789abcdef0123456789abcdef"
	issuer       = "Hris.AuthService"
	audience     = "Hris.Client"
	accessExpiry = 15 * time.Minute
)

type jwtConfig struct {
	key string
}

func (c jwtConfig) GetIssuer() string                    { return issuer }
func (c jwtConfig) GetAudience() string                  { return audience }
func (c jwtConfig) GetSigningKey() string                { return c.key }
func (c jwtConfig) GetAccessTokenExpiry() time.Duration  { return accessExpiry }
func (c jwtConfig) GetRefreshTokenExpiry() time.Duration { return 14 * 24 * time.Hour }

// testFixture holds an issuer with a controllable clock
type testFixture struct {
	lock   sync.Mutex
	now    time.Time
	issuer *token.Issuer
	store  *kv.MemoryStore
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{now: time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)}
	var err error
	f.issuer, err = token.NewIssuer(jwtConfig{key: signingKey}, token.WithNowFunc(f.clock))
	require.NoError(t, err)
	f.store = kv.NewMemoryStore(kv.WithClock(f.clock))
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

func testUser() *users.User {
	return &users.User{
		ID:       "user-1",
		TenantID: "tenant-1",
		Username: "finteq_admin",
		Email:    "admin@finteq.example",
	}
}

// TestNewIssuerRejectsShortKeys checks the key length is enforced at construction
func TestNewIssuerRejectsShortKeys(t *testing.T) {
	for _, key := range []string{"", "too-short", signingKey[:31]} {
		_, err := token.NewIssuer(jwtConfig{key: key})
		require.ErrorIs(t, err, autherrors.ErrConfiguration, "key %q", key)
	}
	_, err := token.NewIssuer(jwtConfig{key: signingKey})
	require.NoError(t, err)
}

// TestCreateAccessTokenClaims checks the token decodes to the expected identity
func TestCreateAccessTokenClaims(t *testing.T) {
	f := setupTestFixture(t)
	roles := []string{users.RoleAdmin, users.RoleFinance}

	at, err := f.issuer.CreateAccessToken(testUser(), roles)
	require.NoError(t, err)
	require.Len(t, strings.Split(at.Token, "."), 3)
	require.Len(t, at.ID, 32)
	require.Equal(t, f.now.Add(accessExpiry), at.ExpiresAt)

	claims, err := f.issuer.Parse(at.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "tenant-1", claims.TenantID)
	require.Equal(t, "finteq_admin", claims.Username)
	require.Equal(t, "admin@finteq.example", claims.Email)
	require.Equal(t, roles, claims.Roles)
	require.Equal(t, at.ID, claims.ID)
	require.Equal(t, issuer, claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{audience}, claims.Audience)
	require.Equal(t, f.now, claims.IssuedAt.Time.UTC())
	require.Equal(t, f.now, claims.NotBefore.Time.UTC())
	require.True(t, claims.HasRole(users.RoleAdmin))
}

// TestJTIsAreUnique checks every token gets its own identifier
func TestJTIsAreUnique(t *testing.T) {
	f := setupTestFixture(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		at, err := f.issuer.CreateAccessToken(testUser(), nil)
		require.NoError(t, err)
		require.False(t, seen[at.ID])
		seen[at.ID] = true
	}
}

// TestParseRejectsExpired checks there is no clock skew allowance
func TestParseRejectsExpired(t *testing.T) {
	f := setupTestFixture(t)
	at, err := f.issuer.CreateAccessToken(testUser(), nil)
	require.NoError(t, err)

	f.advance(accessExpiry - time.Second)
	_, err = f.issuer.Parse(at.Token)
	require.NoError(t, err)

	f.advance(time.Second)
	_, err = f.issuer.Parse(at.Token)
	require.ErrorIs(t, err, autherrors.ErrInvalidToken)
}

// TestParseRejectsForeignTokens checks signature, algorithm and audience are enforced
func TestParseRejectsForeignTokens(t *testing.T) {
	f := setupTestFixture(t)

	other, err := token.NewIssuer(jwtConfig{key: strings.Repeat("x", 32)}, token.WithNowFunc(f.clock))
	require.NoError(t, err)
	forged, err := other.CreateAccessToken(testUser(), nil)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1", "jti": "abc", "iss": issuer, "aud": audience,
		"exp": f.now.Add(time.Hour).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1", "jti": "abc", "iss": issuer, "aud": "someone-else",
		"exp": f.now.Add(time.Hour).Unix(),
	}).SignedString([]byte(signingKey))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"other key":      forged.Token,
		"alg none":       unsigned,
		"wrong audience": wrongAudience,
		"garbage":        "not.a.token",
		"empty":          "",
	} {
		_, err := f.issuer.Parse(raw)
		require.ErrorIs(t, err, autherrors.ErrInvalidToken, name)
	}
}

// TestRefreshSecretHashing checks hashing is deterministic and secrets don't collide
func TestRefreshSecretHashing(t *testing.T) {
	secret, err := token.GenerateRefreshSecret()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(secret)
	require.NoError(t, err)
	require.Len(t, raw, 32)

	require.Equal(t, token.HashRefreshSecret(secret), token.HashRefreshSecret(secret))
	require.NotEqual(t, secret, token.HashRefreshSecret(secret))

	seen := map[string]bool{secret: true}
	for i := 0; i < 1000; i++ {
		s, err := token.GenerateRefreshSecret()
		require.NoError(t, err)
		require.False(t, seen[s])
		seen[s] = true
	}
}

// TestRevocationUntilExpiry checks a revoked jti is denied until, but not after, its ttl
func TestRevocationUntilExpiry(t *testing.T) {
	f := setupTestFixture(t)
	registry := token.NewRevocationRegistry(f.store)
	ctx := context.Background()

	require.NoError(t, registry.Add(ctx, "jti-1", 10*time.Minute))

	revoked, err := registry.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	f.advance(10*time.Minute - time.Second)
	revoked, err = registry.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	f.advance(time.Second)
	revoked, err = registry.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

// TestRevocationIgnoresExpiredTokens checks non-positive ttls store nothing
func TestRevocationIgnoresExpiredTokens(t *testing.T) {
	f := setupTestFixture(t)
	registry := token.NewRevocationRegistry(f.store)
	ctx := context.Background()

	require.NoError(t, registry.Add(ctx, "jti-2", 0))
	require.NoError(t, registry.Add(ctx, "jti-3", -time.Minute))

	for _, jti := range []string{"jti-2", "jti-3"} {
		revoked, err := registry.IsRevoked(ctx, jti)
		require.NoError(t, err)
		require.False(t, revoked)
	}
}

// TestRevocationFailsClosed checks store faults are not reported as "not revoked"
func TestRevocationFailsClosed(t *testing.T) {
	registry := token.NewRevocationRegistry(kv.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := registry.IsRevoked(ctx, "jti-1")
	require.ErrorIs(t, err, autherrors.ErrStoreUnavailable)
}
