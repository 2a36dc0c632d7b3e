package token

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-hris-auth/internal/kv"
)

const revokedKeyPrefix = "auth:blacklist:"

// RevocationRegistry is the access token denylist. Entries expire with the
// token they revoke so the registry never outgrows the live token set.
type RevocationRegistry struct {
	store kv.Store
}

func NewRevocationRegistry(store kv.Store) *RevocationRegistry {
	return &RevocationRegistry{store: store}
}

// Add revokes jti for ttl, which must be the token's remaining lifetime.
// A non-positive ttl is a no-op since the token is already unusable.
func (r *RevocationRegistry) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := r.store.SetTTL(ctx, revokedKeyPrefix+jti, "1", ttl); err != nil {
		return fmt.Errorf("token.RevocationRegistry.Add: %w", err)
	}
	return nil
}

// IsRevoked returns an error rather than false when the store can't answer.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := r.store.Exists(ctx, revokedKeyPrefix+jti)
	if err != nil {
		return false, fmt.Errorf("token.RevocationRegistry.IsRevoked: %w", err)
	}
	return revoked, nil
}
