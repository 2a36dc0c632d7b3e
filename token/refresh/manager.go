package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-hris-auth/internal/config"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/tenants"
	"github.com/jrsteele09/go-hris-auth/token"
	"github.com/jrsteele09/go-hris-auth/users"
	"github.com/rs/zerolog/log"
)

// Manager implements issuance, rotation and revocation of refresh secrets
// over a Repo.
type Manager struct {
	repo    Repo
	tenants tenants.Repo // optional; when set rotation also requires an active tenant
	expiry  time.Duration
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithTenants makes Rotate reject secrets of users whose tenant is missing or
// inactive.
func WithTenants(repo tenants.Repo) ManagerOption {
	return func(m *Manager) {
		m.tenants = repo
	}
}

func NewManager(repo Repo, cfg config.JWTConfig, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:    repo,
		expiry:  cfg.GetRefreshTokenExpiry(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Issue starts a new chain for user and returns the plaintext secret.
func (m *Manager) Issue(ctx context.Context, user *users.User, meta Metadata) (string, *Record, error) {
	secret, record, err := m.newRecord(user, meta)
	if err != nil {
		return "", nil, err
	}
	if err := m.repo.Add(ctx, record); err != nil {
		return "", nil, fmt.Errorf("refresh.Issue: %w", err)
	}
	return secret, record, nil
}

// Rotate exchanges secret for a successor. Unknown, expired, rotated and
// revoked secrets all fail with errors.ErrInvalidRefreshToken, as does an
// inactive user or tenant. The returned record carries the user's current roles.
func (m *Manager) Rotate(ctx context.Context, secret string, meta Metadata) (string, *Record, error) {
	now := m.nowFunc().UTC()
	old, err := m.repo.FindActiveByHash(ctx, token.HashRefreshSecret(secret), now)
	if err != nil {
		if autherrors.Is(err, autherrors.ErrNotFound) {
			log.Info().Str("ip", meta.IP).Msg("refresh rejected: no active record")
			return "", nil, autherrors.ErrInvalidRefreshToken
		}
		return "", nil, fmt.Errorf("refresh.Rotate lookup: %w", err)
	}
	if old.User == nil || !old.User.Active {
		log.Info().Str("record_id", old.ID).Str("ip", meta.IP).Msg("refresh rejected: user inactive")
		return "", nil, autherrors.ErrInvalidRefreshToken
	}
	if err := m.checkTenant(ctx, old, meta); err != nil {
		return "", nil, err
	}

	nextSecret, next, err := m.newRecord(old.User, meta)
	if err != nil {
		return "", nil, err
	}
	if err := m.repo.Rotate(ctx, old, next, now); err != nil {
		if autherrors.Is(err, autherrors.ErrInvalidRefreshToken) {
			log.Warn().Str("record_id", old.ID).Str("user_id", old.UserID).Str("ip", meta.IP).
				Msg("refresh rejected: concurrent rotation")
			return "", nil, autherrors.ErrInvalidRefreshToken
		}
		return "", nil, fmt.Errorf("refresh.Rotate: %w", err)
	}
	next.User = old.User
	return nextSecret, next, nil
}

func (m *Manager) checkTenant(ctx context.Context, old *Record, meta Metadata) error {
	if m.tenants == nil {
		return nil
	}
	tenant, err := m.tenants.Get(ctx, old.User.TenantID)
	switch {
	case autherrors.Is(err, autherrors.ErrNotFound):
		log.Info().Str("record_id", old.ID).Str("ip", meta.IP).Msg("refresh rejected: tenant missing")
		return autherrors.ErrInvalidRefreshToken
	case err != nil:
		return fmt.Errorf("refresh.Rotate tenant: %w", err)
	case !tenant.Active:
		log.Info().Str("record_id", old.ID).Str("tenant_id", tenant.ID).Str("ip", meta.IP).
			Msg("refresh rejected: tenant inactive")
		return autherrors.ErrInvalidRefreshToken
	}
	return nil
}

// RevokeBySecret ends the chain holding secret. It succeeds for unknown and
// already revoked secrets; only store faults are returned.
func (m *Manager) RevokeBySecret(ctx context.Context, secret string, meta Metadata) error {
	if secret == "" {
		return nil
	}
	if err := m.repo.RevokeByHash(ctx, token.HashRefreshSecret(secret), m.nowFunc().UTC(), meta); err != nil {
		return fmt.Errorf("refresh.RevokeBySecret: %w", err)
	}
	return nil
}

// Purge removes records that stopped being active more than retention ago.
func (m *Manager) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := m.repo.Purge(ctx, m.nowFunc().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("refresh.Purge: %w", err)
	}
	return n, nil
}

func (m *Manager) newRecord(user *users.User, meta Metadata) (string, *Record, error) {
	secret, err := token.GenerateRefreshSecret()
	if err != nil {
		return "", nil, err
	}
	now := m.nowFunc().UTC()
	return secret, &Record{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		TokenHash:   token.HashRefreshSecret(secret),
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.expiry),
		CreatedByIP: meta.IP,
		UserAgent:   meta.UserAgent,
	}, nil
}
