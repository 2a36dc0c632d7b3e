// Package auth composes credential verification, token issuance, refresh
// rotation and revocation into the Login, Refresh and Logout operations.
//
// Login throttling belongs to the caller: the HTTP layer checks the lock
// before Login and registers the outcome after it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/internal/metrics"
	"github.com/jrsteele09/go-hris-auth/tenants"
	"github.com/jrsteele09/go-hris-auth/token"
	"github.com/jrsteele09/go-hris-auth/token/refresh"
	"github.com/jrsteele09/go-hris-auth/users"
	"github.com/rs/zerolog/log"
)

// Repos holds the repository dependencies for the Service
type Repos struct {
	Users   users.UserRepo // Principal store
	Tenants tenants.Repo   // Company lookup by code
}

// Tokens holds the token components used by the Service
type Tokens struct {
	Issuer      *token.Issuer             // Access token minting
	Refresh     *refresh.Manager          // Refresh secret rotation chains
	Revocations *token.RevocationRegistry // Access token denylist
}

// LoginRequest identifies a principal by company code and username.
type LoginRequest struct {
	CompanyCode string
	Username    string
	Password    string
	Meta        refresh.Metadata
}

// LogoutRequest carries the refresh secret and, optionally, the identity of
// the access token presented with it.
type LogoutRequest struct {
	RefreshToken      string
	AccessTokenID     string
	AccessTokenExpiry time.Time
	Meta              refresh.Metadata
}

// TokenPair is returned by Login and Refresh. RefreshToken is the plaintext
// secret and is never stored or logged.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int       `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Service implements the session operations.
type Service struct {
	repos     Repos
	tokens    Tokens
	hasher    *users.PasswordHasher
	dummyHash string           // verified against when the user is unknown
	nowTime   func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService validates its dependencies and returns a ready Service.
func NewService(repos Repos, tokens Tokens, hasher *users.PasswordHasher, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[auth.NewService] Users repo is required")
	}
	if repos.Tenants == nil {
		return nil, errors.New("[auth.NewService] Tenants repo is required")
	}
	if tokens.Issuer == nil || tokens.Refresh == nil || tokens.Revocations == nil {
		return nil, errors.New("[auth.NewService] issuer, refresh manager and revocation registry are required")
	}
	if hasher == nil {
		return nil, errors.New("[auth.NewService] password hasher is required")
	}

	dummyHash, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("[auth.NewService] dummy hash: %w", err)
	}

	s := &Service{
		repos:     repos,
		tokens:    tokens,
		hasher:    hasher,
		dummyHash: dummyHash,
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login verifies credentials and starts a refresh chain. An unknown company,
// unknown user, inactive user and wrong password all return
// errors.ErrInvalidCredentials; the reason is only logged.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	pair, err := s.issuePair(ctx, user, req.Meta)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}

	if err := s.repos.Users.SetLastLogin(ctx, user.ID, s.nowTime().UTC()); err != nil {
		// The session is already issued.
		log.Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	log.Info().Str("tenant", req.CompanyCode).Str("user_id", user.ID).Str("ip", req.Meta.IP).Msg("login succeeded")
	return pair, nil
}

func (s *Service) authenticate(ctx context.Context, req LoginRequest) (*users.User, error) {
	reject := func(reason string) (*users.User, error) {
		log.Info().Str("tenant", req.CompanyCode).Str("username", req.Username).Str("ip", req.Meta.IP).
			Str("reason", reason).Msg("login rejected")
		return nil, autherrors.ErrInvalidCredentials
	}

	tenant, err := s.repos.Tenants.GetByCode(ctx, req.CompanyCode)
	switch {
	case autherrors.Is(err, autherrors.ErrNotFound):
		s.hasher.Verify(req.Password, s.dummyHash)
		return reject("unknown company")
	case err != nil:
		return nil, fmt.Errorf("auth.Login tenant: %w", err)
	case !tenant.Active:
		s.hasher.Verify(req.Password, s.dummyHash)
		return reject("company inactive")
	}

	user, err := s.repos.Users.GetByUsername(ctx, tenant.ID, req.Username)
	switch {
	case autherrors.Is(err, autherrors.ErrNotFound):
		s.hasher.Verify(req.Password, s.dummyHash)
		return reject("unknown user")
	case err != nil:
		return nil, fmt.Errorf("auth.Login user: %w", err)
	}

	matched, rehash := s.hasher.Verify(req.Password, user.PasswordHash)
	if !matched {
		return reject("password mismatch")
	}
	if !user.Active {
		return reject("user inactive")
	}

	if rehash {
		s.upgradeHash(ctx, user, req.Password)
	}
	return user, nil
}

// upgradeHash re-hashes with the current cost. Failure only costs the upgrade.
func (s *Service) upgradeHash(ctx context.Context, user *users.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.repos.Users.SetPasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		log.Err(err).Str("user_id", user.ID).Msg("password rehash failed")
	}
}

// Refresh rotates secret and mints an access token from the user's current
// roles. Every rejected secret returns errors.ErrInvalidRefreshToken.
func (s *Service) Refresh(ctx context.Context, secret string, meta refresh.Metadata) (*TokenPair, error) {
	nextSecret, record, err := s.tokens.Refresh.Rotate(ctx, secret, meta)
	if err != nil {
		if autherrors.Is(err, autherrors.ErrInvalidRefreshToken) {
			metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	access, err := s.tokens.Issuer.CreateAccessToken(record.User, record.User.Roles)
	if err != nil {
		return nil, fmt.Errorf("auth.Refresh: %w", err)
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return s.pair(access, nextSecret), nil
}

// Logout revokes the refresh chain and, when the access token is still live,
// denylists it for its remaining lifetime. Unknown or already revoked secrets
// succeed; only store faults are returned.
func (s *Service) Logout(ctx context.Context, req LogoutRequest) error {
	if err := s.tokens.Refresh.RevokeBySecret(ctx, req.RefreshToken, req.Meta); err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}

	if req.AccessTokenID != "" && !req.AccessTokenExpiry.IsZero() {
		if ttl := req.AccessTokenExpiry.Sub(s.nowTime()); ttl > 0 {
			if err := s.tokens.Revocations.Add(ctx, req.AccessTokenID, ttl); err != nil {
				return fmt.Errorf("auth.Logout: %w", err)
			}
			metrics.RevokedAccessTokensTotal.Inc()
		}
	}

	log.Info().Str("jti", req.AccessTokenID).Str("ip", req.Meta.IP).Msg("logout")
	return nil
}

func (s *Service) issuePair(ctx context.Context, user *users.User, meta refresh.Metadata) (*TokenPair, error) {
	access, err := s.tokens.Issuer.CreateAccessToken(user, user.Roles)
	if err != nil {
		return nil, err
	}
	secret, _, err := s.tokens.Refresh.Issue(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return s.pair(access, secret), nil
}

func (s *Service) pair(access *token.AccessToken, secret string) *TokenPair {
	return &TokenPair{
		AccessToken:  access.Token,
		RefreshToken: secret,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.Issuer.AccessTokenExpiry().Seconds()),
		ExpiresAt:    access.ExpiresAt,
	}
}
