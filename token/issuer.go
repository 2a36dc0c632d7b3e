package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-hris-auth/internal/config"
	autherrors "github.com/jrsteele09/go-hris-auth/internal/errors"
	"github.com/jrsteele09/go-hris-auth/users"
)

// AccessToken is a freshly minted token with the identity needed to revoke it.
type AccessToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Issuer mints and validates HS256 access tokens.
type Issuer struct {
	signer            Signer
	issuer            string
	audience          string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type IssuerOption func(*Issuer)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

// WithSigner replaces the signer built from the configured key.
func WithSigner(signer Signer) IssuerOption {
	return func(i *Issuer) {
		i.signer = signer
	}
}

// NewIssuer validates the signing key once. A missing or short key is an
// errors.ErrConfiguration and must stop startup.
func NewIssuer(cfg config.JWTConfig, options ...IssuerOption) (*Issuer, error) {
	i := &Issuer{
		issuer:            cfg.GetIssuer(),
		audience:          cfg.GetAudience(),
		accessTokenExpiry: cfg.GetAccessTokenExpiry(),
		nowFunc:           time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	if i.signer == nil {
		signer, err := NewHMACSigner(cfg.GetSigningKey())
		if err != nil {
			return nil, fmt.Errorf("token.NewIssuer: %w", err)
		}
		i.signer = signer
	}
	return i, nil
}

func (i *Issuer) AccessTokenExpiry() time.Duration {
	return i.accessTokenExpiry
}

// CreateAccessToken signs a token for user carrying roles, which the caller
// must read from the current assignment.
func (i *Issuer) CreateAccessToken(user *users.User, roles []string) (*AccessToken, error) {
	now := i.nowFunc().UTC().Truncate(time.Second)
	expiresAt := now.Add(i.accessTokenExpiry)
	jti := strings.ReplaceAll(uuid.NewString(), "-", "")

	if roles == nil {
		roles = []string{}
	}
	claims := &Claims{
		TenantID: user.TenantID,
		Username: user.Username,
		Email:    user.Email,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{i.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("token.CreateAccessToken: %w", err)
	}
	return &AccessToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// Parse verifies signature, issuer, audience and lifetime with no clock skew.
// Every failure is reported as errors.ErrInvalidToken.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, i.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.nowFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", autherrors.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, autherrors.ErrInvalidToken
	}
	return claims, nil
}
