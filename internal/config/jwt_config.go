package config

import "time"

type JWT struct{}

var _ JWTConfig = JWT{}

func (JWT) GetIssuer() string {
	return GetEnv("JWT_ISSUER", "Hris.AuthService")
}

func (JWT) GetAudience() string {
	return GetEnv("JWT_AUDIENCE", "Hris.Client")
}

// GetSigningKey is validated by token.NewHMACSigner at startup.
func (JWT) GetSigningKey() string {
	return GetEnv("JWT_KEY", "")
}

func (JWT) GetAccessTokenExpiry() time.Duration {
	return time.Duration(positive(GetEnvInt("JWT_ACCESS_MINUTES", 15), 15)) * time.Minute
}

func (JWT) GetRefreshTokenExpiry() time.Duration {
	return time.Duration(positive(GetEnvInt("JWT_REFRESH_DAYS", 14), 14)) * 24 * time.Hour
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
