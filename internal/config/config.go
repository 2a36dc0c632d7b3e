package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	JWTConfig
	ThrottleConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetSentryDSN() string
	GetSeedDemoData() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type JWTConfig interface {
	GetIssuer() string
	GetAudience() string
	GetSigningKey() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type ThrottleConfig interface {
	GetMaxLoginAttempts() int
	GetLockStep() time.Duration
	GetLockLevelTTL() time.Duration
}

type StoreConfig interface {
	GetDatabaseURL() string
	GetRunMigrations() bool
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetStoreTimeout() time.Duration
	GetRefreshRetention() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	JWT
	Throttle
	Store
}

func New() Config {
	return mainConfig{}
}
