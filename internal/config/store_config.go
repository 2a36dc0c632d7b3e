package config

import (
	"fmt"
	"net/url"
	"time"
)

type Store struct{}

var _ StoreConfig = Store{}

// GetDatabaseURL prefers DATABASE_URL and falls back to the DB_* parts.
// An empty result selects the in-memory repositories.
func (Store) GetDatabaseURL() string {
	if dsn := GetEnv("DATABASE_URL", ""); dsn != "" {
		return dsn
	}
	host := GetEnv("DB_HOST", "")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(GetEnv("DB_USER", "postgres"), GetEnv("DB_PASSWORD", "")),
		Host:     fmt.Sprintf("%s:%s", host, GetEnv("DB_PORT", "5432")),
		Path:     GetEnv("DB_NAME", "hris_auth"),
		RawQuery: "sslmode=" + GetEnv("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func (Store) GetRunMigrations() bool {
	return GetEnvBool("RUN_MIGRATIONS", true)
}

func (Store) GetRedisAddr() string {
	if addr := GetEnv("REDIS_ADDR", ""); addr != "" {
		return addr
	}
	host := GetEnv("REDIS_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", host, GetEnv("REDIS_PORT", "6379"))
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Store) GetStoreTimeout() time.Duration {
	ms := GetEnvInt("STORE_TIMEOUT_MS", 2000)
	if ms <= 0 {
		ms = 2000
	}
	return time.Duration(ms) * time.Millisecond
}

func (Store) GetRefreshRetention() time.Duration {
	return time.Duration(positive(GetEnvInt("REFRESH_RETENTION_HOURS", 72), 72)) * time.Hour
}
