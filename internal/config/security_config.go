package config

import "time"

type Throttle struct{}

var _ ThrottleConfig = Throttle{}

func (Throttle) GetMaxLoginAttempts() int {
	return positive(GetEnvInt("LOGIN_MAX_ATTEMPTS", 3), 3)
}

func (Throttle) GetLockStep() time.Duration {
	return GetEnvSeconds("LOGIN_LOCK_STEP_SECONDS", 15*time.Minute)
}

func (Throttle) GetLockLevelTTL() time.Duration {
	return GetEnvSeconds("LOGIN_LOCK_LEVEL_TTL_SECONDS", 24*time.Hour)
}
