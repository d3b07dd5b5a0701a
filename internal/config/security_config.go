package config

import "time"

type SecurityConfig interface {
	GetSessionSigningKey() string
	GetMaxSessionAge() time.Duration
	GetLoginRatePerMinute() float64
	GetAdminEmail() string
	GetAdminPassword() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSessionSigningKey() string {
	return GetEnv("SESSION_SIGNING_KEY", "")
}

// GetMaxSessionAge bounds the durable identity session independently of inactivity.
func (Security) GetMaxSessionAge() time.Duration {
	return GetEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour)
}

func (Security) GetLoginRatePerMinute() float64 {
	return GetEnvFloat("LOGIN_RATE_PER_MINUTE", 10)
}

func (Security) GetAdminEmail() string {
	return GetEnv("ADMIN_EMAIL", "")
}

func (Security) GetAdminPassword() string {
	return GetEnv("ADMIN_PASSWORD", "")
}
