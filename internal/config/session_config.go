package config

import "time"

type SessionConfig interface {
	GetIdleTimeout() time.Duration
	GetWarningLead() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetIdleTimeout is the inactivity period after which the user is signed out.
func (Session) GetIdleTimeout() time.Duration {
	return GetEnvDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute)
}

// GetWarningLead is how long before the idle timeout the countdown is shown.
func (Session) GetWarningLead() time.Duration {
	return GetEnvDuration("SESSION_WARNING_LEAD", 2*time.Minute)
}
