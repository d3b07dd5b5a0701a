// Package metrics collects session and external-token events for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionRecorder is used by the session manager.
type SessionRecorder interface {
	SessionStarted()
	SessionWarning()
	SessionEnded(reason string)
}

// TokenRecorder is used by the external token manager.
type TokenRecorder interface {
	SignIn(result string)
	Refresh(result string)
}

// Collector records into Prometheus metrics.
type Collector struct {
	sessionsStarted prometheus.Counter
	sessionWarnings prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	signIns         *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
}

var (
	_ SessionRecorder = (*Collector)(nil)
	_ TokenRecorder   = (*Collector)(nil)
)

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manager_sessions_started_total",
			Help: "Sessions established by sign-in or restore.",
		}),
		sessionWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manager_session_warnings_total",
			Help: "Inactivity warnings shown.",
		}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manager_sessions_ended_total",
			Help: "Sessions ended, by reason.",
		}, []string{"reason"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "manager_sessions_active",
			Help: "Currently established sessions.",
		}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manager_drive_signins_total",
			Help: "Google authorization attempts, by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manager_drive_token_refreshes_total",
			Help: "Google access token refreshes, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.sessionsStarted,
		c.sessionWarnings,
		c.sessionsEnded,
		c.activeSessions,
		c.signIns,
		c.refreshes,
	)
	return c
}

func (c *Collector) SessionStarted() {
	c.sessionsStarted.Inc()
	c.activeSessions.Inc()
}

func (c *Collector) SessionWarning() {
	c.sessionWarnings.Inc()
}

func (c *Collector) SessionEnded(reason string) {
	c.sessionsEnded.WithLabelValues(reason).Inc()
	c.activeSessions.Dec()
}

func (c *Collector) SignIn(result string) {
	c.signIns.WithLabelValues(result).Inc()
}

func (c *Collector) Refresh(result string) {
	c.refreshes.WithLabelValues(result).Inc()
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used when no registry is wired.
type Nop struct{}

func (Nop) SessionStarted()     {}
func (Nop) SessionWarning()     {}
func (Nop) SessionEnded(string) {}
func (Nop) SignIn(string)       {}
func (Nop) Refresh(string)      {}
