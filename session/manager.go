// Package session is the inactivity-timeout state machine around the signed-in user.
//
// A Manager is Unauthenticated, Active or Warning. Activity reschedules the warning and
// expiry deadlines; when the warning deadline passes the manager counts down once per
// second, and whichever of countdown-zero and the expiry deadline comes first signs the
// user out.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/identity"
	"github.com/lyfeumbria/manager/internal/clock"
	"github.com/lyfeumbria/manager/internal/config"
	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/internal/metrics"
	"github.com/lyfeumbria/manager/users"
)

type Manager struct {
	provider identity.Provider
	profiles users.ProfileRepo
	clock    clock.Clock
	metrics  metrics.SessionRecorder

	mu          sync.Mutex
	sched       *scheduler
	state       State
	session     *Session
	secondsLeft int
	closed      bool
	unsubscribe func()

	listeners    map[int]func(Snapshot)
	nextListener int
}

// NewManager builds a manager in the Unauthenticated state. rec may be nil.
func NewManager(cfg config.SessionConfig, provider identity.Provider, profiles users.ProfileRepo, clk clock.Clock, rec metrics.SessionRecorder) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	m := &Manager{
		provider:  provider,
		profiles:  profiles,
		clock:     clk,
		metrics:   rec,
		listeners: make(map[int]func(Snapshot)),
	}
	m.sched = &scheduler{
		clock:     clk,
		idle:      cfg.GetIdleTimeout(),
		lead:      cfg.GetWarningLead(),
		onWarning: m.onWarning,
		onExpiry:  m.onExpiry,
		onTick:    m.onTick,
	}
	return m
}

// Start follows the identity provider and restores a principal that is already signed in.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.unsubscribe == nil {
		m.unsubscribe = m.provider.OnChange(m.onPrincipalChange)
	}
	m.mu.Unlock()

	principal, err := m.provider.CurrentPrincipal(ctx)
	if err != nil {
		return fmt.Errorf("[session Start] %w", err)
	}
	if principal == nil {
		log.Debug().Msg("no principal to restore")
		return nil
	}
	_, err = m.establish(ctx, principal)
	return err
}

// Login verifies the credentials and establishes the session.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	principal, err := m.provider.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, principal)
}

// Activity records user interaction. Both deadlines are rescheduled from now and a
// visible warning is dismissed. It reports false when nobody is signed in.
func (m *Manager) Activity() bool {
	m.mu.Lock()
	if m.state == Unauthenticated {
		m.mu.Unlock()
		return false
	}
	wasWarning := m.state == Warning
	m.state = Active
	m.secondsLeft = 0
	m.sched.scheduleFrom(m.clock.Now())
	snap := m.snapshotLocked("")
	m.mu.Unlock()

	if wasWarning {
		m.notify(snap)
	}
	return true
}

// Extend is the explicit "stay signed in" answer to the warning.
func (m *Manager) Extend() error {
	if !m.Activity() {
		return errors.ErrNotAuthenticated
	}
	log.Debug().Msg("session extended")
	return nil
}

// Logout clears the session and signs out of the identity provider. A failed remote
// sign-out is logged; the local session is cleared regardless.
func (m *Manager) Logout(ctx context.Context) error {
	m.end(ReasonLogout)
	if err := m.provider.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("identity sign-out failed, local session cleared")
	}
	return nil
}

// Close cancels every timer and stops following the identity provider. The durable
// principal is left in place so the next Start restores it.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.end(ReasonClosed)
}

// Current returns a copy of the session, or nil when Unauthenticated.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked("")
}

// Subscribe registers fn for every state change. fn runs synchronously and must not
// call back into the manager.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// establish loads or creates the profile of principal and enters Active. A principal
// that is already the active session is left alone.
func (m *Manager) establish(ctx context.Context, principal *identity.Principal) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("[session establish] manager closed")
	}
	if m.session != nil && m.session.UserID == principal.UserID {
		s := *m.session
		m.mu.Unlock()
		return &s, nil
	}
	m.mu.Unlock()

	profile, err := m.profiles.Get(ctx, principal.UserID)
	if errors.Is(err, errors.ErrUserNotFound) {
		log.Info().Str("user_id", principal.UserID).Msg("profile missing, creating default profile")
		profile = users.DefaultProfile(principal.UserID, principal.Email, m.clock.Now())
		if err := m.profiles.Upsert(ctx, profile); err != nil {
			log.Err(err).Str("user_id", principal.UserID).Msg("failed to create default profile")
			return nil, fmt.Errorf("[session establish] create profile: %w", err)
		}
	} else if err != nil {
		log.Err(err).Str("user_id", principal.UserID).Msg("failed to load profile")
		return nil, fmt.Errorf("[session establish] load profile: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("[session establish] manager closed")
	}
	replaced := m.state != Unauthenticated
	m.session = newSession(profile, principal.Email)
	m.state = Active
	m.secondsLeft = 0
	m.sched.scheduleFrom(m.clock.Now())
	s := *m.session
	snap := m.snapshotLocked("")
	m.mu.Unlock()

	if replaced {
		m.metrics.SessionEnded(ReasonPrincipalLost)
	}
	m.metrics.SessionStarted()
	log.Info().Str("user_id", s.UserID).Str("role", string(s.Role)).Msg("session established")
	m.notify(snap)
	return &s, nil
}

// onPrincipalChange follows sign-ins and sign-outs that happen at the identity provider.
func (m *Manager) onPrincipalChange(principal *identity.Principal) {
	if principal == nil {
		m.end(ReasonPrincipalLost)
		return
	}
	if _, err := m.establish(context.Background(), principal); err != nil {
		log.Err(err).Str("user_id", principal.UserID).Msg("failed to establish session for principal")
	}
}

func (m *Manager) onWarning(gen uint64) {
	m.mu.Lock()
	if !m.sched.current(gen) || m.state != Active {
		m.mu.Unlock()
		return
	}
	m.state = Warning
	m.secondsLeft = m.sched.countdownSeconds()
	m.sched.startCountdown(gen)
	snap := m.snapshotLocked("")
	m.mu.Unlock()

	m.metrics.SessionWarning()
	log.Info().Str("user_id", snap.Session.UserID).Int("seconds_left", snap.SecondsLeft).Msg("inactivity warning")
	m.notify(snap)
}

func (m *Manager) onTick(gen uint64) {
	m.mu.Lock()
	if !m.sched.current(gen) || m.state != Warning {
		m.mu.Unlock()
		return
	}
	m.secondsLeft--
	if m.secondsLeft <= 0 {
		m.mu.Unlock()
		m.expire(gen)
		return
	}
	m.sched.startCountdown(gen)
	snap := m.snapshotLocked("")
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) onExpiry(gen uint64) {
	m.expire(gen)
}

// expire performs the forced sign-out. Only the first caller for a generation acts.
func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if !m.sched.current(gen) || m.state == Unauthenticated {
		m.mu.Unlock()
		return
	}
	userID := m.session.UserID
	snap := m.clearLocked(ReasonExpired)
	m.mu.Unlock()

	m.metrics.SessionEnded(ReasonExpired)
	log.Info().Str("user_id", userID).Str("reason", ReasonExpired).Msg("session expired for inactivity")
	m.notify(snap)

	if err := m.provider.SignOut(context.Background()); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("identity sign-out after expiry failed")
	}
}

// end clears the session locally. It is a no-op when already Unauthenticated.
func (m *Manager) end(reason string) {
	m.mu.Lock()
	if m.state == Unauthenticated {
		m.sched.cancelAll()
		m.mu.Unlock()
		return
	}
	userID := m.session.UserID
	snap := m.clearLocked(reason)
	m.mu.Unlock()

	m.metrics.SessionEnded(reason)
	log.Info().Str("user_id", userID).Str("reason", reason).Msg("session ended")
	m.notify(snap)
}

func (m *Manager) clearLocked(reason string) Snapshot {
	m.sched.cancelAll()
	m.state = Unauthenticated
	m.session = nil
	m.secondsLeft = 0
	return m.snapshotLocked(reason)
}

func (m *Manager) snapshotLocked(reason string) Snapshot {
	snap := Snapshot{
		State:          m.state,
		WarningVisible: m.state == Warning,
		SecondsLeft:    m.secondsLeft,
		EndReason:      reason,
	}
	if m.session != nil {
		s := *m.session
		snap.Session = &s
	}
	return snap
}

func (m *Manager) notify(snap Snapshot) {
	m.mu.Lock()
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
