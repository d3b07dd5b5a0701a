package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lyfeumbria/manager/identity"
	"github.com/lyfeumbria/manager/internal/clock"
	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/records"
	"github.com/lyfeumbria/manager/session"
	"github.com/lyfeumbria/manager/users"
	"github.com/stretchr/testify/require"
)

type sessionConfig struct{}

func (sessionConfig) GetIdleTimeout() time.Duration { return 10 * time.Minute }
func (sessionConfig) GetWarningLead() time.Duration { return 2 * time.Minute }

// fakeProvider is an identity provider with fixed accounts whose sign-out can be made to fail.
type fakeProvider struct {
	mu         sync.Mutex
	accounts   map[string]string
	principal  *identity.Principal
	listeners  map[int]func(*identity.Principal)
	next       int
	signOutErr error
	signOuts   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts:  map[string]string{"anna@example.com": "segreto1"},
		listeners: make(map[int]func(*identity.Principal)),
	}
}

func (p *fakeProvider) VerifyCredentials(_ context.Context, email, password string) (*identity.Principal, error) {
	p.mu.Lock()
	if p.accounts[email] != password || password == "" {
		p.mu.Unlock()
		return nil, errors.ErrInvalidCredentials
	}
	principal := &identity.Principal{UserID: "uid-" + email, Email: email}
	p.principal = principal
	p.mu.Unlock()
	p.notify(principal)
	return principal, nil
}

func (p *fakeProvider) CurrentPrincipal(context.Context) (*identity.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.principal, nil
}

func (p *fakeProvider) OnChange(fn func(*identity.Principal)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next
	p.next++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.signOuts++
	if p.signOutErr != nil {
		p.mu.Unlock()
		return p.signOutErr
	}
	p.principal = nil
	p.mu.Unlock()
	p.notify(nil)
	return nil
}

func (p *fakeProvider) SignOutCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOuts
}

func (p *fakeProvider) notify(principal *identity.Principal) {
	p.mu.Lock()
	fns := make([]func(*identity.Principal), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(principal)
	}
}

type countingRecorder struct {
	started, warnings int
	ended             map[string]int
}

func (r *countingRecorder) SessionStarted()            { r.started++ }
func (r *countingRecorder) SessionWarning()            { r.warnings++ }
func (r *countingRecorder) SessionEnded(reason string) { r.ended[reason]++ }

type failingProfiles struct {
	users.ProfileRepo
}

func (failingProfiles) Upsert(context.Context, *users.Profile) error {
	return errors.New("store unavailable")
}

type fixture struct {
	clock    *clock.Fake
	provider *fakeProvider
	profiles *users.RecordRepo
	recorder *countingRecorder
	manager  *session.Manager
	events   []session.Snapshot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clock.NewFake(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)),
		provider: newFakeProvider(),
		profiles: users.NewRecordRepo(records.NewMemory()),
		recorder: &countingRecorder{ended: make(map[string]int)},
	}
	f.manager = session.NewManager(sessionConfig{}, f.provider, f.profiles, f.clock, f.recorder)
	f.manager.Subscribe(func(s session.Snapshot) { f.events = append(f.events, s) })
	require.NoError(t, f.manager.Start(context.Background()))
	t.Cleanup(f.manager.Close)
	return f
}

func (f *fixture) login(t *testing.T) *session.Session {
	t.Helper()
	s, err := f.manager.Login(context.Background(), "anna@example.com", "segreto1")
	require.NoError(t, err)
	return s
}

func (f *fixture) countState(state session.State) int {
	n := 0
	for _, e := range f.events {
		if e.State == state {
			n++
		}
	}
	return n
}

func TestLogin_CreatesDefaultProfile(t *testing.T) {
	f := newFixture(t)

	s := f.login(t)
	require.Equal(t, "uid-anna@example.com", s.UserID)
	require.Equal(t, users.DefaultName, s.Name)
	require.Equal(t, users.RoleUser, s.Role)
	require.False(t, s.IsAdmin())

	stored, err := f.profiles.Get(context.Background(), s.UserID)
	require.NoError(t, err)
	require.Equal(t, users.DefaultName, stored.Name)

	require.Equal(t, session.Active, f.manager.Snapshot().State)
	require.Equal(t, 1, f.recorder.started)
	require.Equal(t, 2, f.clock.PendingTimers())
}

func TestLogin_UsesExistingProfile(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.profiles.Upsert(context.Background(), &users.Profile{
		ID: "uid-anna@example.com", Email: "anna@example.com", Name: "Anna", Role: users.RoleAdmin,
	}))

	s := f.login(t)
	require.Equal(t, "Anna", s.Name)
	require.True(t, s.IsAdmin())
	require.Equal(t, 1, f.recorder.started)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Login(context.Background(), "anna@example.com", "sbagliata")
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	require.Equal(t, session.Unauthenticated, f.manager.Snapshot().State)
	require.Nil(t, f.manager.Current())
	require.Zero(t, f.clock.PendingTimers())
}

func TestStart_RestoresPrincipal(t *testing.T) {
	provider := newFakeProvider()
	provider.principal = &identity.Principal{UserID: "uid-anna@example.com", Email: "anna@example.com"}
	clk := clock.NewFake(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))
	profiles := users.NewRecordRepo(records.NewMemory())

	m := session.NewManager(sessionConfig{}, provider, profiles, clk, nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()

	current := m.Current()
	require.NotNil(t, current)
	require.Equal(t, "anna@example.com", current.Email)
	require.True(t, clk.Now().Equal(current.CreatedAt))

	clk.Advance(10 * time.Minute)
	require.Equal(t, session.Unauthenticated, m.Snapshot().State)
}

func TestStart_ProfileCreationFailureStaysUnauthenticated(t *testing.T) {
	provider := newFakeProvider()
	provider.principal = &identity.Principal{UserID: "uid-anna@example.com", Email: "anna@example.com"}
	clk := clock.NewFake(time.Now())
	profiles := failingProfiles{users.NewRecordRepo(records.NewMemory())}

	m := session.NewManager(sessionConfig{}, provider, profiles, clk, nil)
	err := m.Start(context.Background())
	require.Error(t, err)
	defer m.Close()

	require.Equal(t, session.Unauthenticated, m.Snapshot().State)
	require.Zero(t, clk.PendingTimers())
}

func TestActivityWithinIdleTimeoutNeverWarns(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	gaps := []time.Duration{
		time.Minute,
		7*time.Minute + 59*time.Second,
		9*time.Minute + 59*time.Second,
		30 * time.Second,
		9*time.Minute + 59*time.Second,
	}
	for _, gap := range gaps {
		f.clock.Advance(gap)
		require.True(t, f.manager.Activity())
	}

	require.Equal(t, session.Active, f.manager.Snapshot().State)
	require.Zero(t, f.recorder.warnings)
	require.Zero(t, f.countState(session.Unauthenticated))
	require.Zero(t, f.provider.SignOutCalls())
}

func TestWarningAfterEightMinutes(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.clock.Advance(8*time.Minute - time.Millisecond)
	require.Equal(t, session.Active, f.manager.Snapshot().State)

	f.clock.Advance(time.Millisecond)
	snap := f.manager.Snapshot()
	require.Equal(t, session.Warning, snap.State)
	require.True(t, snap.WarningVisible)
	require.Equal(t, 120, snap.SecondsLeft)
	require.Equal(t, 1, f.recorder.warnings)

	f.clock.Advance(30 * time.Second)
	require.Equal(t, 90, f.manager.Snapshot().SecondsLeft)
}

func TestExpiryAfterTenMinutes(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.clock.Advance(10*time.Minute - time.Millisecond)
	require.Equal(t, session.Warning, f.manager.Snapshot().State)
	require.Equal(t, 1, f.manager.Snapshot().SecondsLeft)

	f.clock.Advance(time.Millisecond)
	snap := f.manager.Snapshot()
	require.Equal(t, session.Unauthenticated, snap.State)
	require.False(t, snap.WarningVisible)
	require.Nil(t, f.manager.Current())

	require.Equal(t, 1, f.provider.SignOutCalls())
	require.Equal(t, 1, f.recorder.ended[session.ReasonExpired])
	require.Equal(t, 1, f.countState(session.Unauthenticated))
	require.Equal(t, session.ReasonExpired, f.events[len(f.events)-1].EndReason)
	require.Zero(t, f.clock.PendingTimers())

	f.clock.Advance(time.Hour)
	require.Equal(t, 1, f.provider.SignOutCalls())
}

func TestExpiryWithoutWarningObserved(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.clock.Advance(25 * time.Minute)
	require.Equal(t, session.Unauthenticated, f.manager.Snapshot().State)
	require.Equal(t, 1, f.provider.SignOutCalls())
	require.Equal(t, 1, f.recorder.ended[session.ReasonExpired])
}

func TestExtendResetsIdleClock(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.clock.Advance(9 * time.Minute)
	require.Equal(t, session.Warning, f.manager.Snapshot().State)

	require.NoError(t, f.manager.Extend())
	snap := f.manager.Snapshot()
	require.Equal(t, session.Active, snap.State)
	require.False(t, snap.WarningVisible)
	require.Zero(t, snap.SecondsLeft)

	f.clock.Advance(9*time.Minute + 59*time.Second)
	require.Equal(t, session.Warning, f.manager.Snapshot().State)
	require.Equal(t, 1, f.manager.Snapshot().SecondsLeft)

	f.clock.Advance(time.Second)
	require.Equal(t, session.Unauthenticated, f.manager.Snapshot().State)
	require.Equal(t, 1, f.provider.SignOutCalls())
}

func TestActivityDismissesWarning(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.clock.Advance(8*time.Minute + 10*time.Second)
	require.Equal(t, session.Warning, f.manager.Snapshot().State)

	require.True(t, f.manager.Activity())
	require.Equal(t, session.Active, f.manager.Snapshot().State)
	require.Equal(t, session.Active, f.events[len(f.events)-1].State)

	f.clock.Advance(8*time.Minute - time.Second)
	require.Equal(t, session.Active, f.manager.Snapshot().State)
}

func TestLogoutClearsEvenWhenSignOutFails(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.provider.signOutErr = errors.New("network down")

	require.NoError(t, f.manager.Logout(context.Background()))
	require.Equal(t, session.Unauthenticated, f.manager.Snapshot().State)
	require.Nil(t, f.manager.Current())
	require.Zero(t, f.clock.PendingTimers())
	require.Equal(t, 1, f.recorder.ended[session.ReasonLogout])

	f.clock.Advance(time.Hour)
	require.Zero(t, f.recorder.ended[session.ReasonExpired])
}

func TestLogoutDuringWarning(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.clock.Advance(9 * time.Minute)

	require.NoError(t, f.manager.Logout(context.Background()))
	snap := f.manager.Snapshot()
	require.Equal(t, session.Unauthenticated, snap.State)
	require.False(t, snap.WarningVisible)
	require.Zero(t, f.clock.PendingTimers())
	require.Equal(t, 1, f.provider.SignOutCalls())
}

func TestPrincipalLossClearsWithoutRemoteSignOut(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.provider.notify(nil)
	require.Equal(t, session.Unauthenticated, f.manager.Snapshot().State)
	require.Zero(t, f.provider.SignOutCalls())
	require.Equal(t, 1, f.recorder.ended[session.ReasonPrincipalLost])
}

func TestActivityAndExtendWhenUnauthenticated(t *testing.T) {
	f := newFixture(t)

	require.False(t, f.manager.Activity())
	require.ErrorIs(t, f.manager.Extend(), errors.ErrNotAuthenticated)
	require.Zero(t, f.clock.PendingTimers())
}

func TestCloseCancelsTimers(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	f.manager.Close()
	require.Zero(t, f.clock.PendingTimers())
	require.Equal(t, session.Unauthenticated, f.manager.Snapshot().State)

	f.clock.Advance(time.Hour)
	require.Zero(t, f.recorder.warnings)
	require.Zero(t, f.provider.SignOutCalls())

	_, err := f.manager.Login(context.Background(), "anna@example.com", "segreto1")
	require.Error(t, err)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	f := newFixture(t)

	var got []session.Snapshot
	unsubscribe := f.manager.Subscribe(func(s session.Snapshot) { got = append(got, s) })
	f.login(t)
	require.Len(t, got, 1)
	require.Equal(t, session.Active, got[0].State)

	unsubscribe()
	f.clock.Advance(8 * time.Minute)
	require.Len(t, got, 1)
}
