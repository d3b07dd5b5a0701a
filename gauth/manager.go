// Package gauth manages the Google access and refresh tokens used to call Drive.
//
// Tokens are obtained with the authorization-code grant through a popup window,
// persisted as one JSON blob in the key/value store and refreshed on demand when they
// come within RefreshMargin of their expiry.
package gauth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/lyfeumbria/manager/internal/clock"
	"github.com/lyfeumbria/manager/internal/config"
	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/internal/metrics"
	"github.com/lyfeumbria/manager/kvstore"
	"github.com/lyfeumbria/manager/popup"
)

const (
	// StorageKey is where the token blob is persisted.
	StorageKey = "google_auth"
	// RefreshMargin is how close to expiry an access token stops being handed out.
	RefreshMargin = 5 * time.Minute
	// PollInterval is how often an open popup is checked for having been closed.
	PollInterval = time.Second
)

// Scopes requested at sign-in.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

var errMissingFields = errors.New("token blob is missing required fields")

// Config holds the OAuth client registration and provider endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	RevokeURL    string
	UserInfoURL  string
	// Origin is the only message origin accepted from the popup.
	Origin string
}

// ConfigFrom reads the Google settings. origin is the application's public base URL.
func ConfigFrom(g config.GoogleConfig, origin string) Config {
	return Config{
		ClientID:     g.GetGoogleClientID(),
		ClientSecret: g.GetGoogleClientSecret(),
		RedirectURL:  g.GetGoogleRedirectURI(),
		AuthURL:      g.GetGoogleAuthURL(),
		TokenURL:     g.GetGoogleTokenURL(),
		RevokeURL:    g.GetGoogleRevokeURL(),
		UserInfoURL:  g.GetGoogleUserInfoURL(),
		Origin:       origin,
	}
}

func (c Config) complete() bool {
	return c.ClientID != "" && c.RedirectURL != ""
}

// Status is what the dashboard renders for the Drive connection.
type Status struct {
	State         State    `json:"state"`
	Authenticated bool     `json:"isAuthenticated"`
	Loading       bool     `json:"isLoading"`
	Error         string   `json:"error,omitempty"`
	User          *Profile `json:"user,omitempty"`
	ExpiresAt     int64    `json:"expiresAt,omitempty"`
}

type Option func(*Manager)

func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithHTTPClient sets the client used for the token, userinfo and revoke endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

func WithMetrics(r metrics.TokenRecorder) Option {
	return func(m *Manager) { m.metrics = r }
}

type Manager struct {
	cfg      Config
	oauth    *oauth2.Config
	provider *oidc.Provider
	store    kvstore.Store
	relay    *popup.Relay
	clock    clock.Clock
	client   *http.Client
	metrics  metrics.TokenRecorder
	refresh  singleflight.Group

	mu      sync.Mutex
	state   State
	tokens  *TokenSet
	lastErr error
}

func NewManager(cfg Config, store kvstore.Store, relay *popup.Relay, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		store:   store,
		relay:   relay,
		clock:   clock.Real(),
		client:  http.DefaultClient,
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	m.provider = (&oidc.ProviderConfig{
		IssuerURL:   "https://accounts.google.com",
		AuthURL:     cfg.AuthURL,
		TokenURL:    cfg.TokenURL,
		UserInfoURL: cfg.UserInfoURL,
	}).NewProvider(context.Background())
	return m
}

// AuthURL is the consent page the popup is pointed at. state comes back on the redirect
// and ties it to this sign-in.
func (m *Manager) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// SignIn runs the authorization-code flow. It opens the consent page through opener and
// blocks until the popup reports a code, reports an error, or is closed by the user.
func (m *Manager) SignIn(ctx context.Context, opener popup.Opener) error {
	m.mu.Lock()
	if m.state == Authorizing {
		m.mu.Unlock()
		return authError(MsgSignInPending, errors.ErrSignInPending)
	}
	m.state = Authorizing
	m.lastErr = nil
	m.mu.Unlock()

	if !m.cfg.complete() {
		return m.failSignIn("config_missing", authError(MsgConfigMissing, errors.ErrConfigMissing))
	}

	msgs, unsubscribe := m.relay.Subscribe(m.cfg.Origin)
	defer unsubscribe()
	ticker := m.clock.NewTicker(PollInterval)
	defer ticker.Stop()

	state := uuid.NewString()
	win, err := opener.Open(m.AuthURL(state))
	if err != nil || win == nil {
		return m.failSignIn("popup_blocked", authError(MsgPopupBlocked, errors.Wrapf(errors.ErrPopupBlocked, "open popup: %v", err)))
	}

	for {
		select {
		case msg := <-msgs:
			if msg.State != state {
				log.Warn().Str("type", string(msg.Type)).Msg("ignoring authorization result for another sign-in")
				continue
			}
			win.Close()
			switch msg.Type {
			case popup.TypeSuccess:
				return m.completeSignIn(ctx, msg.Code)
			case popup.TypeError:
				text := msg.Error
				if text == "" {
					text = MsgGeneric
				}
				return m.failSignIn("denied", authError(text, fmt.Errorf("authorization failed: %s", msg.Error)))
			}
		case <-ticker.C():
			if win.Closed() {
				return m.failSignIn("cancelled", authError(MsgCancelled, errors.ErrUserCancelled))
			}
		case <-ctx.Done():
			win.Close()
			return m.failSignIn("cancelled", authError(MsgCancelled, ctx.Err()))
		}
	}
}

func (m *Manager) completeSignIn(ctx context.Context, code string) error {
	ctx = m.oauthContext(ctx)

	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		log.Err(err).Msg("authorization code exchange failed")
		return m.failSignIn("exchange_failed", authError(MsgExchangeFailed, providerError("token exchange", err)))
	}

	// expires_in counts from when the token response arrived.
	now := m.clock.Now()

	profile, err := m.fetchProfile(ctx, tok)
	if err != nil {
		log.Err(err).Msg("userinfo request failed")
		return m.failSignIn("userinfo_failed", authError(MsgUserInfoFailed, err))
	}

	set := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt(now, tok),
		User:         *profile,
	}
	if err := m.save(ctx, set); err != nil {
		log.Err(err).Msg("failed to persist google tokens")
		return m.failSignIn("save_failed", authError(MsgSaveFailed, err))
	}

	m.mu.Lock()
	m.tokens = set
	m.state = Valid
	m.lastErr = nil
	m.mu.Unlock()

	m.metrics.SignIn("success")
	log.Info().Str("email", set.User.Email).Time("expires_at", set.ExpiresAt).Msg("google account connected")
	return nil
}

// failSignIn leaves Authorizing. A token set from an earlier sign-in stays usable.
func (m *Manager) failSignIn(result string, err *AuthError) error {
	m.mu.Lock()
	if m.tokens != nil {
		m.state = Valid
	} else {
		m.state = NoToken
	}
	m.lastErr = err
	m.mu.Unlock()

	m.metrics.SignIn(result)
	log.Warn().Err(err.Err).Str("result", result).Msg("google sign-in did not complete")
	return err
}

func (m *Manager) fetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	info, err := m.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	var p Profile
	if err := info.Claims(&p); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if p.Email == "" {
		p.Email = info.Email
	}
	return &p, nil
}

// GetValidAccessToken returns the cached access token while it is more than
// RefreshMargin away from expiry, and refreshes it first otherwise.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	tokens := m.tokens
	if tokens == nil {
		m.mu.Unlock()
		return "", authError(MsgNotAuthenticated, errors.ErrNotAuthenticated)
	}
	if tokens.usableAt(m.clock.Now()) {
		m.mu.Unlock()
		return tokens.AccessToken, nil
	}
	m.mu.Unlock()

	return m.Refresh(ctx)
}

// Refresh exchanges the refresh token for a new access token. Concurrent callers share
// one request. On failure the stale token stays in place.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.refresh.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.tokens == nil || m.tokens.RefreshToken == "" {
		m.mu.Unlock()
		return "", authError(MsgNoRefreshToken, errors.ErrNoRefreshToken)
	}
	current := *m.tokens
	// An open popup keeps the manager in Authorizing while the refresh runs.
	if m.state == Valid {
		m.state = Refreshing
	}
	m.mu.Unlock()

	ctx = m.oauthContext(ctx)
	tok, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken}).Token()
	now := m.clock.Now()
	if err != nil {
		aerr := authError(MsgRefreshFailed, providerError("token refresh", err))
		m.mu.Lock()
		if m.state == Refreshing {
			m.state = Valid
		}
		m.lastErr = aerr
		m.mu.Unlock()

		m.metrics.Refresh("failure")
		log.Err(err).Msg("google token refresh failed")
		return "", aerr
	}

	next := current
	next.AccessToken = tok.AccessToken
	next.ExpiresAt = expiresAt(now, tok)

	m.mu.Lock()
	if m.tokens == nil || m.tokens.RefreshToken != current.RefreshToken {
		m.mu.Unlock()
		return "", authError(MsgNotAuthenticated, errors.ErrNotAuthenticated)
	}
	m.tokens = &next
	if m.state == Refreshing {
		m.state = Valid
	}
	m.mu.Unlock()

	if err := m.save(ctx, &next); err != nil {
		log.Warn().Err(err).Msg("failed to persist refreshed google token")
	}
	m.metrics.Refresh("success")
	log.Debug().Time("expires_at", next.ExpiresAt).Msg("google access token refreshed")
	return next.AccessToken, nil
}

// InitFromStorage restores a persisted token set without any network call. An expired
// or unreadable blob is deleted and the manager stays in NoToken.
func (m *Manager) InitFromStorage(ctx context.Context) error {
	raw, err := m.store.Get(ctx, StorageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("[gauth InitFromStorage] %w", err)
	}

	set, err := unmarshalTokenSet(raw)
	if err != nil {
		log.Warn().Err(err).Msg("discarding unreadable google token blob")
		return m.deleteBlob(ctx)
	}
	if !set.ExpiresAt.After(m.clock.Now()) {
		log.Debug().Time("expires_at", set.ExpiresAt).Msg("discarding expired google token blob")
		return m.deleteBlob(ctx)
	}

	m.mu.Lock()
	m.tokens = set
	m.state = Valid
	m.mu.Unlock()
	log.Info().Str("email", set.User.Email).Msg("google tokens restored")
	return nil
}

// SignOut revokes the access token at the provider on a best-effort basis, then clears
// the in-memory state and the persisted blob.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	tokens := m.tokens
	m.tokens = nil
	m.state = NoToken
	m.lastErr = nil
	m.mu.Unlock()

	if tokens != nil && tokens.AccessToken != "" {
		if err := m.revoke(ctx, tokens.AccessToken); err != nil {
			log.Warn().Err(err).Msg("google token revocation failed")
		}
	}
	return m.deleteBlob(ctx)
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		State:         m.state,
		Authenticated: m.tokens != nil,
		Loading:       m.state == Authorizing,
	}
	if m.lastErr != nil {
		s.Error = m.lastErr.Error()
	}
	if m.tokens != nil {
		u := m.tokens.User
		s.User = &u
		s.ExpiresAt = m.tokens.ExpiresAt.UnixMilli()
	}
	return s
}

// Error is the current user-facing error message, empty when there is none.
func (m *Manager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastErr == nil {
		return ""
	}
	return m.lastErr.Error()
}

// LastError is the current error with its cause.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Tokens returns a copy of the current token set, or nil.
func (m *Manager) Tokens() *TokenSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil
	}
	t := *m.tokens
	return &t
}

func (m *Manager) save(ctx context.Context, set *TokenSet) error {
	raw, err := set.marshal()
	if err != nil {
		return fmt.Errorf("encode token blob: %w", err)
	}
	return m.store.Set(ctx, StorageKey, raw)
}

func (m *Manager) deleteBlob(ctx context.Context) error {
	if err := m.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("[gauth] delete token blob: %w", err)
	}
	return nil
}

func (m *Manager) oauthContext(ctx context.Context) context.Context {
	if m.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// providerError keeps the provider's status and body when the failure came from the endpoint.
func providerError(op string, err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return &errors.ProviderError{Op: op, StatusCode: rerr.Response.StatusCode, Body: string(rerr.Body)}
	}
	return fmt.Errorf("%s: %w", op, err)
}
