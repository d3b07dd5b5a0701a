package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/internal/config"
	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/kvstore"
	"github.com/lyfeumbria/manager/users"
)

// SessionKey is the storage key of the durable identity session.
const SessionKey = "identity_session"

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var _ Provider = (*Local)(nil)

// Local is the identity provider backed by the user record store. The durable session
// is an HS256 JWT kept in the key/value store.
type Local struct {
	store    kvstore.Store
	profiles users.ProfileRepo
	creds    users.CredentialRepo
	key      []byte
	maxAge   time.Duration

	mu        sync.Mutex
	listeners map[int]func(*Principal)
	nextID    int
}

type sessionClaims struct {
	Email string `json:"email"`
	jwtlib.RegisteredClaims
}

// RegisterData describes a new account.
type RegisterData struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Name     string         `json:"name"`
	Role     users.RoleType `json:"role"`
}

func NewLocal(cfg config.SecurityConfig, store kvstore.Store, profiles users.ProfileRepo, creds users.CredentialRepo) (*Local, error) {
	key := []byte(cfg.GetSessionSigningKey())
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session signing key: %w", err)
		}
		log.Warn().Msg("SESSION_SIGNING_KEY not set, sessions will not survive a restart")
	}
	return &Local{
		store:     store,
		profiles:  profiles,
		creds:     creds,
		key:       key,
		maxAge:    cfg.GetMaxSessionAge(),
		listeners: make(map[int]func(*Principal)),
	}, nil
}

func (l *Local) VerifyCredentials(ctx context.Context, email, password string) (*Principal, error) {
	creds, err := l.creds.GetByEmail(ctx, email)
	if errors.Is(err, errors.ErrUserNotFound) {
		return nil, errors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("[identity VerifyCredentials] %w", err)
	}
	if !creds.CheckPassword(password) {
		return nil, errors.ErrInvalidCredentials
	}

	principal := &Principal{
		UserID:   creds.UserID,
		Email:    creds.Email,
		IssuedAt: NowTimeFunc().Truncate(time.Second),
	}
	token, err := l.sign(principal)
	if err != nil {
		return nil, err
	}
	if err := l.store.Set(ctx, SessionKey, []byte(token)); err != nil {
		return nil, fmt.Errorf("[identity VerifyCredentials] persist session: %w", err)
	}

	log.Info().Str("user_id", principal.UserID).Msg("principal signed in")
	l.notify(principal)
	return principal, nil
}

// CurrentPrincipal verifies the stored session token. An unreadable or expired token is
// removed and reported as no principal.
func (l *Local) CurrentPrincipal(ctx context.Context) (*Principal, error) {
	raw, err := l.store.Get(ctx, SessionKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[identity CurrentPrincipal] %w", err)
	}

	principal, err := l.parse(string(raw))
	if err != nil {
		log.Warn().Err(err).Msg("discarding invalid identity session")
		if err := l.store.Delete(ctx, SessionKey); err != nil {
			return nil, fmt.Errorf("[identity CurrentPrincipal] delete session: %w", err)
		}
		return nil, nil
	}
	return principal, nil
}

func (l *Local) OnChange(fn func(*Principal)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

func (l *Local) SignOut(ctx context.Context) error {
	if err := l.store.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("[identity SignOut] %w", err)
	}
	l.notify(nil)
	return nil
}

// Register creates the credentials and profile of a new account. It does not sign the
// account in.
func (l *Local) Register(ctx context.Context, data RegisterData) (*users.Profile, error) {
	email := users.NormalizeEmail(data.Email)
	if email == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "email is required")
	}
	if err := users.ValidatePasswordStrength(data.Password); err != nil {
		return nil, errors.Wrapf(errors.ErrWeakPassword, "%s", err.Error())
	}

	_, err := l.creds.GetByEmail(ctx, email)
	if err == nil {
		return nil, errors.ErrEmailInUse
	}
	if !errors.Is(err, errors.ErrUserNotFound) {
		return nil, fmt.Errorf("[identity Register] %w", err)
	}

	hash, err := users.HashPassword(data.Password)
	if err != nil {
		return nil, fmt.Errorf("[identity Register] hash password: %w", err)
	}

	id := uuid.New().String()
	role := data.Role
	if role == "" {
		role = users.RoleUser
	}
	profile := &users.Profile{
		ID:        id,
		Email:     email,
		Name:      data.Name,
		Role:      users.ParseRole(string(role)),
		CreatedAt: NowTimeFunc(),
	}
	if profile.Name == "" {
		profile.Name = users.DefaultName
	}

	if err := l.creds.Upsert(ctx, &users.Credentials{UserID: id, Email: email, PasswordHash: hash}); err != nil {
		return nil, fmt.Errorf("[identity Register] save credentials: %w", err)
	}
	if err := l.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("[identity Register] save profile: %w", err)
	}
	log.Info().Str("user_id", id).Str("role", string(profile.Role)).Msg("account registered")
	return profile, nil
}

func (l *Local) sign(p *Principal) (string, error) {
	claims := sessionClaims{
		Email: p.Email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwtlib.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwtlib.NewNumericDate(p.IssuedAt.Add(l.maxAge)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(l.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (l *Local) parse(token string) (*Principal, error) {
	claims := &sessionClaims{}
	_, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		return l.key, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(NowTimeFunc),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("session token has no subject")
	}

	p := &Principal{UserID: claims.Subject, Email: claims.Email}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	return p, nil
}

func (l *Local) notify(p *Principal) {
	l.mu.Lock()
	fns := make([]func(*Principal), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}
