package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/drive"
	"github.com/lyfeumbria/manager/gauth"
	"github.com/lyfeumbria/manager/identity"
	"github.com/lyfeumbria/manager/internal/config"
	"github.com/lyfeumbria/manager/internal/metrics"
	"github.com/lyfeumbria/manager/kvstore"
	"github.com/lyfeumbria/manager/popup"
	"github.com/lyfeumbria/manager/server/loginsession"
	"github.com/lyfeumbria/manager/session"
	"github.com/lyfeumbria/manager/users"
)

// Registrar creates accounts on behalf of an administrator.
type Registrar interface {
	Register(ctx context.Context, data identity.RegisterData) (*users.Profile, error)
}

// Services are the collaborators the HTTP surface drives.
type Services struct {
	Sessions *session.Manager
	Logins   loginsession.Repo
	Accounts Registrar
	Profiles users.ProfileRepo
	Google   *gauth.Manager
	Relay    *popup.Relay
	Popups   *popup.Registry
	Drive    *drive.Client
	Gatherer prometheus.Gatherer
}

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config

	sessions *session.Manager
	logins   loginsession.Repo
	accounts Registrar
	profiles users.ProfileRepo
	google   *gauth.Manager
	relay    *popup.Relay
	popups   *popup.Registry
	drive    *drive.Client
	gatherer prometheus.Gatherer

	loginLimiter *RateLimiter
	unsubscribe  func()

	// ctx bounds background sign-ins started by the drive auth handlers.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.Config, svc Services) (*Server, error) {
	if svc.Sessions == nil || svc.Google == nil || svc.Relay == nil || svc.Popups == nil {
		return nil, fmt.Errorf("[Server New] session manager, token manager and popup relay are required")
	}
	if svc.Gatherer == nil {
		svc.Gatherer = prometheus.DefaultGatherer
	}
	if svc.Logins == nil {
		svc.Logins = loginsession.NewKVRepo(kvstore.NewMemory())
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		env:          cfg.GetEnv(),
		mux:          http.NewServeMux(),
		config:       cfg,
		sessions:     svc.Sessions,
		logins:       svc.Logins,
		accounts:     svc.Accounts,
		profiles:     svc.Profiles,
		google:       svc.Google,
		relay:        svc.Relay,
		popups:       svc.Popups,
		drive:        svc.Drive,
		gatherer:     svc.Gatherer,
		loginLimiter: NewRateLimiter(cfg.GetLoginRatePerMinute()),
		ctx:          ctx,
		cancel:       cancel,
	}

	if err := s.InitialiseSystem(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("[Server New] failed to initialise the system: %w", err)
	}

	// A session that ends for any reason takes its browser binding with it.
	s.unsubscribe = s.sessions.Subscribe(func(snap session.Snapshot) {
		if snap.State != session.Unauthenticated {
			return
		}
		if err := s.logins.Clear(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to clear login session")
		}
	})

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// MetricsHandler exposes the prometheus registry.
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler(s.gatherer)
}

// Close cancels pending sign-ins and waits for them to settle.
func (s *Server) Close() {
	s.unsubscribe()
	s.cancel()
	s.wg.Wait()
	s.loginLimiter.Stop()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1], 0)
		} else {
			logRoute("", parts[0], 0)
		}
	}
}

func logRoute(method, path string, status int) {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	event := log.Debug().Str("method", color+fmt.Sprintf("%-7s", method)+ResetColor).Str("path", path)
	if status != 0 {
		event = event.Int("status", status)
	}
	event.Msg("route")
}

// clientIP is the caller's address, preferring the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
