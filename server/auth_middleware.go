package server

import (
	"context"
	"net/http"

	"github.com/lyfeumbria/manager/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the active *session.Session
const ContextKeySession ContextKey = "session"

// SessionFromContext returns the session injected by RequireSession.
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ContextKeySession).(*session.Session)
	return sess
}

// RequireSession rejects the request unless it carries the login cookie of the session
// that is Active or in Warning.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeySession, sess)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin must run after RequireSession.
func (s *Server) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !sess.IsAdmin() {
			writeError(w, http.StatusForbidden, "administrator role required")
			return
		}
		next(w, r)
	}
}
