package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/session"
)

// LoginSessionCookie carries the id binding a browser to the signed-in user.
const LoginSessionCookie = "loggedInSessionId"

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (s *Server) setLoginSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     LoginSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || strings.HasPrefix(s.config.GetBaseURL(), "https://"),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) clearLoginSessionCookie(w http.ResponseWriter, r *http.Request) {
	s.setLoginSessionCookie(w, r, "", -1)
}

// authenticate resolves the request's login cookie to the active session. The cookie
// must name the current binding and that binding must belong to the session's user.
func (s *Server) authenticate(r *http.Request) (*session.Session, error) {
	cookie, err := r.Cookie(LoginSessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, errors.ErrNotAuthenticated
	}
	binding, err := s.logins.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			log.Warn().Err(err).Msg("failed to load login session")
		}
		return nil, errors.ErrNotAuthenticated
	}
	if time.Now().After(binding.ExpiresAt) {
		if err := s.logins.Delete(r.Context(), binding.ID); err != nil {
			log.Warn().Err(err).Msg("failed to delete expired login session")
		}
		return nil, errors.ErrSessionExpired
	}
	sess := s.sessions.Current()
	if sess == nil || sess.UserID != binding.UserID {
		return nil, errors.ErrNotAuthenticated
	}
	return sess, nil
}
