package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/identity"
	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/internal/utils"
	"github.com/lyfeumbria/manager/server/loginsession"
	"github.com/lyfeumbria/manager/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
}

// LoginHandler verifies credentials, binds the browser to the new session with the
// login cookie and answers with the session snapshot.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, err)
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		sess, err := s.sessions.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, errors.ErrInvalidCredentials) {
				log.Info().Str("remote", clientIP(r)).Msg("rejected login")
			}
			writeDomainError(w, err)
			return
		}

		maxAge := s.config.GetMaxSessionAge()
		now := time.Now()
		binding := loginsession.Session{
			ID:        generateRandomString(32),
			UserID:    sess.UserID,
			Email:     sess.Email,
			CreatedAt: now,
			ExpiresAt: now.Add(maxAge),
		}
		if err := s.logins.Upsert(r.Context(), binding); err != nil {
			log.Err(err).Str("user_id", sess.UserID).Msg("failed to store login session")
			writeError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
		s.setLoginSessionCookie(w, r, binding.ID, int(maxAge/time.Second))
		writeJSON(w, http.StatusOK, s.sessions.Snapshot())
	}
}

// LogoutHandler ends the session of the browser that holds the login cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sessions.Logout(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		if cookie, err := r.Cookie(LoginSessionCookie); err == nil {
			if err := s.logins.Delete(r.Context(), cookie.Value); err != nil {
				log.Warn().Err(err).Msg("failed to delete login session")
			}
		}
		s.clearLoginSessionCookie(w, r)
		writeJSON(w, http.StatusOK, s.sessions.Snapshot())
	}
}

// RegisterHandler creates an account. Only administrators reach it.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.accounts == nil {
			writeError(w, http.StatusNotImplemented, "registration is not available")
			return
		}
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, err)
			return
		}

		profile, err := s.accounts.Register(r.Context(), identity.RegisterData{
			Email:    req.Email,
			Password: req.Password,
			Name:     utils.Value(req.Name),
			Role:     users.ParseRole(utils.ValueOr(req.Role, string(users.RoleUser))),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		log.Info().Str("admin_id", SessionFromContext(r.Context()).UserID).Str("user_id", profile.ID).Msg("account created by administrator")
		writeJSON(w, http.StatusCreated, profile)
	}
}

// MeHandler returns the signed-in user.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, SessionFromContext(r.Context()))
	}
}

// UsersHandler lists every profile for the user management screen.
func (s *Server) UsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.profiles == nil {
			writeError(w, http.StatusNotImplemented, "user listing is not available")
			return
		}
		profiles, err := s.profiles.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if profiles == nil {
			profiles = []*users.Profile{}
		}
		writeJSON(w, http.StatusOK, profiles)
	}
}
