package server

import (
	"net/http"

	"github.com/lyfeumbria/manager/session"
)

// SessionHandler reports the session state, countdown included. A browser without the
// login cookie sees Unauthenticated whoever else is signed in.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.authenticate(r); err != nil {
			writeJSON(w, http.StatusOK, session.Snapshot{State: session.Unauthenticated})
			return
		}
		writeJSON(w, http.StatusOK, s.sessions.Snapshot())
	}
}

// ActivityHandler records user interaction seen by the browser.
func (s *Server) ActivityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sessions.Activity()
		writeJSON(w, http.StatusOK, s.sessions.Snapshot())
	}
}

// ExtendHandler answers the expiry warning with "stay signed in".
func (s *Server) ExtendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sessions.Extend(); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.sessions.Snapshot())
	}
}
