package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/popup"
)

// flowStartTimeout bounds how long the start handler waits for the sign-in to hand over
// its authorization URL.
const flowStartTimeout = 5 * time.Second

type flowStartResponse struct {
	FlowID  string `json:"flowId"`
	AuthURL string `json:"authUrl"`
}

// DriveAuthStartHandler registers a popup window and starts the blocking sign-in in the
// background. The browser opens AuthURL in the popup and reports closure through
// RouteDriveAuthClosed.
func (s *Server) DriveAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.popups.Prune(popup.NowTimeFunc().Add(-time.Hour))
		win := s.popups.Create()

		failed := make(chan error, 1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.google.SignIn(s.ctx, win); err != nil {
				failed <- err
				return
			}
			log.Info().Str("flow", win.ID).Msg("google sign-in flow completed")
		}()

		select {
		case <-win.Opened():
			writeJSON(w, http.StatusOK, flowStartResponse{FlowID: win.ID, AuthURL: win.URL()})
		case err := <-failed:
			win.Close()
			writeDomainError(w, err)
		case <-time.After(flowStartTimeout):
			win.Close()
			writeError(w, http.StatusGatewayTimeout, "authorization flow did not start")
		case <-r.Context().Done():
			win.Close()
		}
	}
}

// DriveAuthClosedHandler is called by the browser when it sees the popup close.
func (s *Server) DriveAuthClosedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.popups.MarkClosed(r.PathValue("flow")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) DriveAuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.google.Status())
	}
}

func (s *Server) DriveSignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.google.SignOut(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.google.Status())
	}
}

type callbackPage struct {
	Origin  string
	Type    popup.MessageType
	Error   string
	Success bool
}

// AuthCallbackHandler is the redirect target of the consent popup. It relays the
// authorization result to the token manager as a same-origin message and renders a
// page that closes the popup. Only the signed-in browser may answer, and only for a
// popup this server opened.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("callback.html")
	if err != nil {
		panic("failed to parse callback template: " + err.Error())
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := callbackPage{Origin: s.config.GetBaseURL(), Type: popup.TypeError}

		if _, err := s.authenticate(r); err != nil {
			log.Warn().Str("remote", clientIP(r)).Msg("authorization callback without a login session")
			page.Error = "Sessione non valida"
			renderPage(w, http.StatusUnauthorized, tmpl, page)
			return
		}
		state := q.Get("state")
		if _, err := s.popups.FindByState(state); err != nil {
			log.Warn().Str("remote", clientIP(r)).Msg("authorization callback for an unknown flow")
			page.Error = "Richiesta di autorizzazione sconosciuta"
			renderPage(w, http.StatusBadRequest, tmpl, page)
			return
		}

		msg := popup.Message{
			Origin: s.config.GetBaseURL(),
			State:  state,
			Type:   popup.TypeSuccess,
			Code:   q.Get("code"),
		}
		if e := q.Get("error"); e != "" || msg.Code == "" {
			msg.Type = popup.TypeError
			msg.Code = ""
			msg.Error = callbackError(e, q.Get("error_description"))
		}

		if delivered := s.relay.Post(msg); delivered == 0 {
			log.Warn().Str("type", string(msg.Type)).Msg("authorization callback arrived with no sign-in waiting")
		}

		page.Type = msg.Type
		page.Error = msg.Error
		page.Success = msg.Type == popup.TypeSuccess
		renderPage(w, http.StatusOK, tmpl, page)
	}
}

func callbackError(code, description string) string {
	switch {
	case code == "access_denied":
		return "Accesso negato dall'utente"
	case description != "":
		return description
	case code != "":
		return code
	}
	return "Codice di autorizzazione mancante"
}

