package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufSize    = 16
)

// Client messages accepted on the event stream.
const (
	EventActivity = "activity"
	EventExtend   = "extend"
)

type clientEvent struct {
	Type string `json:"type"`
}

// SessionEventsHandler upgrades to a websocket that pushes every session snapshot
// (warning, countdown ticks, expiry) and accepts activity and extend messages.
func (s *Server) SessionEventsHandler() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("session events upgrade failed")
			return
		}

		send := make(chan session.Snapshot, sendBufSize)
		unsubscribe := s.sessions.Subscribe(func(snap session.Snapshot) {
			select {
			case send <- snap:
				return
			default:
			}
			// Slow reader: drop the oldest snapshot, the newest carries the full state.
			select {
			case <-send:
			default:
			}
			select {
			case send <- snap:
			default:
			}
		})
		send <- s.sessions.Snapshot()

		done := make(chan struct{})
		go s.writeEvents(conn, send, done)
		s.readEvents(conn)

		unsubscribe()
		close(done)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.config.GetBaseURL() {
		return true
	}
	allowed := s.config.GetAllowedOrigins()
	return allowed.IsAllowedOrigin(origin) || allowed.IsAllowedOrigin("*")
}

func (s *Server) readEvents(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("session events read failed")
			}
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed session event")
			continue
		}
		switch ev.Type {
		case EventActivity:
			s.sessions.Activity()
		case EventExtend:
			if err := s.sessions.Extend(); err != nil {
				log.Debug().Err(err).Msg("extend ignored")
			}
		default:
			log.Debug().Str("type", ev.Type).Msg("ignoring unknown session event")
		}
	}
}

func (s *Server) writeEvents(conn *websocket.Conn, send <-chan session.Snapshot, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case snap := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
