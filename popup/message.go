// Package popup carries the result of a popup-window authorization back to the window
// that opened it.
package popup

import (
	"sync"

	"github.com/lyfeumbria/manager/internal/errors"
)

type MessageType string

const (
	TypeSuccess MessageType = "GOOGLE_AUTH_SUCCESS"
	TypeError   MessageType = "GOOGLE_AUTH_ERROR"
)

// Message is what the redirect page posts to its opener. State echoes the OAuth state
// parameter of the authorization request it answers.
type Message struct {
	Origin string      `json:"-"`
	State  string      `json:"-"`
	Type   MessageType `json:"type"`
	Code   string      `json:"code,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ErrBlocked is returned by an Opener that cannot open the window.
var ErrBlocked = errors.ErrPopupBlocked

// Window is an open popup.
type Window interface {
	Closed() bool
	Close()
}

type Opener interface {
	Open(url string) (Window, error)
}

// Relay delivers posted messages to subscribers of the same origin.
type Relay struct {
	mu   sync.Mutex
	subs map[int]subscriber
	next int
}

type subscriber struct {
	origin string
	ch     chan Message
}

func NewRelay() *Relay {
	return &Relay{subs: make(map[int]subscriber)}
}

// Subscribe returns a channel receiving messages posted with the given origin. The
// caller must call unsubscribe once it has settled.
func (r *Relay) Subscribe(origin string) (<-chan Message, func()) {
	ch := make(chan Message, 1)

	r.mu.Lock()
	id := r.next
	r.next++
	r.subs[id] = subscriber{origin: origin, ch: ch}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Post delivers msg to every subscriber whose origin matches and reports how many
// received it. A subscriber with an undrained message does not receive a second one.
func (r *Relay) Post(msg Message) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for _, sub := range r.subs {
		if sub.origin != msg.Origin {
			continue
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}
