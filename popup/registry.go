package popup

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lyfeumbria/manager/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Registry tracks popup windows that live in the browser. Each window is an Opener for
// exactly one authorization URL; the browser reports back when the user closes it.
type Registry struct {
	mu      sync.RWMutex
	windows map[string]*BrowserWindow
}

func NewRegistry() *Registry {
	return &Registry{windows: make(map[string]*BrowserWindow)}
}

// BrowserWindow is a popup opened by the browser on the server's behalf.
type BrowserWindow struct {
	ID        string
	CreatedAt time.Time

	registry *Registry
	once     sync.Once
	opened   chan struct{}

	mu     sync.Mutex
	url    string
	state  string
	closed bool
}

var (
	_ Opener = (*BrowserWindow)(nil)
	_ Window = (*BrowserWindow)(nil)
)

// Create registers a new window that has not been opened yet.
func (r *Registry) Create() *BrowserWindow {
	w := &BrowserWindow{
		ID:        uuid.New().String(),
		CreatedAt: NowTimeFunc(),
		registry:  r,
		opened:    make(chan struct{}),
	}
	r.mu.Lock()
	r.windows[w.ID] = w
	r.mu.Unlock()
	return w
}

func (r *Registry) Get(id string) (*BrowserWindow, error) {
	if id == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "window id cannot be empty")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.windows[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "window %s", id)
	}
	return w, nil
}

// FindByState returns the open window whose authorization URL carries state.
func (r *Registry) FindByState(state string) (*BrowserWindow, error) {
	if state == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "state cannot be empty")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.windows {
		if w.State() == state {
			return w, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "no window for state")
}

// MarkClosed records that the browser saw the popup close.
func (r *Registry) MarkClosed(id string) error {
	w, err := r.Get(id)
	if err != nil {
		return err
	}
	w.Close()
	return nil
}

// Len reports how many windows are tracked.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.windows)
}

// Prune closes and forgets windows created before cutoff.
func (r *Registry) Prune(cutoff time.Time) int {
	r.mu.RLock()
	var stale []*BrowserWindow
	for _, w := range r.windows {
		if w.CreatedAt.Before(cutoff) {
			stale = append(stale, w)
		}
	}
	r.mu.RUnlock()

	for _, w := range stale {
		w.Close()
	}
	return len(stale)
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.windows, id)
	r.mu.Unlock()
}

// Open hands the authorization URL to the browser. A window opens once.
func (w *BrowserWindow) Open(authURL string) (Window, error) {
	var state string
	if u, err := url.Parse(authURL); err == nil {
		state = u.Query().Get("state")
	}
	opened := false
	w.once.Do(func() {
		w.mu.Lock()
		w.url = authURL
		w.state = state
		w.mu.Unlock()
		close(w.opened)
		opened = true
	})
	if !opened {
		return nil, fmt.Errorf("window %s already opened: %w", w.ID, ErrBlocked)
	}
	return w, nil
}

// Opened is closed once Open has been called.
func (w *BrowserWindow) Opened() <-chan struct{} {
	return w.opened
}

func (w *BrowserWindow) URL() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.url
}

// State is the OAuth state of the URL the window was opened with.
func (w *BrowserWindow) State() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *BrowserWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close marks the window closed and drops it from the registry.
func (w *BrowserWindow) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.registry.remove(w.ID)
}
