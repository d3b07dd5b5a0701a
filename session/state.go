package session

import (
	"fmt"
	"time"

	"github.com/lyfeumbria/manager/users"
)

type State int

const (
	Unauthenticated State = iota
	Active
	Warning
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Active:
		return "active"
	case Warning:
		return "warning"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reasons a session ends.
const (
	ReasonLogout        = "logout"
	ReasonExpired       = "expired"
	ReasonPrincipalLost = "principal_lost"
	ReasonClosed        = "closed"
)

// Session is the signed-in application user.
type Session struct {
	UserID    string         `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Role      users.RoleType `json:"role"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == users.RoleAdmin
}

// Snapshot is the observable state of the manager at one instant.
type Snapshot struct {
	State          State    `json:"state"`
	Session        *Session `json:"user,omitempty"`
	WarningVisible bool     `json:"showSessionWarning"`
	SecondsLeft    int      `json:"sessionWarningTimeLeft"`
	EndReason      string   `json:"endReason,omitempty"`
}

func newSession(p *users.Profile, email string) *Session {
	if email == "" {
		email = p.Email
	}
	return &Session{
		UserID:    p.ID,
		Email:     email,
		Name:      p.Name,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
	}
}
