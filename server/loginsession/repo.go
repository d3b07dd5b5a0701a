// Package loginsession binds a browser to the signed-in user through an opaque cookie id.
package loginsession

import (
	"context"
	"time"
)

// Session is the server side of the login cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Repo interface {
	Upsert(ctx context.Context, session Session) error
	// Get returns the binding for id, or an error wrapping errors.ErrNotFound.
	Get(ctx context.Context, id string) (Session, error)
	// Delete removes the binding when it still belongs to id.
	Delete(ctx context.Context, id string) error
	// Clear drops whatever binding exists.
	Clear(ctx context.Context) error
}
