// Package identity verifies credentials and keeps the durable signed-in principal,
// notifying listeners whenever it changes.
package identity

import (
	"context"
	"time"
)

// Principal is the signed-in account as the identity provider knows it.
type Principal struct {
	UserID   string
	Email    string
	IssuedAt time.Time
}

type Provider interface {
	// VerifyCredentials signs the account in and makes it the current principal.
	VerifyCredentials(ctx context.Context, email, password string) (*Principal, error)
	// CurrentPrincipal returns the durable principal, or nil when nobody is signed in.
	CurrentPrincipal(ctx context.Context) (*Principal, error)
	// OnChange registers a listener called with the new principal (nil on sign-out).
	OnChange(fn func(*Principal)) (unsubscribe func())
	SignOut(ctx context.Context) error
}
