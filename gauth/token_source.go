package gauth

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the manager to oauth2.TokenSource so HTTP clients pick up a valid,
// refreshed-when-needed access token on every request.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, m: m}
}

type managerTokenSource struct {
	ctx context.Context
	m   *Manager
}

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	access, err := s.m.GetValidAccessToken(s.ctx)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if set := s.m.Tokens(); set != nil && set.AccessToken == access {
		tok.Expiry = set.ExpiresAt
	}
	return tok, nil
}
