package gauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/lyfeumbria/manager/internal/errors"
)

// revoke posts the token to the revocation endpoint as a query parameter.
func (m *Manager) revoke(ctx context.Context, token string) error {
	u, err := url.Parse(m.cfg.RevokeURL)
	if err != nil {
		return fmt.Errorf("parse revoke url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &errors.ProviderError{Op: "token revoke", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}
