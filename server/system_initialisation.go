package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/identity"
	"github.com/lyfeumbria/manager/internal/errors"
	"github.com/lyfeumbria/manager/users"
)

// DefaultAdminName is the display name of the bootstrap administrator.
const DefaultAdminName = "Amministratore"

// InitialiseSystem creates the administrator account named by ADMIN_EMAIL and
// ADMIN_PASSWORD when it does not exist yet. Without both variables nothing happens.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	email := users.NormalizeEmail(s.config.GetAdminEmail())
	password := s.config.GetAdminPassword()
	if email == "" || password == "" {
		log.Debug().Msg("no bootstrap administrator configured")
		return nil
	}
	if s.accounts == nil {
		return fmt.Errorf("[Server InitialiseSystem] administrator configured but no account registrar")
	}

	profile, err := s.accounts.Register(ctx, identity.RegisterData{
		Email:    email,
		Password: password,
		Name:     DefaultAdminName,
		Role:     users.RoleAdmin,
	})
	if errors.Is(err, errors.ErrEmailInUse) {
		log.Debug().Str("email", email).Msg("bootstrap administrator already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to create administrator: %w", err)
	}

	log.Info().Str("email", profile.Email).Str("user_id", profile.ID).Msg("bootstrap administrator created")
	return nil
}
