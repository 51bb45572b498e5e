package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/atlaslabs/atlas-auth/internal/config"
	"github.com/atlaslabs/atlas-auth/internal/domain"
	"github.com/atlaslabs/atlas-auth/internal/password"
	"github.com/atlaslabs/atlas-auth/internal/repository"
)

// EnsureAdmin seeds an admin account for dev/e2e environments. It is a
// no-op unless both ADMIN_EMAIL and ADMIN_PASSWORD are configured.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, users repository.UserRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, users, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, users repository.UserRepository, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	if _, err := users.FindByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	hashed, err := password.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := users.Insert(ctx, domain.User{
		Email:        cfg.AdminEmail,
		PasswordHash: hashed,
		Name:         "Admin",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		// Another replica won the race; the account exists either way.
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap admin user created",
			zap.String("email", created.Email),
			zap.String("user_id", created.ID.Hex()),
		)
	}
	return nil
}
