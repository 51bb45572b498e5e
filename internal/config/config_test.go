package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")
	t.Setenv("AUTH_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8000", cfg.HTTPPort)
	require.Equal(t, "auth", cfg.DatabaseName)
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")
	t.Setenv("AUTH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTH_SECRET", "test-secret")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")
	t.Setenv("AUTH_SECRET", "test-secret")
	t.Setenv("PORT", "9100")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9100", cfg.HTTPPort)
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}
