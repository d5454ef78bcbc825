package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, 4000, cfg.Port)
	require.Equal(t, 2*time.Minute, cfg.LobbyGrace)
	require.True(t, cfg.CoinFlipDefault)
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOBBY_GRACE", "30s")
	t.Setenv("COIN_FLIP_DEFAULT", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, 30*time.Second, cfg.LobbyGrace)
	require.False(t, cfg.CoinFlipDefault)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
