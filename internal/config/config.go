package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	LobbyGrace      time.Duration
	CoinFlipDefault bool
	AllowedOrigins  []string
}

// Load reads .env if present, then the environment, falling back to
// defaults suited for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            intEnv("PORT", 4000),
		LobbyGrace:      durationEnv("LOBBY_GRACE", 2*time.Minute),
		CoinFlipDefault: boolEnv("COIN_FLIP_DEFAULT", true),
		AllowedOrigins:  listEnv("ALLOWED_ORIGINS", []string{"*"}),
	}
}

func intEnv(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func boolEnv(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func listEnv(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
