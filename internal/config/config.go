package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config aggregates everything the server process needs from the environment.
type Config struct {
	Addr      string
	DSN       string
	JWTSecret string
	RedisAddr string
}

// Load reads configuration from the environment, with a best-effort .env file
// for development. DB_DSN and JWT_SECRET are required.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:      getenv("ADDR", ":8080"),
		DSN:       os.Getenv("DB_DSN"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
	}

	if cfg.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
