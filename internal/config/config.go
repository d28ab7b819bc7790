package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// APIConfig carries the operational knobs for the API server and worker.
// Gameplay tunables live in Config and tunables.go.
type APIConfig struct {
	Addr           string
	DatabaseURL    string
	PriceTickEvery time.Duration
	AccrueEvery    time.Duration
	LossCapEnabled bool
}

// AdminConfig is what the ctc admin commands need to reach the store.
type AdminConfig struct {
	DatabaseURL string
}

// CLIConfig is what the player CLI needs to reach the API.
type CLIConfig struct {
	APIBaseURL string
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{APIBaseURL: envDefault("CITYCOIN_API_URL", "http://localhost:8080")}
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("CITYCOIN_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:           addr,
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PriceTickEvery: envDurationDefault("CITYCOIN_PRICE_TICK_EVERY", 5*time.Minute),
		AccrueEvery:    envDurationDefault("CITYCOIN_ACCRUE_EVERY", 15*time.Minute),
		LossCapEnabled: envBoolDefault("CITYCOIN_LOSS_CAP_ENABLED", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadAdminFromEnv() (AdminConfig, error) {
	cfg := AdminConfig{DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL"))}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
