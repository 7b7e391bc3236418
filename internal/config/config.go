// Package config loads process configuration for entry points: a
// best-effort .env load via godotenv, then plain os.Getenv reads, with
// defaults for anything unset.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/nexustables/managedtable/internal/services"
)

// Config holds everything an entry point needs to wire the engine: where
// the warehouse lives and how many times the bus will retry a failing
// reconciliation before giving up.
type Config struct {
	WarehouseDSN string
	MaxRetries   int
}

// Load reads configuration from the environment, after attempting to load a
// local .env file (ignored entirely if absent; this is a convenience for
// local runs, not a requirement).
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: not loading .env: %s", err)
	}

	cfg := Config{
		WarehouseDSN: os.Getenv("MANAGEDTABLE_WAREHOUSE_DSN"),
		MaxRetries:   services.DefaultMaxRetries,
	}
	if raw := os.Getenv("MANAGEDTABLE_MAX_RETRIES"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.MaxRetries = n
		} else {
			log.Printf("config: ignoring invalid MANAGEDTABLE_MAX_RETRIES=%q", raw)
		}
	}
	return cfg
}
