package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath        = "./dev.db"
	defaultPort          = "8080"
	defaultEnvironment   = "development"
	defaultMigrationsDir = "migrations"
	defaultCurrency      = "CAD"
	defaultJurisdiction  = "ON"
	defaultTaxRate       = 0.13
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Environment   string
	DBPath        string
	Port          string
	MigrationsDir string

	// Currency and tax defaults seed the rate card on first start.
	Currency            string
	DefaultJurisdiction string
	DefaultTaxRate      float64

	// Warnings collects non-fatal problems found while loading.
	Warnings []string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: a missing .env is normal outside local development.
	_ = godotenv.Load(".env")

	cfg := Config{
		Environment:         envOrDefault("SKIPQ_ENV", defaultEnvironment),
		DBPath:              envOrDefault("DB_PATH", defaultDBPath),
		Port:                envOrDefault("PORT", defaultPort),
		MigrationsDir:       envOrDefault("MIGRATIONS_DIR", defaultMigrationsDir),
		Currency:            strings.ToUpper(envOrDefault("SKIPQ_CURRENCY", defaultCurrency)),
		DefaultJurisdiction: strings.ToUpper(envOrDefault("SKIPQ_DEFAULT_JURISDICTION", defaultJurisdiction)),
		DefaultTaxRate:      defaultTaxRate,
	}

	if raw := os.Getenv("SKIPQ_DEFAULT_TAX_RATE"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 || rate >= 1 {
			cfg.Warnings = append(cfg.Warnings, "SKIPQ_DEFAULT_TAX_RATE must be a fraction in [0, 1); using 0.13")
		} else {
			cfg.DefaultTaxRate = rate
		}
	}

	return cfg
}

// IsDev reports whether migrations should be applied automatically on startup.
func (c Config) IsDev() bool {
	return c.Environment != "production"
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
