package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Snapshot settings
	SnapshotPath string

	// Refresh job settings
	RefreshCron    string
	RefreshOnStart bool
	Instruments    []string

	// Market data source
	MarketAPIBaseURL string
	MarketAPITimeout time.Duration

	// Session settings
	SessionTTL time.Duration

	// Frontend URL for reference (CORS)
	FrontendBaseURL string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// defaultInstruments is the hard-coded instrument list used when ETF_INSTRUMENTS
// is not configured. High-volume Taiwan dividend ETFs.
var defaultInstruments = []string{
	"0050", "0056", "00713", "00878", "00919", "00929", "00939", "00940", "00679B",
}

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from a subdir)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./etfolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Snapshot
		SnapshotPath: getEnv("SNAPSHOT_PATH", "data/etf_dividend_data.csv"),

		// Refresh: 02:00 daily by default (6-field cron spec, with seconds)
		RefreshCron:    getEnv("REFRESH_CRON", "0 0 2 * * *"),
		RefreshOnStart: getEnvAsBool("REFRESH_ON_START", false),
		Instruments:    getInstruments("ETF_INSTRUMENTS"),

		// Market data
		MarketAPIBaseURL: getEnv("MARKET_API_BASE_URL", "https://query1.finance.yahoo.com"),
		MarketAPITimeout: getEnvAsDuration("MARKET_API_TIMEOUT", 20*time.Second),

		// Sessions
		SessionTTL: getEnvAsDuration("SESSION_TTL", 12*time.Hour),

		// URLs
		FrontendBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, SnapshotPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.SnapshotPath)
	log.Printf("Refresh schedule: %q (onStart=%v), instruments: %d",
		Cfg.RefreshCron, Cfg.RefreshOnStart, len(Cfg.Instruments))
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a fallback.
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %v", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getInstruments retrieves and parses the comma-separated instrument list,
// falling back to the built-in default list.
func getInstruments(key string) []string {
	instrumentsStr := getEnv(key, "")
	if instrumentsStr == "" {
		return defaultInstruments
	}
	var out []string
	for _, code := range strings.Split(instrumentsStr, ",") {
		code = strings.TrimSpace(code)
		if code != "" {
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		return defaultInstruments
	}
	return out
}
