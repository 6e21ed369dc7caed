package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"candleloader/internal/adapters/logger" // Import the logger package for LogLevel
)

// AllSymbols is the SYMBOLS sentinel that resolves the symbol list from the
// provider's instrument listing at startup.
const AllSymbols = "all"

// maxPageLimit mirrors the provider's hard cap on kline rows per request.
const maxPageLimit = 1000

// Config holds all application configuration.
type Config struct {
	// Download surface
	Symbols  []string // Trading pairs to backfill; empty means AllSymbols was requested
	Interval int      // Candle interval in minutes (e.g. 240 for 4H candles)
	Limit    int      // Page size per kline request
	Years    int      // Lookback window length in 365-day years

	// Provider
	BaseURL  string
	Category string // Product category, e.g. "linear" for USDT perpetuals

	// Output
	DataDir string

	// Timing
	RequestTimeout time.Duration // Per-request HTTP timeout
	CourtesyDelay  time.Duration // Pause between pagination steps (rate-limit courtesy)

	// Logging
	LogLevel logger.LogLevel
}

// IntervalLabel returns the human label used in output file names,
// e.g. 240 -> "4H", 60 -> "1H", 1440 -> "1D".
func (c *Config) IntervalLabel() string {
	switch {
	case c.Interval >= 1440 && c.Interval%1440 == 0:
		return fmt.Sprintf("%dD", c.Interval/1440)
	case c.Interval >= 60 && c.Interval%60 == 0:
		return fmt.Sprintf("%dH", c.Interval/60)
	default:
		return fmt.Sprintf("%dM", c.Interval)
	}
}

// WantAllSymbols reports whether the symbol list should be resolved from the
// provider instead of the configured list.
func (c *Config) WantAllSymbols() bool {
	return len(c.Symbols) == 0
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Symbols: comma-separated list, or the "all" sentinel.
	symbolsRaw := getEnv("SYMBOLS", "BTCUSDT,ETHUSDT,BNBUSDT,XRPUSDT,SOLUSDT")
	if strings.EqualFold(strings.TrimSpace(symbolsRaw), AllSymbols) {
		cfg.Symbols = nil
	} else {
		for _, s := range strings.Split(symbolsRaw, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				cfg.Symbols = append(cfg.Symbols, s)
			}
		}
		if len(cfg.Symbols) == 0 {
			errs = append(errs, "SYMBOLS must name at least one trading pair")
		}
	}

	cfg.Interval, err = getEnvAsIntRequired("INTERVAL", 240)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INTERVAL: %v", err))
	} else if cfg.Interval <= 0 {
		errs = append(errs, "INTERVAL must be positive")
	}

	cfg.Limit, err = getEnvAsIntRequired("LIMIT", maxPageLimit)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LIMIT: %v", err))
	} else if cfg.Limit <= 0 || cfg.Limit > maxPageLimit {
		errs = append(errs, fmt.Sprintf("LIMIT must be between 1 and %d", maxPageLimit))
	}

	cfg.Years, err = getEnvAsIntRequired("YEARS", 4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid YEARS: %v", err))
	} else if cfg.Years <= 0 {
		errs = append(errs, "YEARS must be positive")
	}

	cfg.BaseURL = getEnv("BASE_URL", "https://api.bybit.com")
	if cfg.BaseURL == "" {
		errs = append(errs, "BASE_URL must be set")
	}

	cfg.Category = getEnv("CATEGORY", "linear")
	if cfg.Category == "" {
		errs = append(errs, "CATEGORY must be set")
	}

	cfg.DataDir = getEnv("DATA_DIR", "./data")
	if cfg.DataDir == "" {
		errs = append(errs, "DATA_DIR must be set")
	}

	timeoutSeconds := getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 15)
	if timeoutSeconds <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	cfg.RequestTimeout = time.Duration(timeoutSeconds) * time.Second

	// Bybit allows 600 requests/min on public endpoints; 150ms keeps well under.
	delayMs := getEnvAsInt("COURTESY_DELAY_MS", 150)
	if delayMs < 0 {
		errs = append(errs, "COURTESY_DELAY_MS cannot be negative")
	}
	cfg.CourtesyDelay = time.Duration(delayMs) * time.Millisecond

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
