package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cryptoSignalDash/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// HTTP surface
	HTTPHost string
	HTTPPort int

	// Analysis webhook
	WebhookURL        string
	WebhookTimeout    time.Duration
	WebhookMaxElapsed time.Duration // Upper bound for retry backoff

	// Market data (Binance public endpoints work without keys)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Assets: logical asset key -> exchange symbol
	Assets map[string]string

	// Verification
	VerifyInterval time.Duration

	// Chart
	CandleInterval     time.Duration
	CandleHistoryLimit int

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel

	// Connection Settings (stream reconnects)
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// defaultAssets mirrors the dashboard's fixed asset selector.
var defaultAssets = map[string]string{
	"bitcoin":  "BTCUSDT",
	"ethereum": "ETHUSDT",
	"solana":   "SOLUSDT",
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// HTTP surface (local-only by default)
	cfg.HTTPHost = getEnv("HTTP_HOST", "127.0.0.1")
	cfg.HTTPPort, err = getEnvAsIntRequired("HTTP_PORT", 8080)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HTTP_PORT: %v", err))
	} else if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		errs = append(errs, "HTTP_PORT must be between 1 and 65535")
	}

	// Analysis webhook
	cfg.WebhookURL = getEnv("WEBHOOK_URL", "")
	if cfg.WebhookURL == "" {
		errs = append(errs, "WEBHOOK_URL must be set")
	}
	webhookTimeoutSeconds := getEnvAsInt("WEBHOOK_TIMEOUT_SECONDS", 30)
	if webhookTimeoutSeconds <= 0 {
		errs = append(errs, "WEBHOOK_TIMEOUT_SECONDS must be positive")
	}
	cfg.WebhookTimeout = time.Duration(webhookTimeoutSeconds) * time.Second
	cfg.WebhookMaxElapsed = time.Duration(getEnvAsInt("WEBHOOK_MAX_ELAPSED_SECONDS", 30)) * time.Second

	// Market data
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	// Assets
	cfg.Assets, err = parseAssets(getEnv("ASSETS", ""))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ASSETS: %v", err))
	}

	// Verification
	verifyMinutes := getEnvAsInt("VERIFY_INTERVAL_MINUTES", 5)
	if verifyMinutes <= 0 {
		errs = append(errs, "VERIFY_INTERVAL_MINUTES must be positive")
	}
	cfg.VerifyInterval = time.Duration(verifyMinutes) * time.Minute

	// Chart
	candleMinutes := getEnvAsInt("CANDLE_INTERVAL_MINUTES", 15)
	if candleMinutes <= 0 {
		errs = append(errs, "CANDLE_INTERVAL_MINUTES must be positive")
	}
	cfg.CandleInterval = time.Duration(candleMinutes) * time.Minute

	cfg.CandleHistoryLimit, err = getEnvAsIntRequired("CANDLE_HISTORY_LIMIT", 100)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CANDLE_HISTORY_LIMIT: %v", err))
	} else if cfg.CandleHistoryLimit <= 0 {
		errs = append(errs, "CANDLE_HISTORY_LIMIT must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/signal_dash.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// Symbol resolves a logical asset key to its exchange symbol.
func (c *Config) Symbol(asset string) (string, bool) {
	sym, ok := c.Assets[asset]
	return sym, ok
}

// parseAssets parses an "asset:SYMBOL,asset:SYMBOL" override string.
// An empty string keeps the default selector.
func parseAssets(raw string) (map[string]string, error) {
	if raw == "" {
		assets := make(map[string]string, len(defaultAssets))
		for k, v := range defaultAssets {
			assets[k] = v
		}
		return assets, nil
	}
	assets := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed asset pair %q (want name:SYMBOL)", pair)
		}
		assets[strings.ToLower(parts[0])] = strings.ToUpper(parts[1])
	}
	return assets, nil
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
		// For non-required fields, default is acceptable.
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
