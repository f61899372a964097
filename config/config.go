// Package config loads configuration from config.json with environment
// variable overrides. Environment always wins over the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fusion-trading-bot/internal/api"
	"fusion-trading-bot/internal/binance"
	"fusion-trading-bot/internal/cache"
	"fusion-trading-bot/internal/database"
	"fusion-trading-bot/internal/strategy"
)

type Config struct {
	Binance  BinanceConfig  `json:"binance"`
	Engine   EngineConfig   `json:"engine"`
	Database DatabaseConfig `json:"database"`
	Redis    cache.Config   `json:"redis"`
	Server   api.Config     `json:"server"`
	Auth     AuthConfig     `json:"auth"`
	Logging  LoggingConfig  `json:"logging"`
}

// BinanceConfig holds market data endpoints. No API credentials: the engine
// only reads public futures market data.
type BinanceConfig struct {
	BaseURL      string `json:"base_url"`
	WSBaseURL    string `json:"ws_base_url"`
	StreamKlines bool   `json:"stream_klines"`
}

// EngineConfig drives the evaluation loop and the risk budget
type EngineConfig struct {
	MaxLossAmount       float64  `json:"max_loss_amount"`
	Symbols             []string `json:"symbols"`
	EvalIntervalMinutes int      `json:"eval_interval_minutes"`

	// Fusion overrides every scoring constant when present; omit to run
	// with the tuned defaults.
	Fusion *strategy.FusionConfig `json:"fusion,omitempty"`
}

// DatabaseConfig wraps the PostgreSQL settings with an enable switch
type DatabaseConfig struct {
	Enabled bool `json:"enabled"`
	database.Config
}

type AuthConfig struct {
	Enabled   bool          `json:"enabled"`
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // console writer instead of JSON
}

// Load reads config.json (when present) and applies environment overrides
func Load() (*Config, error) {
	return LoadFrom("config.json")
}

// LoadFrom reads the given config file and applies environment overrides.
// A missing file is not an error; the environment and defaults carry it.
func LoadFrom(filename string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(filename); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Binance endpoints
	cfg.Binance.BaseURL = getEnvOrDefault("BINANCE_BASE_URL", cfg.Binance.BaseURL)
	cfg.Binance.WSBaseURL = getEnvOrDefault("BINANCE_WS_BASE_URL", cfg.Binance.WSBaseURL)
	if v := os.Getenv("BINANCE_STREAM_KLINES"); v != "" {
		cfg.Binance.StreamKlines = v == "true"
	}

	// Engine
	if v := os.Getenv("ENGINE_MAX_LOSS_AMOUNT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.MaxLossAmount = f
		}
	}
	if v := os.Getenv("ENGINE_SYMBOLS"); v != "" {
		cfg.Engine.Symbols = splitSymbols(v)
	}
	cfg.Engine.EvalIntervalMinutes = getEnvIntOrDefault("ENGINE_EVAL_INTERVAL_MINUTES", cfg.Engine.EvalIntervalMinutes)

	// Database
	if v := os.Getenv("DATABASE_ENABLED"); v != "" {
		cfg.Database.Enabled = v == "true"
	}
	cfg.Database.Host = getEnvOrDefault("DATABASE_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvIntOrDefault("DATABASE_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvOrDefault("DATABASE_USER", cfg.Database.User)
	cfg.Database.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnvOrDefault("DATABASE_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnvOrDefault("DATABASE_SSL_MODE", cfg.Database.SSLMode)

	// Redis
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = v == "true"
	}
	cfg.Redis.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.Redis.Address)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvIntOrDefault("REDIS_DB", cfg.Redis.DB)

	// Server
	cfg.Server.Port = getEnvIntOrDefault("WEB_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnvOrDefault("WEB_HOST", cfg.Server.Host)
	if v := os.Getenv("SERVER_PRODUCTION"); v != "" {
		cfg.Server.ProductionMode = v == "true"
	}
	if v := os.Getenv("SERVER_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitSymbols(v)
	}

	// Auth always reads the secret from the environment when set
	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = v == "true"
	}
	cfg.Auth.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)
	if v := os.Getenv("AUTH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}

	// Logging
	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		cfg.Logging.Pretty = v == "true"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = binance.DefaultFuturesBaseURL
	}
	if cfg.Binance.WSBaseURL == "" {
		cfg.Binance.WSBaseURL = binance.DefaultFuturesWSBaseURL
	}
	if cfg.Engine.MaxLossAmount <= 0 {
		cfg.Engine.MaxLossAmount = strategy.DefaultMaxLossAmount
	}
	if len(cfg.Engine.Symbols) == 0 {
		cfg.Engine.Symbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT"}
	}
	if cfg.Engine.EvalIntervalMinutes <= 0 {
		cfg.Engine.EvalIntervalMinutes = 5
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks for configuration that cannot work at runtime
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth is enabled but AUTH_JWT_SECRET is empty")
	}
	if c.Database.Enabled && c.Database.User == "" {
		return fmt.Errorf("database is enabled but no user is configured")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitSymbols(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
