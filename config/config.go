package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Security SecurityConfig `json:"security"`
	Notify   NotifyConfig   `json:"notify"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `json:"path"`
}

// SecurityConfig contains token signing settings
type SecurityConfig struct {
	QRSigningKey    string `json:"qr_signing_key"`
	LoginSigningKey string `json:"login_signing_key"`
	TokenIssuer     string `json:"token_issuer"`
	LoginTTLMinutes int    `json:"login_ttl_minutes"`
}

// NotifyConfig contains parent notification settings
type NotifyConfig struct {
	TelegramToken string `json:"telegram_token"`
	QueueBackend  string `json:"queue_backend"` // "memory" or "redis"
	RedisAddr     string `json:"redis_addr"`
	QueueKey      string `json:"queue_key"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Format string `json:"format"` // "json" or "text"
	Level  string `json:"level"`  // "debug", "info", "warn", "error"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}

	if c.Security.QRSigningKey == "" {
		return fmt.Errorf("%w: QR signing key is required", ErrInvalidConfig)
	}

	if c.Security.LoginSigningKey == "" {
		return fmt.Errorf("%w: login signing key is required", ErrInvalidConfig)
	}

	if c.Security.TokenIssuer == "" {
		c.Security.TokenIssuer = "outpass" // default
	}

	if c.Security.LoginTTLMinutes <= 0 {
		c.Security.LoginTTLMinutes = 8 * 60 // default: one shift
	}

	switch c.Notify.QueueBackend {
	case "", "memory":
		c.Notify.QueueBackend = "memory"
	case "redis":
		if c.Notify.RedisAddr == "" {
			return fmt.Errorf("%w: redis address is required for redis queue backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown queue backend %q", ErrInvalidConfig, c.Notify.QueueBackend)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables
// This is useful for containerized deployments
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("OUTPASS_HOST", "0.0.0.0"),
			Port: getEnvInt("OUTPASS_PORT", 8080),
		},
		Database: DatabaseConfig{
			Path: getEnv("OUTPASS_DB_PATH", "./outpass.db"),
		},
		Security: SecurityConfig{
			QRSigningKey:    getEnv("OUTPASS_QR_SIGNING_KEY", ""),
			LoginSigningKey: getEnv("OUTPASS_LOGIN_SIGNING_KEY", ""),
			TokenIssuer:     getEnv("OUTPASS_TOKEN_ISSUER", "outpass"),
			LoginTTLMinutes: getEnvInt("OUTPASS_LOGIN_TTL_MINUTES", 8*60),
		},
		Notify: NotifyConfig{
			TelegramToken: getEnv("OUTPASS_TELEGRAM_TOKEN", ""),
			QueueBackend:  getEnv("OUTPASS_QUEUE_BACKEND", "memory"),
			RedisAddr:     getEnv("OUTPASS_REDIS_ADDR", ""),
			QueueKey:      getEnv("OUTPASS_QUEUE_KEY", ""),
		},
		Logging: LoggingConfig{
			Format: getEnv("OUTPASS_LOG_FORMAT", "json"),
			Level:  getEnv("OUTPASS_LOG_LEVEL", "info"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}
