package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "/path/to/db",
		},
		Security: SecurityConfig{
			QRSigningKey:    "qr-key",
			LoginSigningKey: "login-key",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"invalid port - too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"missing QR signing key", func(c *Config) { c.Security.QRSigningKey = "" }, true},
		{"missing login signing key", func(c *Config) { c.Security.LoginSigningKey = "" }, true},
		{"redis backend without address", func(c *Config) { c.Notify.QueueBackend = "redis" }, true},
		{"redis backend with address", func(c *Config) {
			c.Notify.QueueBackend = "redis"
			c.Notify.RedisAddr = "localhost:6379"
		}, false},
		{"unknown queue backend", func(c *Config) { c.Notify.QueueBackend = "kafka" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Validate_Defaults(t *testing.T) {
	config := validConfig()
	require.NoError(t, config.Validate())

	assert.Equal(t, "outpass", config.Security.TokenIssuer)
	assert.Equal(t, 8*60, config.Security.LoginTTLMinutes)
	assert.Equal(t, "memory", config.Notify.QueueBackend)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	content := `{
		"server": {"host": "127.0.0.1", "port": 9090},
		"database": {"path": "/tmp/outpass.db"},
		"security": {
			"qr_signing_key": "qr-key",
			"login_signing_key": "login-key",
			"token_issuer": "hostel-a",
			"login_ttl_minutes": 120
		},
		"logging": {"format": "text", "level": "debug"}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "/tmp/outpass.db", config.Database.Path)
	assert.Equal(t, "hostel-a", config.Security.TokenIssuer)
	assert.Equal(t, 120, config.Security.LoginTTLMinutes)
	assert.Equal(t, "text", config.Logging.Format)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0o600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OUTPASS_HOST", "10.0.0.1")
	t.Setenv("OUTPASS_PORT", "8888")
	t.Setenv("OUTPASS_DB_PATH", "/data/outpass.db")
	t.Setenv("OUTPASS_QR_SIGNING_KEY", "qr-key")
	t.Setenv("OUTPASS_LOGIN_SIGNING_KEY", "login-key")
	t.Setenv("OUTPASS_QUEUE_BACKEND", "redis")
	t.Setenv("OUTPASS_REDIS_ADDR", "localhost:6379")

	config, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", config.Server.Host)
	assert.Equal(t, 8888, config.Server.Port)
	assert.Equal(t, "/data/outpass.db", config.Database.Path)
	assert.Equal(t, "redis", config.Notify.QueueBackend)
	assert.Equal(t, "localhost:6379", config.Notify.RedisAddr)
}

func TestLoadFromEnv_MissingKeys(t *testing.T) {
	t.Setenv("OUTPASS_QR_SIGNING_KEY", "")
	t.Setenv("OUTPASS_LOGIN_SIGNING_KEY", "")

	_, err := LoadFromEnv()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
