// Package config loads application configuration from the environment,
// the way every other collaborator in this repo expects: flat env vars
// with sane defaults, validated once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Backtest  BacktestDefaults
	Logging   LoggingConfig
}

// ServerConfig controls the job-control HTTP surface.
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig is the Postgres connection used by the snapshot playback
// source.
type DatabaseConfig struct {
	Driver  string
	Host    string
	Port    int
	Name    string
	User    string
	// Password is the plaintext password, loaded from DB_PASSWORD. When
	// that is empty, cmd/server stores the decrypted
	// DB_PASSWORD_ENCRYPTED value here; when both are set, DB_PASSWORD
	// wins.
	Password string
	SSLMode  string
}

// SecurityConfig holds the key used to decrypt an at-rest encrypted
// database password.
type SecurityConfig struct {
	EncryptionKey string
}

// BacktestDefaults seeds a backtest.Config when an HTTP request to
// POST /backtests omits a field.
type BacktestDefaults struct {
	SizeInCoins             string // decimal string, parsed by the caller
	EntrySpreadThresholdBps string
	ExitSpreadThresholdBps  string
	MaxSlippageBps          string
	MaxPositionHoldTime     time.Duration
	MaxConcurrentPositions  int
	SnapshotBatchSize       int
}

// LoggingConfig selects the zap encoder and minimum level.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads Config from the environment. It is the only place defaults
// live; every other package receives a fully-populated Config.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "crossspread"),
			User:     getEnv("DB_USER", "crossspread"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Backtest: BacktestDefaults{
			SizeInCoins:             getEnv("BACKTEST_SIZE_IN_COINS", "1"),
			EntrySpreadThresholdBps: getEnv("BACKTEST_ENTRY_SPREAD_BPS", "10"),
			ExitSpreadThresholdBps:  getEnv("BACKTEST_EXIT_SPREAD_BPS", "2"),
			MaxSlippageBps:          getEnv("BACKTEST_MAX_SLIPPAGE_BPS", "15"),
			MaxPositionHoldTime:     getEnvAsDuration("BACKTEST_MAX_HOLD_TIME", 4*time.Hour),
			MaxConcurrentPositions:  getEnvAsInt("BACKTEST_MAX_CONCURRENT_POSITIONS", 1),
			SnapshotBatchSize:       getEnvAsInt("BACKTEST_SNAPSHOT_BATCH_SIZE", 5000),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	encrypted := getEnv("DB_PASSWORD_ENCRYPTED", "")
	if encrypted != "" {
		if cfg.Security.EncryptionKey == "" {
			return nil, fmt.Errorf("ENCRYPTION_KEY is required to decrypt DB_PASSWORD_ENCRYPTED")
		}
		if len(cfg.Security.EncryptionKey) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
