// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Metrics  MetricsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // default: 3001
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 15s
	IdleTimeout  time.Duration // default: 60s
	// CORSAllowedOrigins lists origins allowed by CORS (default: *).
	CORSAllowedOrigins []string
}

// DatabaseConfig selects and locates the store backend.
type DatabaseConfig struct {
	Driver string
	// DataPath holds embedded databases and the generated auth key.
	DataPath string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// Secret signs tokens. When empty a key is generated into DataPath.
	Secret              string
	TokenFormat         string // jwt or paseto
	AccessTokenDuration time.Duration
	// Login and registration attempts allowed per client per minute.
	RateLimit int
	RateBurst int
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// BadgerPath is where the badger backend keeps its files.
func (c DatabaseConfig) BadgerPath() string {
	return filepath.Join(c.DataPath, "badger")
}

// SQLitePath is the sqlite database file.
func (c DatabaseConfig) SQLitePath() string {
	return filepath.Join(c.DataPath, "bughive.db")
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bughive", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	port := fs.String("port", "", "Server port (default: 3001)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma separated CORS origins (default: *)")

	// Database flags
	dbDriver := fs.String("db-driver", "", "Store backend: badger, sqlite or mongo (default: badger)")
	dataPath := fs.String("data-path", "", "Directory for embedded databases and keys")
	mongoURI := fs.String("mongodb-uri", "", "MongoDB connection string")
	mongoDatabase := fs.String("mongodb-database", "", "MongoDB database (default: from URI)")
	mongoTransactions := fs.String("mongodb-transactions", "", "Use MongoDB transactions (default: true)")

	// Auth flags
	tokenFormat := fs.String("token-format", "", "Access token format: jwt or paseto (default: jwt)")
	tokenDuration := fs.String("token-duration", "", "Access token lifetime (default: 1h)")
	rateLimit := fs.String("auth-rate-limit", "", "Login attempts per client per minute (default: 10)")
	rateBurst := fs.String("auth-rate-burst", "", "Login burst size (default: 5)")

	metricsEnabled := fs.String("metrics", "", "Expose /metrics (default: true)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists; variables already set win.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*port, "PORT", "3001"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Driver:            strings.ToLower(getConfigValue(*dbDriver, "DB_DRIVER", DriverBadger)),
			DataPath:          getConfigValue(*dataPath, "DATA_PATH", ""),
			MongoURI:          getConfigValue(*mongoURI, "MONGODB_URI", ""),
			MongoDatabase:     getConfigValue(*mongoDatabase, "MONGODB_DATABASE", ""),
			MongoTransactions: getBoolConfigValue(*mongoTransactions, "MONGODB_TRANSACTIONS", true),
		},
		Auth: AuthConfig{
			Secret:      getConfigValue("", "SECRET", ""),
			TokenFormat: strings.ToLower(getConfigValue(*tokenFormat, "AUTH_TOKEN_FORMAT", "jwt")),
			RateLimit:   getIntConfigValue(*rateLimit, "AUTH_RATE_LIMIT", 10),
			RateBurst:   getIntConfigValue(*rateBurst, "AUTH_RATE_BURST", 5),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolConfigValue(*metricsEnabled, "METRICS_ENABLED", true),
		},
	}

	var err error
	if cfg.Auth.AccessTokenDuration, err = getDurationConfigValue(*tokenDuration, "TOKEN_DURATION", "1h"); err != nil {
		return nil, fmt.Errorf("invalid token duration: %w", err)
	}
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Database.Driver {
	case DriverBadger, DriverSQLite:
		if c.Database.DataPath == "" {
			return errors.New("data path cannot be empty after expansion")
		}
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be badger, sqlite, or mongo)", c.Database.Driver)
	}

	if c.Auth.TokenFormat != "jwt" && c.Auth.TokenFormat != "paseto" {
		return fmt.Errorf("invalid token format: %s (must be jwt or paseto)", c.Auth.TokenFormat)
	}
	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("token duration must be positive")
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateBurst <= 0 {
		return errors.New("auth rate limit and burst must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath defaults the data path to ~/BugHive/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "BugHive", "data")

	expanded, err := expandPath(c.Database.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Database.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
