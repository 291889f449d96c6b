package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Database: DatabaseConfig{
			Driver:   DriverBadger,
			DataPath: "/some/path",
		},
		Auth: AuthConfig{
			TokenFormat:         "jwt",
			AccessTokenDuration: time.Hour,
			RateLimit:           10,
			RateBurst:           5,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Drivers(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = DriverSQLite
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = DriverMongo
	assert.Error(t, cfg.Validate(), "mongo needs a URI")

	cfg.Database.MongoURI = "mongodb://localhost:27017"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestValidate_Auth(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.TokenFormat = "paseto"
	assert.NoError(t, cfg.Validate())

	cfg.Auth.TokenFormat = "saml"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Auth.AccessTokenDuration = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Auth.RateBurst = 0
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("~/bughive", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "bughive"), got)

	got, err = expandPath("/var/lib/bughive/../bughive", "")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/bughive", got)

	got, err = expandPath("relative/path", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_CONFIG_VALUE", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "TEST_CONFIG_VALUE", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "TEST_CONFIG_VALUE", "default"))
	assert.Equal(t, "default", getConfigValue("", "TEST_CONFIG_UNSET", "default"))
}

func TestGetBoolAndIntConfigValue(t *testing.T) {
	t.Setenv("TEST_BOOL", "YES")
	t.Setenv("TEST_INT", "notanumber")

	assert.True(t, getBoolConfigValue("", "TEST_BOOL", false))
	assert.False(t, getBoolConfigValue("0", "TEST_BOOL", true))
	assert.True(t, getBoolConfigValue("", "TEST_BOOL_UNSET", true))

	assert.Equal(t, 7, getIntConfigValue("", "TEST_INT", 7))
	assert.Equal(t, 3, getIntConfigValue("3", "TEST_INT", 7))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}

func TestLoad_FlagsEnvAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"# comment\nDB_DRIVER=sqlite\nLOG_LEVEL=debug\nBUGHIVE_TEST_ENVFILE_ONLY=1\n"), 0o600))

	t.Setenv("LOG_LEVEL", "warn") // env beats .env
	t.Setenv("DB_DRIVER", "")     // unset-equivalent so .env applies
	os.Unsetenv("DB_DRIVER")
	t.Cleanup(func() { os.Unsetenv("BUGHIVE_TEST_ENVFILE_ONLY") })

	cfg, err := Load([]string{
		"-env-file", envFile,
		"-data-path", dir,
		"-port", "4000",
		"-token-duration", "30m",
	})
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, dir, cfg.Database.DataPath)
	assert.Equal(t, filepath.Join(dir, "bughive.db"), cfg.Database.SQLitePath())
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "1", os.Getenv("BUGHIVE_TEST_ENVFILE_ONLY"))
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load([]string{"-env-file", "/nonexistent", "-data-path", t.TempDir(), "-read-timeout", "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read timeout")
}
