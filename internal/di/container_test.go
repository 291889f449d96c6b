package di

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/auth"
	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/di/providers"
	"github.com/bughive/bughive-server/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:    config.AppConfig{Environment: "test"},
		Logger: config.LoggerConfig{Level: "error"},
		Server: config.ServerConfig{
			Port:         "0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
		},
		Database: config.DatabaseConfig{
			Driver:   config.DriverSQLite,
			DataPath: t.TempDir(),
		},
		Auth: config.AuthConfig{
			TokenFormat:         auth.FormatPaseto,
			AccessTokenDuration: time.Hour,
			RateLimit:           10,
			RateBurst:           5,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func TestBootstrap_WiresEverything(t *testing.T) {
	injector := do.New()
	do.ProvideValue(injector, testConfig(t))
	RegisterWithoutConfig(injector)

	require.NoError(t, Bootstrap(injector))

	issuer := do.MustInvoke[auth.TokenIssuer](injector)
	token, err := issuer.Issue("user-1", "user1@gmail.com")
	require.NoError(t, err)
	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	metricsHandle := do.MustInvoke[*providers.MetricsHandle](injector)
	assert.NotNil(t, metricsHandle.Handler)

	assert.NotNil(t, do.MustInvoke[*service.BugService](injector))

	assert.NoError(t, Shutdown(injector))
}

func TestProvideTokenKey_GeneratesOnce(t *testing.T) {
	cfg := testConfig(t)

	first := do.New()
	do.ProvideValue(first, cfg)
	RegisterWithoutConfig(first)
	key1, err := do.Invoke[providers.TokenKey](first)
	require.NoError(t, err)

	second := do.New()
	do.ProvideValue(second, cfg)
	RegisterWithoutConfig(second)
	key2, err := do.Invoke[providers.TokenKey](second)
	require.NoError(t, err)

	assert.Len(t, key1, 32)
	assert.Equal(t, key1, key2, "key persisted in the data directory")
}

func TestProvideTokenKey_FromSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Secret = "shhh"
	cfg.Auth.TokenFormat = auth.FormatJWT

	injector := do.New()
	do.ProvideValue(injector, cfg)
	RegisterWithoutConfig(injector)

	key, err := do.Invoke[providers.TokenKey](injector)
	require.NoError(t, err)
	assert.Equal(t, providers.TokenKey("shhh"), key)
}

type failingCloser struct{}

func (failingCloser) Shutdown() error { return errors.New("flush failed") }

func TestShutdown_SucceedsOnCleanContainer(t *testing.T) {
	injector := do.New()
	do.ProvideValue(injector, testConfig(t))
	RegisterWithoutConfig(injector)
	require.NoError(t, Bootstrap(injector))

	assert.NoError(t, Shutdown(injector))
}

func TestShutdown_ReportsFailingService(t *testing.T) {
	injector := do.New()
	do.ProvideValue(injector, failingCloser{})
	_, err := do.Invoke[failingCloser](injector)
	require.NoError(t, err)

	err = Shutdown(injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
}
