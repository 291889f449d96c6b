// Package di provides dependency injection configuration for the BugHive server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bughive/bughive-server/internal/auth"
	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/di/providers"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/service"
	"github.com/bughive/bughive-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	Register(injector)
	return injector
}

// Register adds every provider to injector. The configuration provider is
// registered separately so that tests and tools can supply their own.
func Register(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	RegisterWithoutConfig(injector)
}

// RegisterWithoutConfig adds every provider except the configuration.
func RegisterWithoutConfig(injector do.Injector) {
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenKey)
	do.Provide(injector, providers.ProvideTokenIssuer)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideBugService)
	do.Provide(injector, providers.ProvideTagService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of every provider so that
// misconfiguration fails at startup rather than on the first request.
func Bootstrap(injector do.Injector) error {
	steps := []func() error{
		invoke[*config.Config](injector),
		invoke[*logger.Logger](injector),
		invoke[*providers.MetricsHandle](injector),
		invoke[*providers.StoreHandle](injector),
		invoke[providers.TokenKey](injector),
		invoke[auth.TokenIssuer](injector),
		invoke[*validation.Validator](injector),
		invoke[*service.AuthService](injector),
		invoke[*service.UserService](injector),
		invoke[*service.BugService](injector),
		invoke[*service.TagService](injector),
		invoke[*providers.HTTPServerHandle](injector),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func invoke[T any](injector do.Injector) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}

// Shutdown stops every service in the container. The report returned by
// do is never nil, so only a failed shutdown is turned into an error.
func Shutdown(injector do.Injector) error {
	if report := injector.Shutdown(); report != nil && !report.Succeed {
		return report
	}
	return nil
}
