package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting BugHive Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"db_driver", cfg.Database.Driver,
		"data_path", cfg.Database.DataPath,
	)

	return log, nil
}

// slogFor returns the component logger for name.
func slogFor(i do.Injector, name string) *slog.Logger {
	return do.MustInvoke[*logger.Logger](i).Component(name)
}
