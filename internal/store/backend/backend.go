// Package backend opens the store.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bughive/bughive-server/internal/config"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/store/badgerdb"
	"github.com/bughive/bughive-server/internal/store/mongodb"
	"github.com/bughive/bughive-server/internal/store/sqlite"
)

// Open opens the backend named by cfg.Driver. Embedded backends create
// cfg.DataPath when it does not exist.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("driver", cfg.Driver)

	switch cfg.Driver {
	case config.DriverBadger, "":
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		db, err := badgerdb.Open(cfg.BadgerPath(), logger, badgerdb.Options{})
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		db, err := sqlite.Open(cfg.SQLitePath(), logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverMongo:
		db, err := mongodb.Open(ctx, mongodb.Config{
			URI:          cfg.MongoURI,
			Database:     cfg.MongoDatabase,
			Transactions: cfg.MongoTransactions,
		}, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
