// Package badgerdb implements store.Store on an embedded Badger database.
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/store"
)

// maxRetries bounds how often Update re-runs a transaction that lost a
// write conflict.
const maxRetries = 10

// DB wraps a Badger database instance.
type DB struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ store.Store = (*DB)(nil)

// Options configures Open.
type Options struct {
	// InMemory keeps all data in memory; Path is ignored.
	InMemory bool
}

// Open opens or creates the database at path.
func Open(path string, logger *slog.Logger, o Options) (*DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Badger's internal logging is noisy
	opts.SyncWrites = true       // survive crashes
	opts.CompactL0OnClose = true // faster startup
	if o.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Badger database opened successfully", "path", path, "in_memory", o.InMemory)

	return &DB{db: db, logger: logger}, nil
}

// Close gracefully closes the database connection.
func (d *DB) Close() error {
	d.logger.Info("Closing database connection")
	return d.db.Close()
}

// Ping reports whether the database is open.
func (d *DB) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.db.IsClosed() {
		return store.ErrClosed
	}
	return d.db.View(func(*badger.Txn) error { return nil })
}

// View implements store.Store.
func (d *DB) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(func(txn *badger.Txn) error {
		return fn(newTx(txn))
	})
}

// Update implements store.Store. Transactions that fail with
// badger.ErrConflict are retried with a short backoff.
func (d *DB) Update(ctx context.Context, fn func(store.Tx) error) error {
	var err error
	for attempt := range maxRetries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = d.db.Update(func(txn *badger.Txn) error {
			return fn(newTx(txn))
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}

		d.logger.Debug("transaction conflict, retrying", "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 2 * time.Millisecond):
		}
	}
	return store.ErrConflict.WithCause(err)
}

type tx struct {
	users *users
	bugs  *bugs
	tags  *tags
}

func newTx(txn *badger.Txn) *tx {
	return &tx{
		users: &users{entity[domain.User]{txn: txn, schema: userSchema}},
		bugs:  &bugs{entity[domain.Bug]{txn: txn, schema: bugSchema}},
		tags:  &tags{entity[domain.Tag]{txn: txn, schema: tagSchema}},
	}
}

func (t *tx) Users() store.Users { return t.users }
func (t *tx) Bugs() store.Bugs   { return t.bugs }
func (t *tx) Tags() store.Tags   { return t.tags }
