package badgerdb

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/store/storetest"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(t.TempDir(), logger, Options{})
	require.NoError(t, err)
	return db
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return setupTestDB(t)
	})
}

func TestConformance_InMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		db, err := Open("", nil, Options{InMemory: true})
		require.NoError(t, err)
		return db
	})
}

func TestIndexKeysFollowDocument(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := id.New()
	bug := &domain.Bug{ID: id.New(), Title: "Segfault", Tags: []string{"t1"}, User: owner}

	require.NoError(t, db.Update(ctx, func(tx store.Tx) error {
		return tx.Bugs().Insert(ctx, bug)
	}))

	tagKey := []byte("bug:idx:tag:t1:" + bug.ID)
	ownerKey := []byte("bug:idx:owner:" + owner + ":" + bug.ID)
	assert.True(t, keyExists(t, db, tagKey))
	assert.True(t, keyExists(t, db, ownerKey))

	require.NoError(t, db.Update(ctx, func(tx store.Tx) error {
		return tx.Bugs().Delete(ctx, bug.ID)
	}))

	assert.False(t, keyExists(t, db, tagKey))
	assert.False(t, keyExists(t, db, ownerKey))
}

func TestPing_Closed(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Close())

	assert.ErrorIs(t, db.Ping(context.Background()), store.ErrClosed)
}

func keyExists(t *testing.T, db *DB, key []byte) bool {
	t.Helper()
	found := false
	err := db.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		found = err == nil
		return nil
	})
	require.NoError(t, err)
	return found
}
