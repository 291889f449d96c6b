package badgerdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/bughive/bughive-server/internal/store"
)

// index is a secondary index on an entity. Unique indexes map one value to
// one id; the others store one key per (value, id) pair so that a prefix
// scan yields every id in order.
type index[T any] struct {
	name   string
	unique bool
	field  string // reported in unique violations
	keys   func(*T) []string
}

// schema describes how one document type is laid out in the keyspace.
type schema[T any] struct {
	prefix  string
	id      func(*T) string
	match   func(store.Filter, *T) bool
	indexes []index[T]

	// Names of the indexes answering Filter.Owner and Filter.Ref, if any.
	ownerIndex string
	refIndex   string
}

// entity binds a schema to one transaction.
type entity[T any] struct {
	txn    *badger.Txn
	schema *schema[T]
}

func (e entity[T]) docKey(id string) []byte {
	return []byte(e.schema.prefix + id)
}

func (e entity[T]) indexPrefix(name, value string) string {
	return e.schema.prefix + "idx:" + name + ":" + value
}

func (e entity[T]) indexKey(idx index[T], value, id string) []byte {
	if idx.unique {
		return []byte(e.indexPrefix(idx.name, value))
	}
	return []byte(e.indexPrefix(idx.name, value) + ":" + id)
}

// Get retrieves an entity by ID.
func (e entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := e.txn.Get(e.docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var doc T
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &doc, nil
}

// Find returns the documents matching f ordered by id. Owner and Ref
// filters are answered from their indexes when the schema has one.
func (e entity[T]) Find(ctx context.Context, f store.Filter) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Empty() {
		return []*T{}, nil
	}

	var (
		ids []string
		err error
	)
	switch {
	case f.IDs != nil:
		ids = slices.Clone(f.IDs)
		slices.Sort(ids)
		ids = slices.Compact(ids)
	case f.Owner != "" && e.schema.ownerIndex != "":
		ids, err = e.scanIndex(e.schema.ownerIndex, f.Owner)
	case f.Ref != "" && e.schema.refIndex != "":
		ids, err = e.scanIndex(e.schema.refIndex, f.Ref)
	default:
		return e.scanAll(ctx, f)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		doc, err := e.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if e.schema.match(f, doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (e entity[T]) scanIndex(name, value string) ([]string, error) {
	prefix := []byte(e.indexPrefix(name, value) + ":")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := e.txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	return ids, nil
}

func (e entity[T]) scanAll(ctx context.Context, f store.Filter) ([]*T, error) {
	prefix := []byte(e.schema.prefix)
	idxPrefix := []byte(e.schema.prefix + "idx:")

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = true

	it := e.txn.NewIterator(opts)
	defer it.Close()

	out := []*T{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Skip index keys
		if bytes.HasPrefix(it.Item().Key(), idxPrefix) {
			continue
		}

		var doc T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		if e.schema.match(f, &doc) {
			out = append(out, &doc)
		}
	}
	return out, nil
}

// Insert stores a new entity. Returns ErrAlreadyExists if the id or a
// unique index value is taken.
func (e entity[T]) Insert(ctx context.Context, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := e.schema.id(doc)
	if id == "" {
		return store.ErrInvalidInput.WithMessage("missing id")
	}

	_, err := e.txn.Get(e.docKey(id))
	if err == nil {
		return store.UniqueViolation("id")
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to check existing key: %w", err)
	}

	return e.write(id, doc)
}

// Replace overwrites an existing entity, moving its index entries.
func (e entity[T]) Replace(ctx context.Context, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := e.schema.id(doc)
	old, err := e.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := e.deleteIndexes(id, old); err != nil {
		return err
	}
	return e.write(id, doc)
}

// Delete removes an entity and its index entries. Missing ids are ignored.
func (e entity[T]) Delete(ctx context.Context, id string) error {
	old, err := e.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := e.deleteIndexes(id, old); err != nil {
		return err
	}
	if err := e.txn.Delete(e.docKey(id)); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// write checks unique indexes, then sets the document and its index keys.
// The previous version's index keys must already be deleted.
func (e entity[T]) write(id string, doc *T) error {
	for _, idx := range e.schema.indexes {
		if !idx.unique {
			continue
		}
		for _, value := range idx.keys(doc) {
			item, err := e.txn.Get(e.indexKey(idx, value, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to check index key: %w", err)
			}
			var owner string
			_ = item.Value(func(val []byte) error {
				owner = string(val)
				return nil
			})
			if owner != id {
				return store.UniqueViolation(idx.field)
			}
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	if err := e.txn.Set(e.docKey(id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	for _, idx := range e.schema.indexes {
		for _, value := range idx.keys(doc) {
			if err := e.txn.Set(e.indexKey(idx, value, id), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e entity[T]) deleteIndexes(id string, old *T) error {
	for _, idx := range e.schema.indexes {
		for _, value := range idx.keys(old) {
			if err := e.txn.Delete(e.indexKey(idx, value, id)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}
