// Package store defines BugHive's persistence contract.
//
// A Store runs functions inside transactions. Every read and write made
// through one Tx commits or rolls back together, so a service can keep the
// User, Bug and Tag reference lists consistent across documents. Backends
// live in subpackages: badgerdb (default), sqlite and mongodb.
package store

import (
	"context"

	"github.com/bughive/bughive-server/internal/domain"
)

// Store is a transactional document store.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error
	// Update runs fn in a read-write transaction. fn may be invoked more
	// than once when the backend retries after a write conflict, so it must
	// not have side effects outside the transaction.
	Update(ctx context.Context, fn func(Tx) error) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Tx gives access to the collections inside one transaction.
type Tx interface {
	Users() Users
	Bugs() Bugs
	Tags() Tags
}

// Collection is the set of operations every document collection supports.
type Collection[T any] interface {
	// Get returns ErrNotFound when no document has the id.
	Get(ctx context.Context, id string) (*T, error)
	// Find returns the documents matching f ordered by id.
	Find(ctx context.Context, f Filter) ([]*T, error)
	// Insert returns ErrAlreadyExists on a duplicate id or unique key.
	Insert(ctx context.Context, doc *T) error
	// Replace overwrites an existing document; ErrNotFound if it is missing.
	Replace(ctx context.Context, doc *T) error
	// Delete removes a document. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

// Users stores accounts.
type Users interface {
	Collection[domain.User]
	// GetByEmail and GetByUsername match on the normalized value.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Bugs stores bugs.
type Bugs interface {
	Collection[domain.Bug]
}

// Tags stores tags.
type Tags interface {
	Collection[domain.Tag]
	// GetByTitle finds the owner's tag with the normalized title.
	GetByTitle(ctx context.Context, owner, title string) (*domain.Tag, error)
}
