package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/store"
)

var userSchema = &schema[domain.User]{
	prefix: "user:",
	id:     func(u *domain.User) string { return u.ID },
	match:  func(f store.Filter, u *domain.User) bool { return f.MatchUser(u) },
	indexes: []index[domain.User]{
		{name: "username", unique: true, field: "username", keys: func(u *domain.User) []string {
			return []string{store.UsernameKey(u.Username)}
		}},
		{name: "email", unique: true, field: "email", keys: func(u *domain.User) []string {
			return []string{store.EmailKey(u.Email)}
		}},
	},
}

var bugSchema = &schema[domain.Bug]{
	prefix: "bug:",
	id:     func(b *domain.Bug) string { return b.ID },
	match:  func(f store.Filter, b *domain.Bug) bool { return f.MatchBug(b) },
	indexes: []index[domain.Bug]{
		{name: "owner", keys: func(b *domain.Bug) []string { return []string{b.User} }},
		{name: "tag", keys: func(b *domain.Bug) []string { return b.Tags }},
	},
	ownerIndex: "owner",
	refIndex:   "tag",
}

var tagSchema = &schema[domain.Tag]{
	prefix: "tag:",
	id:     func(t *domain.Tag) string { return t.ID },
	match:  func(f store.Filter, t *domain.Tag) bool { return f.MatchTag(t) },
	indexes: []index[domain.Tag]{
		{name: "owner", keys: func(t *domain.Tag) []string { return []string{t.User} }},
		{name: "bug", keys: func(t *domain.Tag) []string { return t.Bugs }},
		{name: "title", unique: true, field: "title", keys: func(t *domain.Tag) []string {
			return []string{store.TagTitleKey(t.User, t.Title)}
		}},
	},
	ownerIndex: "owner",
	refIndex:   "bug",
}

type users struct{ entity[domain.User] }

func (u *users) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return u.getByUnique(ctx, "email", store.EmailKey(email))
}

func (u *users) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return u.getByUnique(ctx, "username", store.UsernameKey(username))
}

type bugs struct{ entity[domain.Bug] }

type tags struct{ entity[domain.Tag] }

func (t *tags) GetByTitle(ctx context.Context, owner, title string) (*domain.Tag, error) {
	return t.getByUnique(ctx, "title", store.TagTitleKey(owner, title))
}

// getByUnique resolves a unique index value to its document.
func (e entity[T]) getByUnique(ctx context.Context, name, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := e.txn.Get([]byte(e.indexPrefix(name, value)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index key: %w", err)
	}

	var id string
	err = item.Value(func(val []byte) error {
		id = string(val)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, id)
}
