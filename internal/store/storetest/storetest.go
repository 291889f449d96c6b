// Package storetest is a conformance suite run against every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/store"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run runs the suite. Each subtest gets a fresh store.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"UserRoundTrip", testUserRoundTrip},
		{"UserUniqueKeys", testUserUniqueKeys},
		{"UserReplaceMovesKeys", testUserReplaceMovesKeys},
		{"GetMissing", testGetMissing},
		{"DeleteIsIdempotent", testDeleteIsIdempotent},
		{"ReplaceMissing", testReplaceMissing},
		{"FindByOwner", testFindByOwner},
		{"FindByRef", testFindByRef},
		{"FindByIDs", testFindByIDs},
		{"TagTitleUniquePerOwner", testTagTitleUniquePerOwner},
		{"UpdateRollsBack", testUpdateRollsBack},
		{"ConcurrentAppend", testConcurrentAppend},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func update(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return fn(ctx, tx) }))
}

func view(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx store.Tx) error { return fn(ctx, tx) }))
}

func newUser(name string) *domain.User {
	return &domain.User{
		ID:           id.New(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "$argon2id$hash",
		Bugs:         []string{},
		Tags:         []string{},
	}
}

func newBug(owner string, tags ...string) *domain.Bug {
	if tags == nil {
		tags = []string{}
	}
	return &domain.Bug{
		ID:           id.New(),
		Title:        "Segfault",
		LastModified: time.Now().UTC().Truncate(time.Millisecond),
		References:   []string{"www.google.com"},
		Tags:         tags,
		User:         owner,
	}
}

func newTag(owner, title string, bugs ...string) *domain.Tag {
	if bugs == nil {
		bugs = []string{}
	}
	return &domain.Tag{ID: id.New(), Title: title, Bugs: bugs, User: owner}
}

func ids[T domain.Owned](docs []*T) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, (*d).DocID())
	}
	return out
}

func testUserRoundTrip(t *testing.T, s store.Store) {
	u := newUser("test1")
	u.Name = "Test One"
	u.DarkMode = true

	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Insert(ctx, u)
	})

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.Users().Get(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Username, got.Username)
		assert.Equal(t, u.Name, got.Name)
		assert.Equal(t, u.PasswordHash, got.PasswordHash)
		assert.True(t, got.DarkMode)

		byEmail, err := tx.Users().GetByEmail(ctx, "TEST1@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		byName, err := tx.Users().GetByUsername(ctx, "Test1")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byName.ID)
		return nil
	})
}

func testUserUniqueKeys(t *testing.T, s store.Store) {
	first := newUser("test1")
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Insert(ctx, first)
	})

	sameName := newUser("TEST1")
	sameName.Email = "other@example.com"
	err := s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Users().Insert(context.Background(), sameName)
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "username must be unique")

	sameEmail := newUser("other")
	sameEmail.Email = "Test1@example.com"
	err = s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Users().Insert(context.Background(), sameEmail)
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "email must be unique")
}

func testUserReplaceMovesKeys(t *testing.T, s store.Store) {
	u := newUser("test1")
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Insert(ctx, u)
	})

	u.Email = "renamed@example.com"
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Replace(ctx, u)
	})

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Users().GetByEmail(ctx, "test1@example.com")
		assert.ErrorIs(t, err, store.ErrNotFound)

		got, err := tx.Users().GetByEmail(ctx, "renamed@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		return nil
	})

	// The released email is free again.
	other := newUser("test2")
	other.Email = "test1@example.com"
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Insert(ctx, other)
	})
}

func testGetMissing(t *testing.T, s store.Store) {
	view(t, s, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Users().Get(ctx, id.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.Bugs().Get(ctx, id.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.Tags().Get(ctx, id.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.Users().GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.Tags().GetByTitle(ctx, id.New(), "Hardware")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
}

func testDeleteIsIdempotent(t *testing.T, s store.Store) {
	owner := id.New()
	bug := newBug(owner)
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Bugs().Insert(ctx, bug)
	})

	for range 2 {
		update(t, s, func(ctx context.Context, tx store.Tx) error {
			return tx.Bugs().Delete(ctx, bug.ID)
		})
	}

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Bugs().Get(ctx, bug.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		found, err := tx.Bugs().Find(ctx, store.ByOwner(owner))
		require.NoError(t, err)
		assert.Empty(t, found)
		return nil
	})
}

func testReplaceMissing(t *testing.T, s store.Store) {
	err := s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Tags().Replace(context.Background(), newTag(id.New(), "Hardware"))
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testFindByOwner(t *testing.T, s store.Store) {
	alice, bob := id.New(), id.New()
	a1, a2, b1 := newBug(alice), newBug(alice), newBug(bob)

	update(t, s, func(ctx context.Context, tx store.Tx) error {
		for _, b := range []*domain.Bug{a1, b1, a2} {
			if err := tx.Bugs().Insert(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		found, err := tx.Bugs().Find(ctx, store.ByOwner(alice))
		require.NoError(t, err)
		assert.Equal(t, []string{a1.ID, a2.ID}, ids(found))

		all, err := tx.Bugs().Find(ctx, store.Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{a1.ID, a2.ID, b1.ID}, ids(all))
		return nil
	})
}

func testFindByRef(t *testing.T, s store.Store) {
	owner := id.New()
	tag := newTag(owner, "Hardware")
	bug := newBug(owner, tag.ID)
	other := newBug(owner)
	tag.Bugs = []string{bug.ID}

	update(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Tags().Insert(ctx, tag); err != nil {
			return err
		}
		if err := tx.Bugs().Insert(ctx, bug); err != nil {
			return err
		}
		return tx.Bugs().Insert(ctx, other)
	})

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		bugs, err := tx.Bugs().Find(ctx, store.ByRef(tag.ID))
		require.NoError(t, err)
		assert.Equal(t, []string{bug.ID}, ids(bugs))

		tags, err := tx.Tags().Find(ctx, store.ByRef(bug.ID))
		require.NoError(t, err)
		assert.Equal(t, []string{tag.ID}, ids(tags))
		return nil
	})

	// Dropping the reference updates the lookup.
	bug.Tags = []string{}
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Bugs().Replace(ctx, bug)
	})

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		bugs, err := tx.Bugs().Find(ctx, store.ByRef(tag.ID))
		require.NoError(t, err)
		assert.Empty(t, bugs)
		return nil
	})
}

func testFindByIDs(t *testing.T, s store.Store) {
	owner := id.New()
	t1, t2, t3 := newTag(owner, "Alpha tag"), newTag(owner, "Beta tag"), newTag(id.New(), "Gamma tag")

	update(t, s, func(ctx context.Context, tx store.Tx) error {
		for _, tag := range []*domain.Tag{t1, t2, t3} {
			if err := tx.Tags().Insert(ctx, tag); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		found, err := tx.Tags().Find(ctx, store.ByIDs([]string{t3.ID, t1.ID, id.New()}))
		require.NoError(t, err)
		assert.Equal(t, []string{t1.ID, t3.ID}, ids(found))

		mine, err := tx.Tags().Find(ctx, store.Filter{Owner: owner, IDs: []string{t1.ID, t3.ID}})
		require.NoError(t, err)
		assert.Equal(t, []string{t1.ID}, ids(mine))

		none, err := tx.Tags().Find(ctx, store.ByIDs(nil))
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	})
}

func testTagTitleUniquePerOwner(t *testing.T, s store.Store) {
	alice, bob := id.New(), id.New()
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Tags().Insert(ctx, newTag(alice, "Hardware")); err != nil {
			return err
		}
		return tx.Tags().Insert(ctx, newTag(bob, "Hardware"))
	})

	err := s.Update(context.Background(), func(tx store.Tx) error {
		return tx.Tags().Insert(context.Background(), newTag(alice, "HARDWARE"))
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "title must be unique")

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.Tags().GetByTitle(ctx, bob, "hardware")
		require.NoError(t, err)
		assert.Equal(t, bob, got.User)
		return nil
	})
}

func testUpdateRollsBack(t *testing.T, s store.Store) {
	owner := newUser("test1")
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Insert(ctx, owner)
	})

	boom := errors.New("boom")
	bug := newBug(owner.ID)
	err := s.Update(context.Background(), func(tx store.Tx) error {
		ctx := context.Background()
		if err := tx.Bugs().Insert(ctx, bug); err != nil {
			return err
		}
		owner.Bugs = append(owner.Bugs, bug.ID)
		if err := tx.Users().Replace(ctx, owner); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Bugs().Get(ctx, bug.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		got, err := tx.Users().Get(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Bugs)
		return nil
	})
}

// testConcurrentAppend attaches different bugs to one tag from many
// goroutines. Every read-modify-write must survive.
func testConcurrentAppend(t *testing.T, s store.Store) {
	owner := id.New()
	tag := newTag(owner, "Hardware")
	update(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Tags().Insert(ctx, tag)
	})

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bugID := fmt.Sprintf("%024x", i+1)
			errs <- s.Update(context.Background(), func(tx store.Tx) error {
				ctx := context.Background()
				current, err := tx.Tags().Get(ctx, tag.ID)
				if err != nil {
					return err
				}
				current.Bugs = append(current.Bugs, bugID)
				return tx.Tags().Replace(ctx, current)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view(t, s, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.Tags().Get(ctx, tag.ID)
		require.NoError(t, err)
		assert.Len(t, got.Bugs, writers)
		return nil
	})
}

func testPing(t *testing.T, s store.Store) {
	assert.NoError(t, s.Ping(context.Background()))
}
