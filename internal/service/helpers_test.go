package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/auth"
	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/integrity"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/store/badgerdb"
	"github.com/bughive/bughive-server/internal/validation"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store  store.Store
	tokens auth.TokenIssuer
	auth   *AuthService
	users  *UserService
	bugs   *BugService
	tags   *TagService
}

// setupServices wires every service over an in-memory store.
func setupServices(t *testing.T) *testEnv {
	t.Helper()

	db, err := badgerdb.Open("", logger.Discard(), badgerdb.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewJWTIssuer([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	v := validation.New()
	env := &testEnv{
		store:  db,
		tokens: tokens,
		auth:   NewAuthService(db, tokens, v, nil, logger.Discard()),
		users:  NewUserService(db, v, logger.Discard()),
		bugs:   NewBugService(db, v, logger.Discard()),
		tags:   NewTagService(db, v, logger.Discard()),
	}
	env.bugs.now = func() time.Time { return fixedNow }
	return env
}

func (e *testEnv) register(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@gmail.com",
		Password: "test123",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) createBug(t *testing.T, owner *domain.User, title string, tags ...string) *domain.Bug {
	t.Helper()
	b, err := e.bugs.Create(context.Background(), owner.ID, BugRequest{Title: title, Tags: tags})
	require.NoError(t, err)
	return b
}

func (e *testEnv) createTag(t *testing.T, owner *domain.User, title string, bugs ...string) *domain.Tag {
	t.Helper()
	tag, err := e.tags.Create(context.Background(), owner.ID, TagRequest{Title: title, Bugs: bugs})
	require.NoError(t, err)
	return tag
}

func (e *testEnv) user(t *testing.T, userID string) *domain.User {
	t.Helper()
	var u *domain.User
	require.NoError(t, e.store.View(context.Background(), func(tx store.Tx) error {
		var err error
		u, err = tx.Users().Get(context.Background(), userID)
		return err
	}))
	return u
}

func (e *testEnv) bug(t *testing.T, bugID string) *domain.Bug {
	t.Helper()
	var b *domain.Bug
	require.NoError(t, e.store.View(context.Background(), func(tx store.Tx) error {
		var err error
		b, err = tx.Bugs().Get(context.Background(), bugID)
		return err
	}))
	return b
}

func (e *testEnv) tag(t *testing.T, tagID string) *domain.Tag {
	t.Helper()
	var tag *domain.Tag
	require.NoError(t, e.store.View(context.Background(), func(tx store.Tx) error {
		var err error
		tag, err = tx.Tags().Get(context.Background(), tagID)
		return err
	}))
	return tag
}

// requireConsistent fails the test when any reference invariant is broken.
func (e *testEnv) requireConsistent(t *testing.T) {
	t.Helper()
	report, err := integrity.Check(context.Background(), e.store)
	require.NoError(t, err)
	require.True(t, report.OK(), "violations: %+v", report.Violations)
}
