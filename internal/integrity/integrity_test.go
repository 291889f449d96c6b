package integrity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/integrity"
	"github.com/bughive/bughive-server/internal/logger"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/store/badgerdb"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	db, err := badgerdb.Open("", logger.Discard(), badgerdb.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	alice, bob *domain.User
	bug        *domain.Bug
	tag        *domain.Tag
}

// seed writes a consistent dataset: alice owns one bug tagged with one tag,
// bob owns nothing.
func seed(t *testing.T, s store.Store) *fixture {
	t.Helper()
	f := &fixture{
		alice: &domain.User{ID: id.New(), Username: "alice", Email: "alice@example.com"},
		bob:   &domain.User{ID: id.New(), Username: "bob", Email: "bob@example.com"},
	}
	f.bug = &domain.Bug{ID: id.New(), Title: "Login fails", User: f.alice.ID, LastModified: time.Now().UTC()}
	f.tag = &domain.Tag{ID: id.New(), Title: "frontend", User: f.alice.ID}
	f.bug.Tags = []string{f.tag.ID}
	f.tag.Bugs = []string{f.bug.ID}
	f.alice.Bugs = []string{f.bug.ID}
	f.alice.Tags = []string{f.tag.ID}

	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		for _, u := range []*domain.User{f.alice, f.bob} {
			if err := tx.Users().Insert(context.Background(), u); err != nil {
				return err
			}
		}
		if err := tx.Bugs().Insert(context.Background(), f.bug); err != nil {
			return err
		}
		return tx.Tags().Insert(context.Background(), f.tag)
	}))
	return f
}

func mutate(t *testing.T, s store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return fn(ctx, tx) }))
}

func rules(r *integrity.Report) []string {
	var out []string
	for _, v := range r.Violations {
		out = append(out, v.Rule)
	}
	return out
}

func TestCheck_ConsistentData(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	report, err := integrity.Check(context.Background(), s)
	require.NoError(t, err)

	assert.True(t, report.OK(), report.Violations)
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 1, report.Bugs)
	assert.Equal(t, 1, report.Tags)
}

func TestCheck_FindsViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ctx context.Context, tx store.Tx, f *fixture) error
		rule   string
	}{
		{
			name: "one sided link",
			mutate: func(ctx context.Context, tx store.Tx, f *fixture) error {
				f.tag.Bugs = nil
				return tx.Tags().Replace(ctx, f.tag)
			},
			rule: integrity.RuleOneSided,
		},
		{
			name: "owner does not list bug",
			mutate: func(ctx context.Context, tx store.Tx, f *fixture) error {
				f.alice.Bugs = nil
				return tx.Users().Replace(ctx, f.alice)
			},
			rule: integrity.RuleNotListed,
		},
		{
			name: "dangling tag reference",
			mutate: func(ctx context.Context, tx store.Tx, f *fixture) error {
				f.bug.Tags = append(f.bug.Tags, id.New())
				return tx.Bugs().Replace(ctx, f.bug)
			},
			rule: integrity.RuleDangling,
		},
		{
			name: "foreign bug listed by user",
			mutate: func(ctx context.Context, tx store.Tx, f *fixture) error {
				f.bob.Bugs = []string{f.bug.ID}
				return tx.Users().Replace(ctx, f.bob)
			},
			rule: integrity.RuleForeign,
		},
		{
			name: "duplicate reference",
			mutate: func(ctx context.Context, tx store.Tx, f *fixture) error {
				f.alice.Tags = append(f.alice.Tags, f.tag.ID)
				return tx.Users().Replace(ctx, f.alice)
			},
			rule: integrity.RuleDuplicate,
		},
		{
			name: "owner missing",
			mutate: func(ctx context.Context, tx store.Tx, f *fixture) error {
				return tx.Users().Delete(ctx, f.alice.ID)
			},
			rule: integrity.RuleOwnerMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			f := seed(t, s)
			mutate(t, s, func(ctx context.Context, tx store.Tx) error { return tt.mutate(ctx, tx, f) })

			report, err := integrity.Check(context.Background(), s)
			require.NoError(t, err)
			assert.Contains(t, rules(report), tt.rule)

			changes, err := integrity.Repair(context.Background(), s, integrity.RepairOptions{})
			require.NoError(t, err)
			assert.NotEmpty(t, changes)

			report, err = integrity.Check(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, report.OK(), report.Violations)
		})
	}
}

func TestRepair_RestoresOneSidedLinkOnBothSides(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	mutate(t, s, func(ctx context.Context, tx store.Tx) error {
		f.bug.Tags = nil
		return tx.Bugs().Replace(ctx, f.bug)
	})

	_, err := integrity.Repair(context.Background(), s, integrity.RepairOptions{})
	require.NoError(t, err)

	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		bug, err := tx.Bugs().Get(context.Background(), f.bug.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{f.tag.ID}, bug.Tags)
		return nil
	}))
}

func TestRepair_DeletesOrphans(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	mutate(t, s, func(ctx context.Context, tx store.Tx) error {
		return tx.Users().Delete(ctx, f.alice.ID)
	})

	changes, err := integrity.Repair(context.Background(), s, integrity.RepairOptions{})
	require.NoError(t, err)
	assert.Contains(t, changes, integrity.Change{Action: integrity.ActionDelete, Kind: domain.KindBug, ID: f.bug.ID})
	assert.Contains(t, changes, integrity.Change{Action: integrity.ActionDelete, Kind: domain.KindTag, ID: f.tag.ID})

	report, err := integrity.Check(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Bugs)
	assert.Equal(t, 0, report.Tags)
}

func TestRepair_DryRunWritesNothing(t *testing.T) {
	s := newStore(t)
	f := seed(t, s)
	mutate(t, s, func(ctx context.Context, tx store.Tx) error {
		f.tag.Bugs = nil
		return tx.Tags().Replace(ctx, f.tag)
	})

	changes, err := integrity.Repair(context.Background(), s, integrity.RepairOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []integrity.Change{{Action: integrity.ActionUpdate, Kind: domain.KindTag, ID: f.tag.ID}}, changes)

	report, err := integrity.Check(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, report.OK())
}

func TestRepair_NothingToDo(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	changes, err := integrity.Repair(context.Background(), s, integrity.RepairOptions{})
	require.NoError(t, err)
	assert.Empty(t, changes)
}
