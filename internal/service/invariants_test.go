package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/integrity"
)

func (e *testEnv) checkCounts(t *testing.T) *integrity.Report {
	t.Helper()
	report, err := integrity.Check(context.Background(), e.store)
	require.NoError(t, err)
	require.True(t, report.OK(), "violations: %+v", report.Violations)
	return report
}

// TestInvariants_RandomOperations applies a random mix of operations by two
// users, including cross-user attempts, and checks that no reference
// invariant ever breaks.
func TestInvariants_RandomOperations(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	users := []*domain.User{env.register(t, "alice"), env.register(t, "bob")}
	rng := rand.New(rand.NewPCG(1, 2))

	var bugIDs, tagIDs []string
	pick := func(ids []string, n int) []string {
		var out []string
		for i := 0; i < n && len(ids) > 0; i++ {
			out = append(out, ids[rng.IntN(len(ids))])
		}
		return out
	}

	for step := 0; step < 300; step++ {
		u := users[rng.IntN(len(users))]
		title := fmt.Sprintf("title %03d", step)

		// Errors are expected (foreign references, missing ids); the
		// invariants must hold regardless.
		switch rng.IntN(8) {
		case 0:
			if b, err := env.bugs.Create(ctx, u.ID, BugRequest{Title: title, Tags: pick(tagIDs, 2)}); err == nil {
				bugIDs = append(bugIDs, b.ID)
			}
		case 1:
			if tg, err := env.tags.Create(ctx, u.ID, TagRequest{Title: title, Bugs: pick(bugIDs, 2)}); err == nil {
				tagIDs = append(tagIDs, tg.ID)
			}
		case 2:
			for _, b := range pick(bugIDs, 1) {
				_, _ = env.bugs.Update(ctx, u.ID, b, BugRequest{Title: title, Tags: pick(tagIDs, 3)})
			}
		case 3:
			for _, tg := range pick(tagIDs, 1) {
				_, _ = env.tags.Update(ctx, u.ID, tg, TagRequest{Title: title, Bugs: pick(bugIDs, 3)})
			}
		case 4:
			for _, b := range pick(bugIDs, 1) {
				_ = env.bugs.Delete(ctx, u.ID, b)
			}
		case 5:
			for _, tg := range pick(tagIDs, 1) {
				_ = env.tags.Delete(ctx, u.ID, tg)
			}
		case 6:
			if rng.IntN(10) == 0 {
				_ = env.bugs.DeleteAll(ctx, u.ID)
			}
		case 7:
			if rng.IntN(10) == 0 {
				_ = env.tags.DeleteAll(ctx, u.ID)
			}
		}
	}

	env.checkCounts(t)
}

// TestInvariants_ConcurrentAttachToOneTag creates bugs in parallel, all
// tagged with the same tag. No attachment may be lost.
func TestInvariants_ConcurrentAttachToOneTag(t *testing.T) {
	env := setupServices(t)
	alice := env.register(t, "alice")
	tag := env.createTag(t, alice, "frontend")

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.bugs.Create(context.Background(), alice.ID, BugRequest{
				Title: fmt.Sprintf("Concurrent bug %d", i),
				Tags:  []string{tag.ID},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		}
	}
	require.Positive(t, created)

	assert.Len(t, env.tag(t, tag.ID).Bugs, created)
	assert.Len(t, env.user(t, alice.ID).Bugs, created)
	env.checkCounts(t)
}
