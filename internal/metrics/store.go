package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/bughive/bughive-server/internal/store"
)

// Transaction outcomes.
const (
	OutcomeCommit   = "commit"
	OutcomeRollback = "rollback"
	OutcomeConflict = "conflict"
)

type instrumentedStore struct {
	store.Store
	rec Recorder
}

// InstrumentStore reports the outcome and latency of every View and Update
// on s to rec.
func InstrumentStore(s store.Store, rec Recorder) store.Store {
	return &instrumentedStore{Store: s, rec: rec}
}

func (s *instrumentedStore) View(ctx context.Context, fn func(store.Tx) error) error {
	start := time.Now()
	err := s.Store.View(ctx, fn)
	s.rec.RecordTransaction("view", outcome(err), time.Since(start))
	return err
}

func (s *instrumentedStore) Update(ctx context.Context, fn func(store.Tx) error) error {
	start := time.Now()
	err := s.Store.Update(ctx, fn)
	s.rec.RecordTransaction("update", outcome(err), time.Since(start))
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCommit
	case errors.Is(err, store.ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeRollback
	}
}
