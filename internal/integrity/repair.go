package integrity

import (
	"context"
	"fmt"
	"slices"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/store"
)

// Change actions.
const (
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Change is one document rewritten or removed by Repair.
type Change struct {
	Action string      `json:"action" yaml:"action"`
	Kind   domain.Kind `json:"kind" yaml:"kind"`
	ID     string      `json:"id" yaml:"id"`
}

// RepairOptions controls Repair.
type RepairOptions struct {
	// DryRun computes the changes without writing them.
	DryRun bool
}

// Repair rewrites every reference list so that Check finds nothing:
//   - bugs and tags whose owner is gone are deleted;
//   - user lists become exactly the bugs and tags the user owns;
//   - a bug-tag link recorded on either side is restored on both, unless it
//     is dangling or crosses owners, in which case it is dropped.
//
// Existing order is kept and duplicates are removed. Everything happens in
// one transaction.
func Repair(ctx context.Context, s store.Store, opts RepairOptions) ([]Change, error) {
	var changes []Change
	write := s.Update
	if opts.DryRun {
		write = s.View
	}

	err := write(ctx, func(tx store.Tx) error {
		changes = nil // Update may re-run fn

		snap, err := load(ctx, tx)
		if err != nil {
			return err
		}
		plan := snap.plan()
		changes = plan.changes()
		if opts.DryRun {
			return nil
		}
		return plan.apply(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

type plan struct {
	deleteBugs, deleteTags []string
	users                  []*domain.User
	bugs                   []*domain.Bug
	tags                   []*domain.Tag
}

func (s *snapshot) plan() *plan {
	p := &plan{}

	ownedBugs := make(map[string][]string)
	ownedTags := make(map[string][]string)
	liveBug := func(id string) bool {
		b, ok := s.bugs[id]
		return ok && s.users[b.User] != nil
	}
	liveTag := func(id string) bool {
		t, ok := s.tags[id]
		return ok && s.users[t.User] != nil
	}

	for _, id := range s.bugIDs {
		if b := s.bugs[id]; liveBug(id) {
			ownedBugs[b.User] = append(ownedBugs[b.User], id)
		} else {
			p.deleteBugs = append(p.deleteBugs, id)
		}
	}
	for _, id := range s.tagIDs {
		if t := s.tags[id]; liveTag(id) {
			ownedTags[t.User] = append(ownedTags[t.User], id)
		} else {
			p.deleteTags = append(p.deleteTags, id)
		}
	}

	for _, id := range s.userIDs {
		u := s.users[id]
		bugs := reconcile(u.Bugs, ownedBugs[id])
		tags := reconcile(u.Tags, ownedTags[id])
		if !slices.Equal(bugs, u.Bugs) || !slices.Equal(tags, u.Tags) {
			fixed := *u
			fixed.Bugs, fixed.Tags = bugs, tags
			p.users = append(p.users, &fixed)
		}
	}

	// A link survives when either side records it and both ends are live
	// documents of the same owner.
	linked := func(bugID, tagID string) bool {
		if !liveBug(bugID) || !liveTag(tagID) {
			return false
		}
		b, t := s.bugs[bugID], s.tags[tagID]
		if b.User != t.User {
			return false
		}
		return slices.Contains(b.Tags, tagID) || slices.Contains(t.Bugs, bugID)
	}

	tagsOfBug := make(map[string][]string)
	bugsOfTag := make(map[string][]string)
	for _, bugID := range s.bugIDs {
		b := s.bugs[bugID]
		for _, tagID := range b.Tags {
			if linked(bugID, tagID) {
				tagsOfBug[bugID] = appendUnique(tagsOfBug[bugID], tagID)
				bugsOfTag[tagID] = appendUnique(bugsOfTag[tagID], bugID)
			}
		}
	}
	for _, tagID := range s.tagIDs {
		t := s.tags[tagID]
		for _, bugID := range t.Bugs {
			if linked(bugID, tagID) {
				tagsOfBug[bugID] = appendUnique(tagsOfBug[bugID], tagID)
				bugsOfTag[tagID] = appendUnique(bugsOfTag[tagID], bugID)
			}
		}
	}

	for _, id := range s.bugIDs {
		b := s.bugs[id]
		if !liveBug(id) {
			continue
		}
		tags := reconcile(b.Tags, tagsOfBug[id])
		if !slices.Equal(tags, b.Tags) {
			fixed := *b
			fixed.Tags = tags
			p.bugs = append(p.bugs, &fixed)
		}
	}
	for _, id := range s.tagIDs {
		t := s.tags[id]
		if !liveTag(id) {
			continue
		}
		bugs := reconcile(t.Bugs, bugsOfTag[id])
		if !slices.Equal(bugs, t.Bugs) {
			fixed := *t
			fixed.Bugs = bugs
			p.tags = append(p.tags, &fixed)
		}
	}

	return p
}

func (p *plan) changes() []Change {
	out := []Change{}
	for _, id := range p.deleteBugs {
		out = append(out, Change{Action: ActionDelete, Kind: domain.KindBug, ID: id})
	}
	for _, id := range p.deleteTags {
		out = append(out, Change{Action: ActionDelete, Kind: domain.KindTag, ID: id})
	}
	for _, u := range p.users {
		out = append(out, Change{Action: ActionUpdate, Kind: domain.KindUser, ID: u.ID})
	}
	for _, b := range p.bugs {
		out = append(out, Change{Action: ActionUpdate, Kind: domain.KindBug, ID: b.ID})
	}
	for _, t := range p.tags {
		out = append(out, Change{Action: ActionUpdate, Kind: domain.KindTag, ID: t.ID})
	}
	return out
}

func (p *plan) apply(ctx context.Context, tx store.Tx) error {
	for _, id := range p.deleteBugs {
		if err := tx.Bugs().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete orphaned bug %s: %w", id, err)
		}
	}
	for _, id := range p.deleteTags {
		if err := tx.Tags().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete orphaned tag %s: %w", id, err)
		}
	}
	for _, u := range p.users {
		if err := tx.Users().Replace(ctx, u); err != nil {
			return fmt.Errorf("repair user %s: %w", u.ID, err)
		}
	}
	for _, b := range p.bugs {
		if err := tx.Bugs().Replace(ctx, b); err != nil {
			return fmt.Errorf("repair bug %s: %w", b.ID, err)
		}
	}
	for _, t := range p.tags {
		if err := tx.Tags().Replace(ctx, t); err != nil {
			return fmt.Errorf("repair tag %s: %w", t.ID, err)
		}
	}
	return nil
}

// reconcile returns want ordered like have: ids already present keep their
// position, new ones are appended. Duplicates are dropped.
func reconcile(have, want []string) []string {
	out := make([]string, 0, len(want))
	for _, id := range have {
		if slices.Contains(want, id) {
			out = appendUnique(out, id)
		}
	}
	for _, id := range want {
		out = appendUnique(out, id)
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
