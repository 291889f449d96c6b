// Package integrity audits and repairs the cross references between users,
// bugs and tags.
//
// The ownership field of a bug or tag is authoritative. A link between a bug
// and a tag is considered intended when either side records it and both
// documents exist under the same owner.
package integrity

import (
	"context"
	"fmt"
	"slices"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/store"
)

// Rules checked by Check.
const (
	RuleOwnerMissing = "owner_missing" // bug or tag whose user does not exist
	RuleNotListed    = "not_listed"    // owner does not list its bug or tag
	RuleDangling     = "dangling"      // reference to a missing document
	RuleForeign      = "foreign"       // reference to another user's document
	RuleOneSided     = "one_sided"     // bug-tag link recorded on one side only
	RuleDuplicate    = "duplicate"     // reference list repeats an id
)

// Violation is one broken invariant.
type Violation struct {
	Rule    string      `json:"rule" yaml:"rule"`
	Kind    domain.Kind `json:"kind" yaml:"kind"`
	ID      string      `json:"id" yaml:"id"`
	Ref     string      `json:"ref,omitempty" yaml:"ref,omitempty"`
	Message string      `json:"message" yaml:"message"`
}

// Report is the result of Check.
type Report struct {
	Users      int         `json:"users" yaml:"users"`
	Bugs       int         `json:"bugs" yaml:"bugs"`
	Tags       int         `json:"tags" yaml:"tags"`
	Violations []Violation `json:"violations" yaml:"violations"`
}

// OK reports whether no violation was found.
func (r *Report) OK() bool { return len(r.Violations) == 0 }

// snapshot holds every document, keyed by id.
type snapshot struct {
	users map[string]*domain.User
	bugs  map[string]*domain.Bug
	tags  map[string]*domain.Tag

	userIDs, bugIDs, tagIDs []string
}

func load(ctx context.Context, tx store.Tx) (*snapshot, error) {
	users, err := tx.Users().Find(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	bugs, err := tx.Bugs().Find(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load bugs: %w", err)
	}
	tags, err := tx.Tags().Find(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}

	s := &snapshot{
		users: make(map[string]*domain.User, len(users)),
		bugs:  make(map[string]*domain.Bug, len(bugs)),
		tags:  make(map[string]*domain.Tag, len(tags)),
	}
	for _, u := range users {
		s.users[u.ID] = u
		s.userIDs = append(s.userIDs, u.ID)
	}
	for _, b := range bugs {
		s.bugs[b.ID] = b
		s.bugIDs = append(s.bugIDs, b.ID)
	}
	for _, t := range tags {
		s.tags[t.ID] = t
		s.tagIDs = append(s.tagIDs, t.ID)
	}
	return s, nil
}

// Check reads a consistent snapshot of s and lists every violation.
func Check(ctx context.Context, s store.Store) (*Report, error) {
	var report *Report
	err := s.View(ctx, func(tx store.Tx) error {
		snap, err := load(ctx, tx)
		if err != nil {
			return err
		}
		report = snap.check()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *snapshot) check() *Report {
	r := &Report{Users: len(s.users), Bugs: len(s.bugs), Tags: len(s.tags), Violations: []Violation{}}
	add := func(rule string, kind domain.Kind, id, ref, format string, args ...any) {
		r.Violations = append(r.Violations, Violation{
			Rule: rule, Kind: kind, ID: id, Ref: ref, Message: fmt.Sprintf(format, args...),
		})
	}

	for _, id := range s.userIDs {
		u := s.users[id]
		for _, ref := range duplicates(u.Bugs) {
			add(RuleDuplicate, domain.KindUser, u.ID, ref, "bug %s listed more than once", ref)
		}
		for _, ref := range duplicates(u.Tags) {
			add(RuleDuplicate, domain.KindUser, u.ID, ref, "tag %s listed more than once", ref)
		}
		for _, ref := range u.Bugs {
			switch b, ok := s.bugs[ref]; {
			case !ok:
				add(RuleDangling, domain.KindUser, u.ID, ref, "lists missing bug %s", ref)
			case b.User != u.ID:
				add(RuleForeign, domain.KindUser, u.ID, ref, "lists bug %s owned by %s", ref, b.User)
			}
		}
		for _, ref := range u.Tags {
			switch t, ok := s.tags[ref]; {
			case !ok:
				add(RuleDangling, domain.KindUser, u.ID, ref, "lists missing tag %s", ref)
			case t.User != u.ID:
				add(RuleForeign, domain.KindUser, u.ID, ref, "lists tag %s owned by %s", ref, t.User)
			}
		}
	}

	for _, id := range s.bugIDs {
		b := s.bugs[id]
		if owner, ok := s.users[b.User]; !ok {
			add(RuleOwnerMissing, domain.KindBug, b.ID, b.User, "owner %s does not exist", b.User)
		} else if !slices.Contains(owner.Bugs, b.ID) {
			add(RuleNotListed, domain.KindBug, b.ID, b.User, "not listed by owner %s", b.User)
		}
		for _, ref := range duplicates(b.Tags) {
			add(RuleDuplicate, domain.KindBug, b.ID, ref, "tag %s listed more than once", ref)
		}
		for _, ref := range b.Tags {
			switch t, ok := s.tags[ref]; {
			case !ok:
				add(RuleDangling, domain.KindBug, b.ID, ref, "references missing tag %s", ref)
			case t.User != b.User:
				add(RuleForeign, domain.KindBug, b.ID, ref, "references tag %s of another user", ref)
			case !slices.Contains(t.Bugs, b.ID):
				add(RuleOneSided, domain.KindBug, b.ID, ref, "tag %s does not list this bug", ref)
			}
		}
	}

	for _, id := range s.tagIDs {
		t := s.tags[id]
		if owner, ok := s.users[t.User]; !ok {
			add(RuleOwnerMissing, domain.KindTag, t.ID, t.User, "owner %s does not exist", t.User)
		} else if !slices.Contains(owner.Tags, t.ID) {
			add(RuleNotListed, domain.KindTag, t.ID, t.User, "not listed by owner %s", t.User)
		}
		for _, ref := range duplicates(t.Bugs) {
			add(RuleDuplicate, domain.KindTag, t.ID, ref, "bug %s listed more than once", ref)
		}
		for _, ref := range t.Bugs {
			switch b, ok := s.bugs[ref]; {
			case !ok:
				add(RuleDangling, domain.KindTag, t.ID, ref, "references missing bug %s", ref)
			case b.User != t.User:
				add(RuleForeign, domain.KindTag, t.ID, ref, "references bug %s of another user", ref)
			case !slices.Contains(b.Tags, t.ID):
				add(RuleOneSided, domain.KindTag, t.ID, ref, "bug %s does not list this tag", ref)
			}
		}
	}

	return r
}

func duplicates(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var dups []string
	for _, id := range ids {
		if seen[id] && !slices.Contains(dups, id) {
			dups = append(dups, id)
		}
		seen[id] = true
	}
	return dups
}
