package store

import (
	"slices"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/normalize"
)

// Filter selects documents. Set fields are combined with AND; the zero
// Filter matches everything.
type Filter struct {
	// Owner matches bugs and tags whose user is Owner, and the user whose
	// id is Owner.
	Owner string
	// Ref matches documents whose reference lists contain Ref: bugs tagged
	// with Ref, tags containing bug Ref, users owning Ref.
	Ref string
	// IDs restricts the result to these ids when non-nil. An empty non-nil
	// slice matches nothing.
	IDs []string
}

// ByOwner selects the documents of one user.
func ByOwner(owner string) Filter { return Filter{Owner: owner} }

// ByRef selects documents referencing id.
func ByRef(id string) Filter { return Filter{Ref: id} }

// ByIDs selects the given ids.
func ByIDs(ids []string) Filter {
	if ids == nil {
		ids = []string{}
	}
	return Filter{IDs: ids}
}

// Empty reports whether f can match nothing.
func (f Filter) Empty() bool {
	return f.IDs != nil && len(f.IDs) == 0
}

func (f Filter) matchID(id string) bool {
	return f.IDs == nil || slices.Contains(f.IDs, id)
}

// MatchUser reports whether u satisfies f.
func (f Filter) MatchUser(u *domain.User) bool {
	if f.Owner != "" && u.ID != f.Owner {
		return false
	}
	if f.Ref != "" && !slices.Contains(u.Bugs, f.Ref) && !slices.Contains(u.Tags, f.Ref) {
		return false
	}
	return f.matchID(u.ID)
}

// MatchBug reports whether b satisfies f.
func (f Filter) MatchBug(b *domain.Bug) bool {
	if f.Owner != "" && b.User != f.Owner {
		return false
	}
	if f.Ref != "" && !slices.Contains(b.Tags, f.Ref) {
		return false
	}
	return f.matchID(b.ID)
}

// MatchTag reports whether t satisfies f.
func (f Filter) MatchTag(t *domain.Tag) bool {
	if f.Owner != "" && t.User != f.Owner {
		return false
	}
	if f.Ref != "" && !slices.Contains(t.Bugs, f.Ref) {
		return false
	}
	return f.matchID(t.ID)
}

// Unique keys shared by every backend.

// UsernameKey is the uniqueness key of a username.
func UsernameKey(username string) string { return normalize.Key(username) }

// EmailKey is the uniqueness key of an email address.
func EmailKey(email string) string { return normalize.Email(email) }

// TagTitleKey is the uniqueness key of a tag title within its owner.
func TagTitleKey(owner, title string) string {
	return owner + ":" + normalize.Key(title)
}
