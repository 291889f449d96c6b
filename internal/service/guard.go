package service

import (
	"context"

	"github.com/bughive/bughive-server/internal/domain"
	domainerrors "github.com/bughive/bughive-server/internal/errors"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/store"
)

// Verb names the action in ownership failures.
type Verb string

const (
	VerbView   Verb = "view"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// AssertOwner fails with 401 unless requesterID owns resource. A user owns
// itself, so the same check guards profile access.
func AssertOwner(resource domain.Owned, requesterID string, verb Verb) error {
	if domain.OwnedBy(resource, requesterID) {
		return nil
	}
	if resource.Kind() == domain.KindUser {
		return domainerrors.NotOwnerf("a user can only %s themselves", verb)
	}
	return domainerrors.NotOwnerf("a user can only %s their %s", verb, resource.Kind().Plural())
}

// validateOwnedReference returns the canonical id of candidate when it names
// an existing document of kind owned by owner. Any failure, including a
// lookup error, rejects the reference.
func validateOwnedReference(ctx context.Context, tx store.Tx, candidate string, kind domain.Kind, owner string) (string, bool) {
	canonical, ok := id.Parse(candidate)
	if !ok {
		return "", false
	}

	var doc domain.Owned
	switch kind {
	case domain.KindBug:
		bug, err := tx.Bugs().Get(ctx, canonical)
		if err != nil {
			return "", false
		}
		doc = bug
	case domain.KindTag:
		tag, err := tx.Tags().Get(ctx, canonical)
		if err != nil {
			return "", false
		}
		doc = tag
	default:
		return "", false
	}

	if !domain.OwnedBy(doc, owner) {
		return "", false
	}
	return canonical, true
}

// collectOwnedReferences validates every candidate and returns them
// de-duplicated in input order. The first invalid id aborts with
// "A tag is not a valid tag id" (or the bug equivalent). Nothing is written.
func collectOwnedReferences(ctx context.Context, tx store.Tx, candidates []string, kind domain.Kind, owner string) ([]string, error) {
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		canonical, ok := validateOwnedReference(ctx, tx, candidate, kind, owner)
		if !ok {
			return nil, domainerrors.Validationf("A %s is not a valid %s id", kind, kind)
		}
		out = appendUnique(out, canonical)
	}
	return out, nil
}
