// Package service implements BugHive's use cases.
//
// Every operation that touches more than one document runs inside a single
// store.Update, so the reference lists on users, bugs and tags change
// together or not at all. Update may re-run its function after a write
// conflict; closures below reset anything they capture.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bughive/bughive-server/internal/domain"
	domainerrors "github.com/bughive/bughive-server/internal/errors"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/store"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// parseID canonicalizes a path id or fails with "malformatted id".
func parseID(raw string) (string, error) {
	canonical, ok := id.Parse(raw)
	if !ok {
		return "", domainerrors.MalformedID()
	}
	return canonical, nil
}

// translate maps store errors onto domain errors. Domain errors and
// unknown errors pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	var storeErr *store.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound("not found").WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists) && errors.As(err, &storeErr):
		// Unique violations read as validation failures: "email must be unique".
		return domainerrors.Validation(storeErr.Message).WithCause(err)
	default:
		return err
	}
}

// loadRequester re-reads the authenticated user inside tx. A user deleted
// since the token was checked no longer authenticates.
func loadRequester(ctx context.Context, tx store.Tx, userID string) (*domain.User, error) {
	user, err := tx.Users().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.Unauthorized("invalid token")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return user, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
