package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/dto"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/validation"
)

// BugRequest is the body of POST and PUT /api/bugs. A PUT replaces every
// field; omitted fields become empty. lastModified is set by the server.
type BugRequest struct {
	Title       string   `json:"title" validate:"required,min=5"`
	Description string   `json:"description" validate:"omitempty,min=10"`
	References  []string `json:"references"`
	Tags        []string `json:"tags"`
}

// BugService manages bugs and their links to tags.
type BugService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
	now       Clock
}

// NewBugService creates a new bug service.
func NewBugService(store store.Store, validator *validation.Validator, logger *slog.Logger) *BugService {
	return &BugService{
		store:     store,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a new bug owned by requesterID and links it to the owner and
// to every tag in req.Tags.
func (s *BugService) Create(ctx context.Context, requesterID string, req BugRequest) (*domain.Bug, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var created *domain.Bug
	err := s.store.Update(ctx, func(tx store.Tx) error {
		owner, err := loadRequester(ctx, tx, requesterID)
		if err != nil {
			return err
		}
		tagIDs, err := collectOwnedReferences(ctx, tx, req.Tags, domain.KindTag, owner.ID)
		if err != nil {
			return err
		}

		bug := &domain.Bug{
			ID:          id.New(),
			Title:       req.Title,
			Description: req.Description,
			References:  nonNil(slices.Clone(req.References)),
			Tags:        tagIDs,
			User:        owner.ID,
		}
		bug.Touch(s.now())
		if err := tx.Bugs().Insert(ctx, bug); err != nil {
			return fmt.Errorf("insert bug: %w", err)
		}

		owner.Bugs = appendUnique(owner.Bugs, bug.ID)
		if err := tx.Users().Replace(ctx, owner); err != nil {
			return fmt.Errorf("link bug to owner: %w", err)
		}

		if err := s.attachTags(ctx, tx, bug.ID, tagIDs); err != nil {
			return err
		}
		created = bug
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	if s.logger != nil {
		s.logger.Info("Bug created", "bug_id", created.ID, "user_id", requesterID, "tags", len(created.Tags))
	}
	return created, nil
}

// List returns the requester's bugs with their tags expanded.
func (s *BugService) List(ctx context.Context, requesterID string) ([]*dto.Bug, error) {
	var views []*dto.Bug
	err := s.store.View(ctx, func(tx store.Tx) error {
		bugs, err := tx.Bugs().Find(ctx, store.ByOwner(requesterID))
		if err != nil {
			return fmt.Errorf("list bugs: %w", err)
		}
		views, err = dto.NewEnricher(tx).Bugs(ctx, bugs)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return views, nil
}

// Get returns one of the requester's bugs with its tags expanded.
func (s *BugService) Get(ctx context.Context, requesterID, bugID string) (*dto.Bug, error) {
	bugID, err := parseID(bugID)
	if err != nil {
		return nil, err
	}

	var view *dto.Bug
	err = s.store.View(ctx, func(tx store.Tx) error {
		bug, err := tx.Bugs().Get(ctx, bugID)
		if err != nil {
			return err
		}
		if err := AssertOwner(bug, requesterID, VerbView); err != nil {
			return err
		}
		view, err = dto.NewEnricher(tx).Bug(ctx, bug)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return view, nil
}

// Update replaces the bug's fields and moves it between tags so that exactly
// the tags in req.Tags list it afterwards.
func (s *BugService) Update(ctx context.Context, requesterID, bugID string, req BugRequest) (*domain.Bug, error) {
	bugID, err := parseID(bugID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Bug
	err = s.store.Update(ctx, func(tx store.Tx) error {
		bug, err := tx.Bugs().Get(ctx, bugID)
		if err != nil {
			return err
		}
		if err := AssertOwner(bug, requesterID, VerbUpdate); err != nil {
			return err
		}
		if err := s.validator.Validate(req); err != nil {
			return err
		}
		tagIDs, err := collectOwnedReferences(ctx, tx, req.Tags, domain.KindTag, bug.User)
		if err != nil {
			return err
		}

		oldTags, err := tx.Tags().Find(ctx, store.Filter{Owner: bug.User, Ref: bug.ID})
		if err != nil {
			return fmt.Errorf("find tags of bug: %w", err)
		}
		oldTagIDs := make([]string, 0, len(oldTags))
		for _, t := range oldTags {
			oldTagIDs = append(oldTagIDs, t.ID)
		}

		bug.Title = req.Title
		bug.Description = req.Description
		bug.References = nonNil(slices.Clone(req.References))
		bug.Tags = tagIDs
		bug.Touch(s.now())
		if err := tx.Bugs().Replace(ctx, bug); err != nil {
			return fmt.Errorf("replace bug: %w", err)
		}

		removed, added := diff(oldTagIDs, tagIDs)
		for _, t := range oldTags {
			if !slices.Contains(removed, t.ID) {
				continue
			}
			t.Bugs = without(t.Bugs, bug.ID)
			if err := tx.Tags().Replace(ctx, t); err != nil {
				return fmt.Errorf("detach tag %s: %w", t.ID, err)
			}
		}
		if err := s.attachTags(ctx, tx, bug.ID, added); err != nil {
			return err
		}

		updated = bug
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// Delete removes the bug and every reference to it.
func (s *BugService) Delete(ctx context.Context, requesterID, bugID string) error {
	bugID, err := parseID(bugID)
	if err != nil {
		return err
	}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		bug, err := tx.Bugs().Get(ctx, bugID)
		if err != nil {
			return err
		}
		if err := AssertOwner(bug, requesterID, VerbDelete); err != nil {
			return err
		}
		if err := tx.Bugs().Delete(ctx, bug.ID); err != nil {
			return fmt.Errorf("delete bug: %w", err)
		}

		owner, err := loadRequester(ctx, tx, bug.User)
		if err != nil {
			return err
		}
		owner.Bugs = without(owner.Bugs, bug.ID)
		if err := tx.Users().Replace(ctx, owner); err != nil {
			return fmt.Errorf("unlink bug from owner: %w", err)
		}

		tags, err := tx.Tags().Find(ctx, store.ByRef(bug.ID))
		if err != nil {
			return fmt.Errorf("find tags of bug: %w", err)
		}
		for _, t := range tags {
			t.Bugs = without(t.Bugs, bug.ID)
			if err := tx.Tags().Replace(ctx, t); err != nil {
				return fmt.Errorf("detach tag %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}

	if s.logger != nil {
		s.logger.Info("Bug deleted", "bug_id", bugID, "user_id", requesterID)
	}
	return nil
}

// DeleteAll removes every bug of the requester and empties the bug lists of
// the requester and their tags. Running it twice is harmless.
func (s *BugService) DeleteAll(ctx context.Context, requesterID string) error {
	var deleted int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		owner, err := loadRequester(ctx, tx, requesterID)
		if err != nil {
			return err
		}

		bugs, err := tx.Bugs().Find(ctx, store.ByOwner(owner.ID))
		if err != nil {
			return fmt.Errorf("list bugs: %w", err)
		}
		for _, b := range bugs {
			if err := tx.Bugs().Delete(ctx, b.ID); err != nil {
				return fmt.Errorf("delete bug %s: %w", b.ID, err)
			}
		}
		deleted = len(bugs)

		if len(owner.Bugs) > 0 {
			owner.Bugs = []string{}
			if err := tx.Users().Replace(ctx, owner); err != nil {
				return fmt.Errorf("clear owner bugs: %w", err)
			}
		}

		tags, err := tx.Tags().Find(ctx, store.ByOwner(owner.ID))
		if err != nil {
			return fmt.Errorf("list tags: %w", err)
		}
		for _, t := range tags {
			if len(t.Bugs) == 0 {
				continue
			}
			t.Bugs = []string{}
			if err := tx.Tags().Replace(ctx, t); err != nil {
				return fmt.Errorf("clear tag %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}

	if s.logger != nil {
		s.logger.Info("All bugs deleted", "user_id", requesterID, "count", deleted)
	}
	return nil
}

// attachTags adds bugID to each tag's bug list.
func (s *BugService) attachTags(ctx context.Context, tx store.Tx, bugID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		tag, err := tx.Tags().Get(ctx, tagID)
		if errors.Is(err, store.ErrNotFound) {
			// Validated earlier in this transaction; vanishing now is a conflict.
			return fmt.Errorf("tag %s disappeared: %w", tagID, store.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("load tag %s: %w", tagID, err)
		}
		tag.Bugs = appendUnique(tag.Bugs, bugID)
		if err := tx.Tags().Replace(ctx, tag); err != nil {
			return fmt.Errorf("attach tag %s: %w", tagID, err)
		}
	}
	return nil
}
