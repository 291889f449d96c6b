package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bughive/bughive-server/internal/domain"
	domainerrors "github.com/bughive/bughive-server/internal/errors"
	"github.com/bughive/bughive-server/internal/dto"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/validation"
)

// TagRequest is the body of POST and PUT /api/tags.
type TagRequest struct {
	Title string   `json:"title" validate:"required,min=5"`
	Bugs  []string `json:"bugs"`
}

// TagService manages tags and their links to bugs. It mirrors BugService.
type TagService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, validator *validation.Validator, logger *slog.Logger) *TagService {
	return &TagService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// Create stores a new tag owned by requesterID and links it to the owner and
// to every bug in req.Bugs.
func (s *TagService) Create(ctx context.Context, requesterID string, req TagRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var created *domain.Tag
	err := s.store.Update(ctx, func(tx store.Tx) error {
		owner, err := loadRequester(ctx, tx, requesterID)
		if err != nil {
			return err
		}
		bugIDs, err := collectOwnedReferences(ctx, tx, req.Bugs, domain.KindBug, owner.ID)
		if err != nil {
			return err
		}
		if err := checkTitleFree(ctx, tx, owner.ID, req.Title, ""); err != nil {
			return err
		}

		tag := &domain.Tag{
			ID:    id.New(),
			Title: req.Title,
			Bugs:  bugIDs,
			User:  owner.ID,
		}
		if err := tx.Tags().Insert(ctx, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}

		owner.Tags = appendUnique(owner.Tags, tag.ID)
		if err := tx.Users().Replace(ctx, owner); err != nil {
			return fmt.Errorf("link tag to owner: %w", err)
		}

		if err := s.attachBugs(ctx, tx, tag.ID, bugIDs); err != nil {
			return err
		}
		created = tag
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	if s.logger != nil {
		s.logger.Info("Tag created", "tag_id", created.ID, "user_id", requesterID, "bugs", len(created.Bugs))
	}
	return created, nil
}

// List returns the requester's tags with their bugs expanded.
func (s *TagService) List(ctx context.Context, requesterID string) ([]*dto.Tag, error) {
	var views []*dto.Tag
	err := s.store.View(ctx, func(tx store.Tx) error {
		tags, err := tx.Tags().Find(ctx, store.ByOwner(requesterID))
		if err != nil {
			return fmt.Errorf("list tags: %w", err)
		}
		views, err = dto.NewEnricher(tx).Tags(ctx, tags)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return views, nil
}

// Get returns one of the requester's tags with its bugs expanded.
func (s *TagService) Get(ctx context.Context, requesterID, tagID string) (*dto.Tag, error) {
	tagID, err := parseID(tagID)
	if err != nil {
		return nil, err
	}

	var view *dto.Tag
	err = s.store.View(ctx, func(tx store.Tx) error {
		tag, err := tx.Tags().Get(ctx, tagID)
		if err != nil {
			return err
		}
		if err := AssertOwner(tag, requesterID, VerbView); err != nil {
			return err
		}
		view, err = dto.NewEnricher(tx).Tag(ctx, tag)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return view, nil
}

// Update renames the tag and moves it between bugs so that exactly the bugs
// in req.Bugs list it afterwards.
func (s *TagService) Update(ctx context.Context, requesterID, tagID string, req TagRequest) (*domain.Tag, error) {
	tagID, err := parseID(tagID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Tag
	err = s.store.Update(ctx, func(tx store.Tx) error {
		tag, err := tx.Tags().Get(ctx, tagID)
		if err != nil {
			return err
		}
		if err := AssertOwner(tag, requesterID, VerbUpdate); err != nil {
			return err
		}
		if err := s.validator.Validate(req); err != nil {
			return err
		}
		bugIDs, err := collectOwnedReferences(ctx, tx, req.Bugs, domain.KindBug, tag.User)
		if err != nil {
			return err
		}
		if err := checkTitleFree(ctx, tx, tag.User, req.Title, tag.ID); err != nil {
			return err
		}

		oldBugs, err := tx.Bugs().Find(ctx, store.Filter{Owner: tag.User, Ref: tag.ID})
		if err != nil {
			return fmt.Errorf("find bugs of tag: %w", err)
		}
		oldBugIDs := make([]string, 0, len(oldBugs))
		for _, b := range oldBugs {
			oldBugIDs = append(oldBugIDs, b.ID)
		}

		tag.Title = req.Title
		tag.Bugs = bugIDs
		if err := tx.Tags().Replace(ctx, tag); err != nil {
			return fmt.Errorf("replace tag: %w", err)
		}

		removed, added := diff(oldBugIDs, bugIDs)
		for _, b := range oldBugs {
			if !slices.Contains(removed, b.ID) {
				continue
			}
			b.Tags = without(b.Tags, tag.ID)
			if err := tx.Bugs().Replace(ctx, b); err != nil {
				return fmt.Errorf("detach bug %s: %w", b.ID, err)
			}
		}
		if err := s.attachBugs(ctx, tx, tag.ID, added); err != nil {
			return err
		}

		updated = tag
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// Delete removes the tag and every reference to it.
func (s *TagService) Delete(ctx context.Context, requesterID, tagID string) error {
	tagID, err := parseID(tagID)
	if err != nil {
		return err
	}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		tag, err := tx.Tags().Get(ctx, tagID)
		if err != nil {
			return err
		}
		if err := AssertOwner(tag, requesterID, VerbDelete); err != nil {
			return err
		}
		if err := tx.Tags().Delete(ctx, tag.ID); err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}

		owner, err := loadRequester(ctx, tx, tag.User)
		if err != nil {
			return err
		}
		owner.Tags = without(owner.Tags, tag.ID)
		if err := tx.Users().Replace(ctx, owner); err != nil {
			return fmt.Errorf("unlink tag from owner: %w", err)
		}

		bugs, err := tx.Bugs().Find(ctx, store.ByRef(tag.ID))
		if err != nil {
			return fmt.Errorf("find bugs of tag: %w", err)
		}
		for _, b := range bugs {
			b.Tags = without(b.Tags, tag.ID)
			if err := tx.Bugs().Replace(ctx, b); err != nil {
				return fmt.Errorf("detach bug %s: %w", b.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}

	if s.logger != nil {
		s.logger.Info("Tag deleted", "tag_id", tagID, "user_id", requesterID)
	}
	return nil
}

// DeleteAll removes every tag of the requester and empties the tag lists of
// the requester and their bugs. Running it twice is harmless.
func (s *TagService) DeleteAll(ctx context.Context, requesterID string) error {
	var deleted int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		owner, err := loadRequester(ctx, tx, requesterID)
		if err != nil {
			return err
		}

		tags, err := tx.Tags().Find(ctx, store.ByOwner(owner.ID))
		if err != nil {
			return fmt.Errorf("list tags: %w", err)
		}
		for _, t := range tags {
			if err := tx.Tags().Delete(ctx, t.ID); err != nil {
				return fmt.Errorf("delete tag %s: %w", t.ID, err)
			}
		}
		deleted = len(tags)

		if len(owner.Tags) > 0 {
			owner.Tags = []string{}
			if err := tx.Users().Replace(ctx, owner); err != nil {
				return fmt.Errorf("clear owner tags: %w", err)
			}
		}

		bugs, err := tx.Bugs().Find(ctx, store.ByOwner(owner.ID))
		if err != nil {
			return fmt.Errorf("list bugs: %w", err)
		}
		for _, b := range bugs {
			if len(b.Tags) == 0 {
				continue
			}
			b.Tags = []string{}
			if err := tx.Bugs().Replace(ctx, b); err != nil {
				return fmt.Errorf("clear bug %s: %w", b.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return translate(err)
	}

	if s.logger != nil {
		s.logger.Info("All tags deleted", "user_id", requesterID, "count", deleted)
	}
	return nil
}

// attachBugs adds tagID to each bug's tag list.
func (s *TagService) attachBugs(ctx context.Context, tx store.Tx, tagID string, bugIDs []string) error {
	for _, bugID := range bugIDs {
		bug, err := tx.Bugs().Get(ctx, bugID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("bug %s disappeared: %w", bugID, store.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("load bug %s: %w", bugID, err)
		}
		bug.Tags = appendUnique(bug.Tags, tagID)
		if err := tx.Bugs().Replace(ctx, bug); err != nil {
			return fmt.Errorf("attach bug %s: %w", bugID, err)
		}
	}
	return nil
}

// checkTitleFree rejects a title already used by another of the owner's tags.
func checkTitleFree(ctx context.Context, tx store.Tx, owner, title, self string) error {
	existing, err := tx.Tags().GetByTitle(ctx, owner, title)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check tag title: %w", err)
	case existing.ID != self:
		return domainerrors.Validation("title must be unique")
	default:
		return nil
	}
}
