package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bughive/bughive-server/internal/auth"
	"github.com/bughive/bughive-server/internal/domain"
	"github.com/bughive/bughive-server/internal/dto"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/validation"
)

// UpdateUserRequest is the body of PUT /api/users/{id}. The password is
// required and re-hashed on every update. Bug and tag lists are not
// client-writable.
type UpdateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	DarkMode bool   `json:"darkMode"`
}

// UserService reads and maintains accounts.
type UserService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store store.Store, validator *validation.Validator, logger *slog.Logger) *UserService {
	return &UserService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// List returns every user with bugs and tags expanded.
func (s *UserService) List(ctx context.Context) ([]*dto.User, error) {
	var views []*dto.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		users, err := tx.Users().Find(ctx, store.Filter{})
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		views, err = dto.NewEnricher(tx).Users(ctx, users)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return views, nil
}

// Get returns the requester's own account with bugs and tags expanded.
func (s *UserService) Get(ctx context.Context, requesterID, userID string) (*dto.User, error) {
	userID, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	var view *dto.User
	err = s.store.View(ctx, func(tx store.Tx) error {
		user, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := AssertOwner(user, requesterID, VerbView); err != nil {
			return err
		}
		view, err = dto.NewEnricher(tx).User(ctx, user)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return view, nil
}

// authorizeSelf checks that userID exists and is the requester.
func (s *UserService) authorizeSelf(ctx context.Context, requesterID, userID string, verb Verb) error {
	return translate(s.store.View(ctx, func(tx store.Tx) error {
		user, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		return AssertOwner(user, requesterID, verb)
	}))
}

// Update replaces the requester's profile fields and password.
func (s *UserService) Update(ctx context.Context, requesterID, userID string, req UpdateUserRequest) (*domain.User, error) {
	userID, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeSelf(ctx, requesterID, userID, VerbUpdate); err != nil {
		return nil, err
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Hash outside the transaction; argon2 is deliberately slow.
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var updated *domain.User
	err = s.store.Update(ctx, func(tx store.Tx) error {
		user, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := AssertOwner(user, requesterID, VerbUpdate); err != nil {
			return err
		}
		if err := checkIdentityFree(ctx, tx, req.Username, req.Email, user.ID); err != nil {
			return err
		}

		user.Username = req.Username
		user.Name = req.Name
		user.Email = req.Email
		user.PasswordHash = passwordHash
		user.DarkMode = req.DarkMode
		if err := tx.Users().Replace(ctx, user); err != nil {
			return fmt.Errorf("replace user: %w", err)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// Delete removes the requester's account with every bug and tag they own.
func (s *UserService) Delete(ctx context.Context, requesterID, userID string) error {
	userID, err := parseID(userID)
	if err != nil {
		return err
	}

	var bugs, tags int
	err = s.store.Update(ctx, func(tx store.Tx) error {
		user, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := AssertOwner(user, requesterID, VerbDelete); err != nil {
			return err
		}

		bugs, tags = 0, 0
		if bugs, err = deleteOwned[domain.Bug](ctx, tx.Bugs(), user.ID); err != nil {
			return fmt.Errorf("delete bugs: %w", err)
		}
		if tags, err = deleteOwned[domain.Tag](ctx, tx.Tags(), user.ID); err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		return tx.Users().Delete(ctx, user.ID)
	})
	if err != nil {
		return translate(err)
	}

	if s.logger != nil {
		s.logger.Info("User deleted", "user_id", userID, "bugs", bugs, "tags", tags)
	}
	return nil
}

// deleteOwned removes every document of owner from c.
func deleteOwned[T domain.Owned](ctx context.Context, c store.Collection[T], owner string) (int, error) {
	docs, err := c.Find(ctx, store.ByOwner(owner))
	if err != nil {
		return 0, err
	}
	for _, d := range docs {
		if err := c.Delete(ctx, (*d).DocID()); err != nil && !errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
	}
	return len(docs), nil
}
