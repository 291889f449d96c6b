package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bughive/bughive-server/internal/auth"
	"github.com/bughive/bughive-server/internal/domain"
	domainerrors "github.com/bughive/bughive-server/internal/errors"
	"github.com/bughive/bughive-server/internal/id"
	"github.com/bughive/bughive-server/internal/metrics"
	"github.com/bughive/bughive-server/internal/store"
	"github.com/bughive/bughive-server/internal/validation"
)

const minPasswordLength = 6

// Reasons reported to metrics when a credential is rejected.
const (
	reasonInvalidCredentials = "invalid_credentials"
	reasonTokenMissing       = "token_missing"
	reasonTokenInvalid       = "token_invalid"
	reasonTokenExpired       = "token_expired"
	reasonUserGone           = "user_not_found"
)

// RegisterRequest is the body of POST /api/users.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

// AuthService handles registration, login and bearer token resolution.
type AuthService struct {
	store     store.Store
	tokens    auth.TokenIssuer
	validator *validation.Validator
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service. rec may be nil.
func NewAuthService(
	store store.Store,
	tokens auth.TokenIssuer,
	validator *validation.Validator,
	rec metrics.Recorder,
	logger *slog.Logger,
) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{
		store:     store,
		tokens:    tokens,
		validator: validator,
		metrics:   rec,
		logger:    logger,
	}
}

// checkPassword runs before any other validation so a short password is
// always the reported failure.
func checkPassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return domainerrors.Validationf("password must be at least %d characters long", minPasswordLength)
	}
	return nil
}

// Register creates an account. Username and email must be unique after
// normalization; the password is stored as an argon2id hash.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *domain.User
	err = s.store.Update(ctx, func(tx store.Tx) error {
		if err := checkIdentityFree(ctx, tx, req.Username, req.Email, ""); err != nil {
			return err
		}
		user := &domain.User{
			ID:           id.New(),
			Username:     req.Username,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: passwordHash,
			Bugs:         []string{},
			Tags:         []string{},
		}
		if err := tx.Users().Insert(ctx, user); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	if s.logger != nil {
		s.logger.Info("User registered", "user_id", created.ID, "username", created.Username)
	}
	return created, nil
}

// dummyHash is verified against when the email is unknown so that both
// failure paths cost one hash computation.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("bughive-timing-equalizer")
	return h
})

// Login checks credentials and issues an access token. Unknown email and
// wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.Users().GetByEmail(ctx, strings.TrimSpace(req.Email))
		return err
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash := dummyHash()
	if user != nil {
		hash = user.PasswordHash
	}
	valid, err := auth.VerifyPassword(hash, req.Password)
	if err != nil && user != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if user == nil || !valid {
		s.metrics.RecordAuthFailure(reasonInvalidCredentials)
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, req.Password)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User logged in", "user_id", user.ID)
	}
	return &LoginResponse{Token: token, ID: user.ID}, nil
}

// upgradeHash replaces a legacy bcrypt hash after a successful login.
// Failure only costs another upgrade attempt next time.
func (s *AuthService) upgradeHash(ctx context.Context, userID, password string) {
	newHash, err := auth.HashPassword(password)
	if err == nil {
		err = s.store.Update(ctx, func(tx store.Tx) error {
			user, err := tx.Users().Get(ctx, userID)
			if err != nil {
				return err
			}
			user.PasswordHash = newHash
			return tx.Users().Replace(ctx, user)
		})
	}
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Warn("Failed to upgrade password hash", "user_id", userID, "error", err)
		return
	}
	s.logger.Info("Upgraded legacy password hash", "user_id", userID)
}

// Authenticate resolves the user behind an Authorization header.
func (s *AuthService) Authenticate(ctx context.Context, header string) (*domain.User, error) {
	token, ok := auth.ExtractBearer(header)
	if !ok {
		s.metrics.RecordAuthFailure(reasonTokenMissing)
		return nil, domainerrors.Unauthorized("token missing")
	}

	claims, err := s.tokens.Verify(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		s.metrics.RecordAuthFailure(reasonTokenExpired)
		return nil, domainerrors.TokenExpired("token expired")
	case err != nil:
		s.metrics.RecordAuthFailure(reasonTokenInvalid)
		return nil, domainerrors.Unauthorized("invalid token").WithCause(err)
	}

	var user *domain.User
	err = s.store.View(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.Users().Get(ctx, claims.UserID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.RecordAuthFailure(reasonUserGone)
		return nil, domainerrors.Unauthorized("invalid token")
	}
	if err != nil {
		return nil, fmt.Errorf("load token user: %w", err)
	}
	return user, nil
}

// checkIdentityFree rejects a username or email used by another account.
func checkIdentityFree(ctx context.Context, tx store.Tx, username, email, self string) error {
	other, err := tx.Users().GetByUsername(ctx, username)
	if err == nil && other.ID != self {
		return domainerrors.Validation("username must be unique")
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check username: %w", err)
	}

	other, err = tx.Users().GetByEmail(ctx, email)
	if err == nil && other.ID != self {
		return domainerrors.Validation("email must be unique")
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}
