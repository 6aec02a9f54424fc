// Package service — authentication business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/sakif/bookmarks/internal/apperror"
	"github.com/sakif/bookmarks/internal/auth"
	"github.com/sakif/bookmarks/internal/model"
	"github.com/sakif/bookmarks/internal/repository"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// AuthService handles registration, login, identity lookup and token
// refresh. It sits between the HTTP handlers and the user repository,
// delegating token mechanics to auth.TokenService and hashing to
// auth.PasswordService.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// isAlphanumeric reports whether s consists solely of ASCII letters and
// digits. Spaces and punctuation both fail, so the "no spaces" rule is
// implied.
func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// validEmail checks email syntax. net/mail also accepts the
// "Name <addr>" form, so require the parsed address to round-trip to the
// input — a bare address and nothing else.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register validates and creates a new account.
//
// Validation order matches the messages callers see: username shape, then
// username availability, then email shape and availability, then password
// length. The availability pre-checks give precise messages; the UNIQUE
// constraints in the store close the race with concurrent registrations and
// map to the same conflicts.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if len(username) < MinUsernameLength {
		return nil, apperror.ValidationFailed("username", "Username is too short.")
	}
	if !isAlphanumeric(username) {
		return nil, apperror.ValidationFailed("username", "Username should be alphanumeric without spaces.")
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, apperror.Conflict("Username is taken.")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking username availability: %w", err)
	}

	if !validEmail(email) {
		return nil, apperror.ValidationFailed("email", "Email is not valid.")
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("Email is taken.")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking email availability: %w", err)
	}

	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", "Password is too short.")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// LoginResult bundles the authenticated user with both issued tokens.
type LoginResult struct {
	User    *model.User
	Access  string
	Refresh string
}

// Login verifies credentials and issues an access + refresh token pair.
//
// Every failure — unknown email, wrong password — returns the SAME
// unauthorized error. The caller must not be able to probe which emails
// have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	wrongCredentials := apperror.Unauthorized("Wrong credentials.")

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, wrongCredentials
		}
		return nil, fmt.Errorf("looking up user by email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, wrongCredentials
	}

	access, err := s.tokens.GenerateAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return &LoginResult{
		User:    user,
		Access:  access,
		Refresh: refresh,
	}, nil
}

// GetUserByID returns the account for an authenticated id. Backs /auth/me.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user %d: %w", id, err)
	}
	return user, nil
}

// RefreshAccess issues a fresh access token for a user whose refresh token
// the middleware has already validated.
func (s *AuthService) RefreshAccess(ctx context.Context, userID int64) (string, error) {
	// The id comes from a signed token, but verify the account still exists
	// before minting anything for it.
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized("Wrong credentials.")
		}
		return "", fmt.Errorf("fetching user %d: %w", userID, err)
	}

	access, err := s.tokens.GenerateAccess(userID)
	if err != nil {
		return "", fmt.Errorf("generating access token: %w", err)
	}

	return access, nil
}
