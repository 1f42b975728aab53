package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/miorah/storefront/internal/repository"
	"github.com/miorah/storefront/internal/token"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService owns login, registration and the token lifecycle on the
// server side.
type AuthService struct {
	users  repository.UserRepository
	tokens *token.Manager
	logger zerolog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *token.Manager, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (string, *repository.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	user := &repository.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", nil, err
	}

	tok, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}

	return tok, user, nil
}

// Login checks credentials and issues a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *repository.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}

	return tok, user, nil
}

// Profile returns the account behind an already-verified user id.
func (s *AuthService) Profile(ctx context.Context, userID string) (*repository.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Refresh rotates the presented token, revoking the old one.
func (s *AuthService) Refresh(ctx context.Context, oldToken string) (string, error) {
	return s.tokens.Refresh(ctx, oldToken)
}

// Logout blacklists the token. Idempotent: revoking twice is fine.
func (s *AuthService) Logout(ctx context.Context, tok string) error {
	if err := s.tokens.Revoke(ctx, tok); err != nil {
		s.logger.Warn().Err(err).Msg("token revoke failed")
		return err
	}
	return nil
}
