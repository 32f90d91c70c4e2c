package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/revforge/revforge/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	logger *slog.Logger
	repo   Repository
	tokens *TokenStore
}

// NewService constructs a new Service.
func NewService(logger *slog.Logger, repo Repository, tokens *TokenStore) *Service {
	return &Service{logger: logger, repo: repo, tokens: tokens}
}

// RegisterInput carries a new account's details.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account and signs it in, returning the user and a
// bearer token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return User{}, "", fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	if len(in.Password) < 8 {
		return User{}, "", fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
	})
	if err != nil {
		return User{}, "", err
	}

	token, err := s.tokens.Issue(ctx, identityOf(user))
	if err != nil {
		return User{}, "", err
	}
	s.logger.Info("user registered", slog.Int64("user_id", user.ID))
	return user, token, nil
}

// Login validates credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return User{}, "", shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, "", shared.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(ctx, identityOf(user))
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// Logout revokes the caller's token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Resolve maps a bearer token back to an identity.
func (s *Service) Resolve(ctx context.Context, token string) (shared.Identity, error) {
	return s.tokens.Resolve(ctx, token)
}

func identityOf(u User) shared.Identity {
	return shared.Identity{UserID: u.ID, Email: u.Email, IsStaff: u.IsStaff}
}
