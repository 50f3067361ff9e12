// Package service provides the business logic of GophNotes: note access
// control and public sharing, and user registration, delegating persistence
// to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
)

// ErrTokensDisabled is returned by IssueToken when no token issuer is configured.
var ErrTokensDisabled = errors.New("token issuing is disabled")

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// UserExists returns true if a user with the given login exists.
	UserExists(ctx context.Context, login string) (bool, error)
	// RegisterUser creates a new user record with the given login.
	RegisterUser(ctx context.Context, login string) error
}

// TokenIssuer signs bearer tokens for a login.
type TokenIssuer interface {
	Generate(login string) (string, error)
}

// AuthService manages registered users and issues bearer tokens for them.
type AuthService struct {
	repo   AuthRepository
	tokens TokenIssuer
}

// NewAuthService constructs an AuthService. tokens may be nil, in which
// case IssueToken returns ErrTokensDisabled.
func NewAuthService(repo AuthRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{repo: repo, tokens: tokens}
}

// UserExists checks whether a user with the specified login exists.
func (s *AuthService) UserExists(ctx context.Context, login string) (bool, error) {
	return s.repo.UserExists(ctx, login)
}

// RegisterUser records a new user with the given login.
func (s *AuthService) RegisterUser(ctx context.Context, login string) error {
	return s.repo.RegisterUser(ctx, login)
}

// IssueToken returns a bearer token for an existing user.
func (s *AuthService) IssueToken(login string) (string, error) {
	if s.tokens == nil {
		return "", ErrTokensDisabled
	}
	token, err := s.tokens.Generate(login)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
