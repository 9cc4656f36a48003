package service

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuthService maps Auth0 identities to local users
type AuthService struct {
	userRepo domain.UserRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// ResolveUser returns the local user for an Auth0 subject, creating it on first sight
func (s *AuthService) ResolveUser(ctx context.Context, auth0ID, email string, name *string) (*domain.User, error) {
	if auth0ID == "" {
		return nil, domain.ErrNotAuthenticated
	}

	user, err := s.userRepo.CreateOrGetByAuth0ID(ctx, auth0ID, email, name)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to create or get user")
		return nil, err
	}
	return user, nil
}

// GetUserIDByAuth0ID looks up an existing user without creating one
func (s *AuthService) GetUserIDByAuth0ID(ctx context.Context, auth0ID string) (uuid.UUID, error) {
	user, err := s.userRepo.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}
