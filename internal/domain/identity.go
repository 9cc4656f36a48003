package domain

import (
	"context"

	"github.com/google/uuid"
)

// IdentityProvider resolves the user on whose behalf an operation runs.
// Implementations return ErrNotAuthenticated when no user is available.
type IdentityProvider interface {
	CurrentUserID(ctx context.Context) (uuid.UUID, error)
}
