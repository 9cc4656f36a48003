package service

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/google/uuid"
)

// StaticIdentity always resolves to the same user
type StaticIdentity uuid.UUID

// CurrentUserID implements domain.IdentityProvider
func (s StaticIdentity) CurrentUserID(ctx context.Context) (uuid.UUID, error) {
	id := uuid.UUID(s)
	if id == uuid.Nil {
		return uuid.Nil, domain.ErrNotAuthenticated
	}
	return id, nil
}
