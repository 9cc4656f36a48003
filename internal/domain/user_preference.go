package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PreferenceTypeBudgetReset keys the rollover settings document
const PreferenceTypeBudgetReset = "budget_reset"

// UserPreference is a typed JSON document stored per (user, preference type)
type UserPreference struct {
	UserID         uuid.UUID       `json:"userId"`
	PreferenceType string          `json:"preferenceType"`
	Payload        json.RawMessage `json:"payload"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type UserPreferenceRepository interface {
	// Get returns ErrPreferenceNotFound when the user has no document of that type
	Get(ctx context.Context, userID uuid.UUID, preferenceType string) (*UserPreference, error)
	Upsert(ctx context.Context, userID uuid.UUID, preferenceType string, payload json.RawMessage) error
	ListByType(ctx context.Context, preferenceType string) ([]*UserPreference, error)
}
