package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserPreferenceRepository implements domain.UserPreferenceRepository using PostgreSQL
type UserPreferenceRepository struct {
	pool *pgxpool.Pool
}

// NewUserPreferenceRepository creates a new UserPreferenceRepository
func NewUserPreferenceRepository(pool *pgxpool.Pool) *UserPreferenceRepository {
	return &UserPreferenceRepository{pool: pool}
}

// Get returns the preference document of the given type
func (r *UserPreferenceRepository) Get(ctx context.Context, userID uuid.UUID, preferenceType string) (*domain.UserPreference, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, preference_type, payload, updated_at
		FROM user_preferences
		WHERE user_id = $1 AND preference_type = $2`,
		uuidToPgUUID(userID), preferenceType)

	pref, err := scanUserPreference(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPreferenceNotFound
		}
		return nil, err
	}
	return pref, nil
}

// Upsert stores the document, replacing any existing one for (user, type)
func (r *UserPreferenceRepository) Upsert(ctx context.Context, userID uuid.UUID, preferenceType string, payload json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_preferences (user_id, preference_type, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, preference_type)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		uuidToPgUUID(userID), preferenceType, []byte(payload))
	return err
}

// ListByType returns every document of the given type
func (r *UserPreferenceRepository) ListByType(ctx context.Context, preferenceType string) ([]*domain.UserPreference, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, preference_type, payload, updated_at
		FROM user_preferences
		WHERE preference_type = $1
		ORDER BY user_id`,
		preferenceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make([]*domain.UserPreference, 0)
	for rows.Next() {
		pref, err := scanUserPreference(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}
	return prefs, rows.Err()
}

func scanUserPreference(row pgx.Row) (*domain.UserPreference, error) {
	var (
		userID    pgtype.UUID
		payload   []byte
		updatedAt pgtype.Timestamptz
		pref      domain.UserPreference
	)
	if err := row.Scan(&userID, &pref.PreferenceType, &payload, &updatedAt); err != nil {
		return nil, err
	}
	pref.UserID = pgUUIDToUUID(userID)
	pref.Payload = json.RawMessage(payload)
	pref.UpdatedAt = updatedAt.Time
	return &pref, nil
}
