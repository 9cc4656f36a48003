package postgres

import (
	"context"
	"errors"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByAuth0ID retrieves a user by their Auth0 ID
func (r *UserRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, auth0_id, email, name, created_at, updated_at
		FROM users
		WHERE auth0_id = $1`,
		auth0ID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// CreateOrGetByAuth0ID creates the user on first login, or refreshes email/name
func (r *UserRepository) CreateOrGetByAuth0ID(ctx context.Context, auth0ID, email string, name *string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (auth0_id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (auth0_id)
		DO UPDATE SET email = EXCLUDED.email, name = COALESCE(EXCLUDED.name, users.name), updated_at = NOW()
		RETURNING id, auth0_id, email, name, created_at, updated_at`,
		auth0ID, email, stringPtrToPgText(name))
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		id        pgtype.UUID
		name      pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		user      domain.User
	)
	if err := row.Scan(&id, &user.Auth0ID, &user.Email, &name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	user.ID = pgUUIDToUUID(id)
	user.Name = pgTextToStringPtr(name)
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}
