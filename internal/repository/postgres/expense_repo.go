package postgres

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseRepository implements domain.ExpenseRepository using PostgreSQL
type ExpenseRepository struct {
	pool *pgxpool.Pool
}

// NewExpenseRepository creates a new ExpenseRepository
func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{pool: pool}
}

// GetByDateRange returns the user's expenses dated between from and to, both inclusive
func (r *ExpenseRepository) GetByDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.Expense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, category, amount, expense_date, created_at
		FROM expenses
		WHERE user_id = $1 AND expense_date BETWEEN $2 AND $3
		ORDER BY expense_date, id`,
		uuidToPgUUID(userID), timeToPgDate(from), timeToPgDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]*domain.Expense, 0)
	for rows.Next() {
		var (
			id, uid   pgtype.UUID
			amount    pgtype.Numeric
			date      pgtype.Date
			createdAt pgtype.Timestamptz
			e         domain.Expense
		)
		if err := rows.Scan(&id, &uid, &e.Category, &amount, &date, &createdAt); err != nil {
			return nil, err
		}
		e.ID = pgUUIDToUUID(id)
		e.UserID = pgUUIDToUUID(uid)
		e.Amount = pgNumericToDecimal(amount)
		e.Date = date.Time
		e.CreatedAt = createdAt.Time
		expenses = append(expenses, &e)
	}
	return expenses, rows.Err()
}
