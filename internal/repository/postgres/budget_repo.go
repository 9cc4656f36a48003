package postgres

import (
	"context"
	"errors"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const budgetColumns = `id, user_id, category, monthly_limit, month, year, category_type,
	recurrence_type, workday_count, budget_group, auto_calculate, created_at, updated_at`

// BudgetRepository implements domain.BudgetRepository using PostgreSQL
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new BudgetRepository
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

// GetByPeriod returns the user's budgets for one month in creation order
func (r *BudgetRepository) GetByPeriod(ctx context.Context, userID uuid.UUID, period domain.Period) ([]*domain.Budget, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE user_id = $1 AND month = $2 AND year = $3
		ORDER BY created_at, id`,
		uuidToPgUUID(userID), int32(period.Month), int32(period.Year))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := make([]*domain.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// GetByCategory returns the budget for (user, category, month, year)
func (r *BudgetRepository) GetByCategory(ctx context.Context, userID uuid.UUID, category string, period domain.Period) (*domain.Budget, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE user_id = $1 AND category = $2 AND month = $3 AND year = $4`,
		uuidToPgUUID(userID), category, int32(period.Month), int32(period.Year))

	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return b, nil
}

// Create inserts a new budget row
func (r *BudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	limit, err := decimalToPgNumeric(budget.MonthlyLimit)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO budgets (user_id, category, monthly_limit, month, year, category_type,
			recurrence_type, workday_count, budget_group, auto_calculate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+budgetColumns,
		uuidToPgUUID(budget.UserID),
		budget.Category,
		limit,
		int32(budget.Month),
		int32(budget.Year),
		budget.CategoryType,
		budget.RecurrenceType,
		intPtrToPgInt4(budget.WorkdayCount),
		stringPtrToPgText(budget.Grouping),
		budget.AutoCalculate,
	)
	return scanBudget(row)
}

// UpdateLimit replaces the monthly limit of an existing budget
func (r *BudgetRepository) UpdateLimit(ctx context.Context, userID, id uuid.UUID, limit decimal.Decimal) (*domain.Budget, error) {
	num, err := decimalToPgNumeric(limit)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE budgets
		SET monthly_limit = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+budgetColumns,
		uuidToPgUUID(id), uuidToPgUUID(userID), num)

	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return b, nil
}

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var (
		id, userID   pgtype.UUID
		limit        pgtype.Numeric
		month, year  int32
		workdayCount pgtype.Int4
		grouping     pgtype.Text
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
		b            domain.Budget
	)
	err := row.Scan(
		&id, &userID, &b.Category, &limit, &month, &year, &b.CategoryType,
		&b.RecurrenceType, &workdayCount, &grouping, &b.AutoCalculate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ID = pgUUIDToUUID(id)
	b.UserID = pgUUIDToUUID(userID)
	b.MonthlyLimit = pgNumericToDecimal(limit)
	b.Month = int(month)
	b.Year = int(year)
	b.WorkdayCount = pgInt4ToIntPtr(workdayCount)
	b.Grouping = pgTextToStringPtr(grouping)
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time
	return &b, nil
}
