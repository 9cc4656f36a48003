package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget is a user's spending limit for one category in one period.
// The (user, category, month, year) tuple is unique.
type Budget struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"userId"`
	Category       string          `json:"category"`
	MonthlyLimit   decimal.Decimal `json:"monthlyLimit"`
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	CategoryType   string          `json:"categoryType"`
	RecurrenceType string          `json:"recurrenceType"`
	WorkdayCount   *int            `json:"workdayCount,omitempty"`
	Grouping       *string         `json:"grouping,omitempty"`
	AutoCalculate  bool            `json:"autoCalculate"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Period returns the period the budget is scoped to
func (b *Budget) Period() Period {
	return Period{Month: b.Month, Year: b.Year}
}

// CopyForPeriod returns a new budget row for target carrying all non-financial
// metadata of b and the given limit.
func (b *Budget) CopyForPeriod(target Period, limit decimal.Decimal) *Budget {
	copied := &Budget{
		UserID:         b.UserID,
		Category:       b.Category,
		MonthlyLimit:   limit,
		Month:          target.Month,
		Year:           target.Year,
		CategoryType:   b.CategoryType,
		RecurrenceType: b.RecurrenceType,
		AutoCalculate:  b.AutoCalculate,
	}
	if b.WorkdayCount != nil {
		wc := *b.WorkdayCount
		copied.WorkdayCount = &wc
	}
	if b.Grouping != nil {
		g := *b.Grouping
		copied.Grouping = &g
	}
	return copied
}

// BudgetRepository is the storage collaborator for budgets
type BudgetRepository interface {
	GetByPeriod(ctx context.Context, userID uuid.UUID, period Period) ([]*Budget, error)
	// GetByCategory returns ErrBudgetNotFound when no row exists for the tuple
	GetByCategory(ctx context.Context, userID uuid.UUID, category string, period Period) (*Budget, error)
	Create(ctx context.Context, budget *Budget) (*Budget, error)
	UpdateLimit(ctx context.Context, userID, id uuid.UUID, limit decimal.Decimal) (*Budget, error)
}
