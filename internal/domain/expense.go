package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a logged spend. The rollover engine only reads expenses.
type Expense struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ExpenseRepository interface {
	// GetByDateRange returns expenses dated within [from, to], both days inclusive
	GetByDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*Expense, error)
}
