package service

import (
	"context"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// UnspentCalculator derives per-category spend and carry-over eligibility for a period
type UnspentCalculator struct {
	budgetRepo  domain.BudgetRepository
	expenseRepo domain.ExpenseRepository
}

// NewUnspentCalculator creates a new UnspentCalculator
func NewUnspentCalculator(budgetRepo domain.BudgetRepository, expenseRepo domain.ExpenseRepository) *UnspentCalculator {
	return &UnspentCalculator{
		budgetRepo:  budgetRepo,
		expenseRepo: expenseRepo,
	}
}

// Calculate returns one UnspentRecord per budget of the period, in budget fetch order.
// A period without budgets yields an empty result.
func (c *UnspentCalculator) Calculate(ctx context.Context, userID uuid.UUID, period domain.Period) ([]domain.UnspentRecord, error) {
	records, _, err := c.calculate(ctx, userID, period)
	return records, err
}

// calculate also returns the source budgets so the planner can copy their metadata
func (c *UnspentCalculator) calculate(ctx context.Context, userID uuid.UUID, period domain.Period) ([]domain.UnspentRecord, []*domain.Budget, error) {
	budgets, err := c.budgetRepo.GetByPeriod(ctx, userID, period)
	if err != nil {
		return nil, nil, domain.NewStorageError("fetch budgets", err)
	}
	if len(budgets) == 0 {
		return []domain.UnspentRecord{}, budgets, nil
	}

	from, to := period.Bounds()
	expenses, err := c.expenseRepo.GetByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, nil, domain.NewStorageError("fetch expenses", err)
	}

	// Category matching is exact and case-sensitive
	spentByCategory := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		spentByCategory[e.Category] = spentByCategory[e.Category].Add(e.Amount)
	}

	records := make([]domain.UnspentRecord, len(budgets))
	for i, b := range budgets {
		records[i] = newUnspentRecord(b.Category, b.MonthlyLimit, spentByCategory[b.Category])
	}
	return records, budgets, nil
}

func newUnspentRecord(category string, limit, spent decimal.Decimal) domain.UnspentRecord {
	unspent := limit.Sub(spent)
	if unspent.IsNegative() {
		unspent = decimal.Zero
	}

	exactPct := decimal.Zero
	if limit.IsPositive() {
		exactPct = spent.Div(limit).Mul(oneHundred)
	}

	return domain.UnspentRecord{
		Category:             category,
		BudgetLimit:          limit,
		TotalSpent:           spent,
		UnspentAmount:        unspent,
		SpentPercentage:      exactPct.Round(1),
		EligibleForCarryover: unspent.IsPositive() && exactPct.LessThan(oneHundred),
	}
}
