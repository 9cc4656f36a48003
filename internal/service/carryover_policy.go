package service

import (
	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/shopspring/decimal"
)

// CarryOverAmount returns how much of record's unspent balance rolls forward.
// The cap is a percentage of the original budget limit, not of the unspent amount,
// and is truncated to cents so the result never exceeds it.
func CarryOverAmount(record domain.UnspentRecord, optedIn bool, maxCarryOverPercentage decimal.Decimal) decimal.Decimal {
	if !optedIn || !record.EligibleForCarryover || !maxCarryOverPercentage.IsPositive() {
		return decimal.Zero
	}

	limitCap := record.BudgetLimit.Mul(maxCarryOverPercentage).Div(oneHundred).Truncate(2)
	return decimal.Min(record.UnspentAmount, limitCap)
}

// skipReason explains a zero carry-over for a plan line
func skipReason(record domain.UnspentRecord, optedIn bool) domain.SkipReason {
	switch {
	case !optedIn:
		return domain.SkipReasonNotSelected
	case !record.EligibleForCarryover:
		return domain.SkipReasonNoUnspent
	default:
		return domain.SkipReasonCapIsZero
	}
}

// ValidatePercentage checks a carry-over cap lies within [0, 100]
func ValidatePercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(oneHundred) {
		return domain.ErrInvalidPercentage
	}
	return nil
}
