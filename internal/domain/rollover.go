package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxRolloverHistory is the number of rollover records kept per user
const MaxRolloverHistory = 12

// UnspentRecord is the derived spend summary of one source-period budget
type UnspentRecord struct {
	Category             string          `json:"category"`
	BudgetLimit          decimal.Decimal `json:"budgetLimit"`
	TotalSpent           decimal.Decimal `json:"totalSpent"`
	UnspentAmount        decimal.Decimal `json:"unspentAmount"`
	SpentPercentage      decimal.Decimal `json:"spentPercentage"`
	EligibleForCarryover bool            `json:"eligibleForCarryover"`
}

// RolloverPlan is the computed carry-over for one category
type RolloverPlan struct {
	Category            string          `json:"category"`
	OriginalLimit       decimal.Decimal `json:"originalLimit"`
	CarriedOverAmount   decimal.Decimal `json:"carriedOverAmount"`
	NewLimit            decimal.Decimal `json:"newLimit"`
	UnspentFromPrevious decimal.Decimal `json:"unspentFromPrevious"`
}

// SkipReason explains why a category carries nothing forward
type SkipReason string

const (
	SkipReasonNotSelected SkipReason = "not selected"
	SkipReasonNoUnspent   SkipReason = "no unspent amount"
	SkipReasonCapIsZero   SkipReason = "carry-over cap is zero"
)

// SkippedCategory is a plan line that carries nothing forward
type SkippedCategory struct {
	RolloverPlan
	Reason SkipReason `json:"reason"`
}

// RolloverRequest holds the inputs shared by preview and execute
type RolloverRequest struct {
	Source                 Period          `json:"sourcePeriod"`
	Target                 Period          `json:"targetPeriod"`
	CarryOverCategories    []string        `json:"carryOverCategories"`
	MaxCarryOverPercentage decimal.Decimal `json:"maxCarryOverPercentage"`
}

// RolloverPreview is the side-effect free result of planning a rollover
type RolloverPreview struct {
	Source                     Period            `json:"sourcePeriod"`
	Target                     Period            `json:"targetPeriod"`
	CategoriesWithCarryover    []RolloverPlan    `json:"categoriesWithCarryover"`
	CategoriesWithoutCarryover []SkippedCategory `json:"categoriesWithoutCarryover"`
	TotalCarryOverAmount       decimal.Decimal   `json:"totalCarryOverAmount"`
}

// RolloverResult is the outcome of an execute run. Failures is non-empty only
// when some categories could not be written.
type RolloverResult struct {
	Source                 Period            `json:"sourcePeriod"`
	Target                 Period            `json:"targetPeriod"`
	CopiedBudgets          int               `json:"copiedBudgets"`
	TotalCarriedOverAmount decimal.Decimal   `json:"totalCarriedOverAmount"`
	Details                []RolloverPlan    `json:"details"`
	Failures               []CategoryFailure `json:"errors,omitempty"`
	Record                 RolloverRecord    `json:"record"`
}

// RolloverRecord is one entry of the rollover history
type RolloverRecord struct {
	ResetDate           time.Time       `json:"resetDate"`
	SourcePeriod        Period          `json:"sourcePeriod"`
	TargetPeriod        Period          `json:"targetPeriod"`
	TotalCarriedOver    decimal.Decimal `json:"totalCarriedOver"`
	CategoriesCount     int             `json:"categoriesCount"`
	CarryOverCategories []string        `json:"carryOverCategories"`
}

// RolloverSettings are the per-user rollover preferences
type RolloverSettings struct {
	AutoResetEnabled       bool             `json:"autoResetEnabled"`
	ResetDay               int              `json:"resetDay"`
	CarryOverEnabled       bool             `json:"carryOverEnabled"`
	CarryOverCategories    []string         `json:"carryOverCategories"`
	MaxCarryOverPercentage decimal.Decimal  `json:"maxCarryOverPercentage"`
	History                []RolloverRecord `json:"history"`
}

// DefaultCarryOverCategories is the opt-in list a new user starts with
var DefaultCarryOverCategories = []string{
	"Food & Dining",
	"Groceries",
	"Transportation",
	"Entertainment",
	"Shopping",
	"Personal Care",
}

// DefaultRolloverSettings returns the settings used when a user has none stored
func DefaultRolloverSettings() RolloverSettings {
	categories := make([]string, len(DefaultCarryOverCategories))
	copy(categories, DefaultCarryOverCategories)
	return RolloverSettings{
		AutoResetEnabled:       false,
		ResetDay:               1,
		CarryOverEnabled:       true,
		CarryOverCategories:    categories,
		MaxCarryOverPercentage: decimal.NewFromInt(50),
		History:                []RolloverRecord{},
	}
}

// AppendHistory adds record as the most recent entry and drops the oldest
// entries beyond MaxRolloverHistory.
func (s *RolloverSettings) AppendHistory(record RolloverRecord) {
	s.History = append(s.History, record)
	if len(s.History) > MaxRolloverHistory {
		s.History = append([]RolloverRecord(nil), s.History[len(s.History)-MaxRolloverHistory:]...)
	}
}

// HasRolloverInto reports whether history contains a rollover targeting period
func (s *RolloverSettings) HasRolloverInto(period Period) bool {
	for _, r := range s.History {
		if r.TargetPeriod.Equal(period) {
			return true
		}
	}
	return false
}
