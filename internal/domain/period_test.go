package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPeriodValidate(t *testing.T) {
	tests := []struct {
		name    string
		period  Period
		wantErr bool
	}{
		{"valid january", Period{Month: 1, Year: 2024}, false},
		{"valid december", Period{Month: 12, Year: 2020}, false},
		{"month zero", Period{Month: 0, Year: 2024}, true},
		{"month thirteen", Period{Month: 13, Year: 2024}, true},
		{"year before minimum", Period{Month: 5, Year: 2019}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.period.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPeriod) {
					t.Errorf("expected ErrInvalidPeriod, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestPeriodBounds(t *testing.T) {
	tests := []struct {
		period    Period
		wantStart time.Time
		wantEnd   time.Time
	}{
		{Period{Month: 2, Year: 2024}, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{Period{Month: 2, Year: 2025}, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{Period{Month: 12, Year: 2025}, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			start, end := tt.period.Bounds()
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
		})
	}
}

func TestPeriodNextPrevious(t *testing.T) {
	dec := Period{Month: 12, Year: 2025}
	if next := dec.Next(); !next.Equal(Period{Month: 1, Year: 2026}) {
		t.Errorf("expected 2026-01, got %s", next)
	}
	jan := Period{Month: 1, Year: 2026}
	if prev := jan.Previous(); !prev.Equal(dec) {
		t.Errorf("expected 2025-12, got %s", prev)
	}
	if s := (Period{Month: 3, Year: 2026}).String(); s != "2026-03" {
		t.Errorf("expected 2026-03, got %s", s)
	}
}

func TestAppendHistory_KeepsMostRecent(t *testing.T) {
	settings := DefaultRolloverSettings()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		settings.AppendHistory(RolloverRecord{
			ResetDate:        base.AddDate(0, i, 0),
			TotalCarriedOver: decimal.NewFromInt(int64(i)),
		})
	}

	if len(settings.History) != MaxRolloverHistory {
		t.Fatalf("expected %d history entries, got %d", MaxRolloverHistory, len(settings.History))
	}
	if !settings.History[0].ResetDate.Equal(base.AddDate(0, 3, 0)) {
		t.Errorf("expected oldest retained entry to be the 4th appended, got %v", settings.History[0].ResetDate)
	}
	if !settings.History[11].ResetDate.Equal(base.AddDate(0, 14, 0)) {
		t.Errorf("expected newest entry last, got %v", settings.History[11].ResetDate)
	}
}

func TestBudgetCopyForPeriod(t *testing.T) {
	workdays := 22
	grouping := "essentials"
	src := &Budget{
		Category:       "Coffee",
		MonthlyLimit:   decimal.NewFromInt(100),
		Month:          1,
		Year:           2026,
		CategoryType:   "expense",
		RecurrenceType: "workday",
		WorkdayCount:   &workdays,
		Grouping:       &grouping,
		AutoCalculate:  true,
	}

	copied := src.CopyForPeriod(Period{Month: 2, Year: 2026}, decimal.NewFromInt(150))

	if copied.Month != 2 || copied.Year != 2026 {
		t.Errorf("expected period 2026-02, got %d-%d", copied.Year, copied.Month)
	}
	if !copied.MonthlyLimit.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected limit 150, got %s", copied.MonthlyLimit)
	}
	if copied.RecurrenceType != "workday" || copied.CategoryType != "expense" || !copied.AutoCalculate {
		t.Errorf("metadata not copied: %+v", copied)
	}
	if copied.WorkdayCount == src.WorkdayCount || *copied.WorkdayCount != 22 {
		t.Errorf("expected workday count deep-copied")
	}
	if copied.Grouping == nil || *copied.Grouping != "essentials" {
		t.Errorf("expected grouping copied")
	}
}
