package domain

import (
	"fmt"
	"time"
)

// MinPeriodYear is the earliest year budgets can be scoped to
const MinPeriodYear = 2020

// Period is a (month, year) pair scoping budgets and expenses
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// NewPeriod creates a validated Period
func NewPeriod(year, month int) (Period, error) {
	p := Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// Validate checks month is 1-12 and year is not before MinPeriodYear
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, p.Month)
	}
	if p.Year < MinPeriodYear {
		return fmt.Errorf("%w: year %d before %d", ErrInvalidPeriod, p.Year, MinPeriodYear)
	}
	return nil
}

// Bounds returns the first and last calendar day of the period (both inclusive, UTC)
func (p Period) Bounds() (time.Time, time.Time) {
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// Next returns the following month
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// Previous returns the preceding month
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// Equal reports whether both periods name the same month
func (p Period) Equal(other Period) bool {
	return p.Month == other.Month && p.Year == other.Year
}

// String formats the period as YYYY-MM
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
