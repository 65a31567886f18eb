package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format accepted and returned by the API.
const DateLayout = "2006-01-02"

// MonthLayout identifies a bill month in filters.
const MonthLayout = "2006-01"

// CurrencyPlaces is the number of decimal places kept for money.
const CurrencyPlaces = 2

// Round2 rounds half away from zero to two decimal places, which is
// half-up for the non-negative amounts handled here.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// DateOnly drops the clock part and pins the date to UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

// ParseDate parses a YYYY-MM-DD date. An RFC3339 timestamp is accepted too
// and yields the calendar date written in its own offset.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return DateOnly(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, value)
}

// ParseMonth parses a YYYY-MM month into its first day.
func ParseMonth(value string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidInput, value)
	}
	return t, nil
}

// Period is an inclusive range of calendar dates.
type Period struct {
	From time.Time `json:"periodFrom"`
	To   time.Time `json:"periodTo"`
}

// NewBillingPeriod builds the billing window for a request. From is moved
// back to the first day of its month so that a bill always starts on a
// month boundary; To is kept as requested.
func NewBillingPeriod(from, to time.Time) (Period, error) {
	from, to = DateOnly(from), DateOnly(to)
	if from.IsZero() || to.IsZero() {
		return Period{}, fmt.Errorf("%w: periodFrom and periodTo are required", ErrInvalidPeriod)
	}
	if to.Before(from) {
		return Period{}, fmt.Errorf("%w: periodTo %s is before periodFrom %s", ErrInvalidPeriod, to.Format(DateLayout), from.Format(DateLayout))
	}
	return Period{From: MonthStart(from), To: to}, nil
}

// BillMonth is the month a bill for this period is filed under.
func (p Period) BillMonth() time.Time {
	return MonthStart(p.From)
}

// Contains reports whether the date falls inside the period.
func (p Period) Contains(t time.Time) bool {
	t = DateOnly(t)
	return !t.Before(p.From) && !t.After(p.To)
}

// PreviousMonth returns the full calendar month before now.
func PreviousMonth(now time.Time) Period {
	start := MonthStart(now).AddDate(0, -1, 0)
	return Period{From: start, To: MonthEnd(start)}
}
