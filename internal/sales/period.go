// Package sales summarizes paid orders over a reporting period.
package sales

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Period string

const (
	PeriodAll     Period = "all"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
	PeriodCustom  Period = "custom"
)

var ErrInvalidRange = errors.New("invalid date range")

func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Range is the half-open interval [From, To). Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Bounds resolves p against now in now's location. Weeks start on Sunday.
// For PeriodCustom, from and to are taken as calendar days and the range
// covers both of them in full.
func (p Period) Bounds(now, from, to time.Time) (Range, error) {
	day := startOfDay(now)
	switch p {
	case PeriodAll, "":
		return Range{}, nil
	case PeriodDaily:
		return Range{From: day, To: day.AddDate(0, 0, 1)}, nil
	case PeriodWeekly:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return Range{From: start, To: start.AddDate(0, 0, 7)}, nil
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Range{From: start, To: start.AddDate(0, 1, 0)}, nil
	case PeriodYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Range{From: start, To: start.AddDate(1, 0, 0)}, nil
	case PeriodCustom:
		if from.IsZero() || to.IsZero() {
			return Range{}, fmt.Errorf("%w: custom period needs both dates", ErrInvalidRange)
		}
		start, end := startOfDay(from), startOfDay(to).AddDate(0, 0, 1)
		if !start.Before(end) {
			return Range{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from.Format("2006-01-02"), to.Format("2006-01-02"))
		}
		return Range{From: start, To: end}, nil
	}
	return Range{}, fmt.Errorf("unknown period %q", string(p))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
