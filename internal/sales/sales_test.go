package sales

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopdesk/shopdesk/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBounds(t *testing.T) {
	// Wednesday
	now := time.Date(2024, time.March, 13, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		period   Period
		from, to time.Time
	}{
		{PeriodDaily, date(2024, 3, 13), date(2024, 3, 14)},
		{PeriodWeekly, date(2024, 3, 10), date(2024, 3, 17)},
		{PeriodMonthly, date(2024, 3, 1), date(2024, 4, 1)},
		{PeriodYearly, date(2024, 1, 1), date(2025, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			r, err := tt.period.Bounds(now, time.Time{}, time.Time{})
			if err != nil {
				t.Fatalf("bounds: %v", err)
			}
			if !r.From.Equal(tt.from) || !r.To.Equal(tt.to) {
				t.Errorf("got [%v, %v), want [%v, %v)", r.From, r.To, tt.from, tt.to)
			}
		})
	}
}

func TestCustomBounds(t *testing.T) {
	r, err := PeriodCustom.Bounds(time.Now(), date(2024, 2, 1), time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if !r.To.Equal(date(2024, 3, 1)) {
		t.Errorf("custom range should include the last day, got %v", r.To)
	}

	if _, err := PeriodCustom.Bounds(time.Now(), date(2024, 3, 2), date(2024, 3, 1)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := PeriodCustom.Bounds(time.Now(), time.Time{}, date(2024, 3, 1)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange for missing start, got %v", err)
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod(""); err != nil || p != PeriodAll {
		t.Errorf("empty should mean all, got %q %v", p, err)
	}
	if p, err := ParsePeriod(" Weekly "); err != nil || p != PeriodWeekly {
		t.Errorf("got %q %v", p, err)
	}
	if _, err := ParsePeriod("hourly"); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestSummarize(t *testing.T) {
	r := Range{From: date(2024, 3, 1), To: date(2024, 4, 1)}
	orders := []domain.Order{
		{ID: "a", IsPaid: true, Total: decimal.RequireFromString("100.10"), CreatedAt: date(2024, 3, 5)},
		{ID: "b", IsPaid: false, Total: decimal.RequireFromString("50"), CreatedAt: date(2024, 3, 6)},
		{ID: "c", IsPaid: true, Total: decimal.RequireFromString("0.20"), CreatedAt: date(2024, 3, 31)},
		{ID: "d", IsPaid: true, Total: decimal.RequireFromString("9"), CreatedAt: date(2024, 4, 1)},
	}

	s := Summarize(orders, r)
	if s.Count != 2 {
		t.Errorf("expected 2 paid orders in range, got %d", s.Count)
	}
	if !s.Total.Equal(decimal.RequireFromString("100.30")) {
		t.Errorf("expected 100.30, got %s", s.Total)
	}

	all := Summarize(orders, Range{})
	if all.Count != 3 {
		t.Errorf("open range should count every paid order, got %d", all.Count)
	}
}
