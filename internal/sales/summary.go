package sales

import (
	"github.com/shopspring/decimal"

	"github.com/shopdesk/shopdesk/internal/domain"
)

type Summary struct {
	Count  int
	Total  decimal.Decimal
	Orders []domain.Order
}

// Summarize totals the paid orders that fall inside r. Unpaid orders are
// ignored even when the server returned them.
func Summarize(orders []domain.Order, r Range) Summary {
	s := Summary{Total: decimal.Zero}
	for _, o := range orders {
		if !o.IsPaid {
			continue
		}
		if !o.CreatedAt.IsZero() && !r.Contains(o.CreatedAt) {
			continue
		}
		s.Count++
		s.Total = s.Total.Add(o.Total)
		s.Orders = append(s.Orders, o)
	}
	return s
}
