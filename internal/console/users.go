package console

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shopdesk/shopdesk/internal/api"
	"github.com/shopdesk/shopdesk/internal/domain"
	"github.com/shopdesk/shopdesk/internal/sales"
)

const (
	dateLayout    = "2006-01-02"
	orderPageSize = 100
	orderFetchers = 4
	maxOrderPages = 50
)

func newUsersCmd(a *App) *cobra.Command {
	svc := func() crud[domain.UserProfile] { return a.client.Users() }
	subs := resourceCmds(a, "user", svc, renderUsers, func(w io.Writer, p domain.UserProfile) { printProfile(w, p) })
	return groupCmd("users", "Look up and remove platform users", subs...)
}

func renderUsers(w io.Writer, items []domain.UserProfile) error {
	t := newTable(w, "ID", "NAME", "EMAIL", "ROLE", "STATUS")
	for _, u := range items {
		status := string(u.Status)
		if status == "" {
			status = "-"
		}
		t.row(u.ID, u.Name, u.Email, u.Role, status)
	}
	return t.flush()
}

func parseDate(label, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must look like %s, got %q", label, dateLayout, s)
	}
	return t, nil
}

func newOrdersCmd(a *App) *cobra.Command {
	var (
		lf       listFlags
		paid     bool
		from, to string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			f := api.OrderFilter{ListParams: lf.params(), PaidOnly: paid}
			var err error
			if f.From, err = parseDate("--from", from); err != nil {
				return err
			}
			if f.To, err = parseDate("--to", to); err != nil {
				return err
			}
			if !f.To.IsZero() {
				f.To = f.To.AddDate(0, 0, 1)
			}

			page, err := a.client.Orders().List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(page.Items) == 0 {
				a.printf("No orders found\n")
				return nil
			}
			if err := renderOrders(a.out, page.Items); err != nil {
				return err
			}
			printPagination(a.out, page.Pagination, len(page.Items))
			return nil
		},
	}
	lf.bind(list, 10)
	list.Flags().BoolVar(&paid, "paid", false, "only paid orders")
	list.Flags().StringVar(&from, "from", "", "first day, "+dateLayout)
	list.Flags().StringVar(&to, "to", "", "last day, "+dateLayout)

	return groupCmd("orders", "Browse customer orders", list)
}

func renderOrders(w io.Writer, items []domain.Order) error {
	t := newTable(w, "CODE", "BUYER", "ITEMS", "TOTAL", "STATUS", "PAID", "PLACED")
	for _, o := range items {
		placed := "-"
		if !o.CreatedAt.IsZero() {
			placed = humanize.Time(o.CreatedAt)
		}
		t.row(o.Code, o.Buyer.Name, len(o.Items), money(o.Total), o.Status, yesNo(o.IsPaid), placed)
	}
	return t.flush()
}

// money renders an amount with thousands separators and two decimals,
// without passing through float64.
func money(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return d.StringFixed(2)
	}
	sign := ""
	if d.Round(2).IsNegative() {
		sign = "-"
	}
	return sign + humanize.BigComma(n) + "." + frac
}

func newTransactionsCmd(a *App) *cobra.Command {
	var (
		period   string
		from, to string
		detail   bool
	)
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Summarize paid orders for a period",
		Long: `Summarize paid orders. --period is one of all, daily, weekly, monthly,
yearly or custom; custom needs --from and --to (inclusive days).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			p, err := sales.ParsePeriod(period)
			if err != nil {
				return err
			}
			start, err := parseDate("--from", from)
			if err != nil {
				return err
			}
			end, err := parseDate("--to", to)
			if err != nil {
				return err
			}
			r, err := p.Bounds(a.now(), start, end)
			if err != nil {
				return err
			}

			orders, err := fetchPaidOrders(ctx, a.client.Orders(), r)
			if err != nil {
				return err
			}
			s := sales.Summarize(orders, r)

			a.printf("Period:  %s%s\n", p, describeRange(r))
			a.printf("Orders:  %s\n", humanize.Comma(int64(s.Count)))
			a.printf("Revenue: %s\n", money(s.Total))
			if detail && s.Count > 0 {
				a.printf("\n")
				return renderOrders(a.out, s.Orders)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", string(sales.PeriodAll), "reporting period")
	cmd.Flags().StringVar(&from, "from", "", "first day of a custom period, "+dateLayout)
	cmd.Flags().StringVar(&to, "to", "", "last day of a custom period, "+dateLayout)
	cmd.Flags().BoolVar(&detail, "detail", false, "list the orders behind the totals")
	return cmd
}

func describeRange(r sales.Range) string {
	if r.From.IsZero() && r.To.IsZero() {
		return ""
	}
	return fmt.Sprintf(" (%s to %s)", r.From.Format(dateLayout), r.To.AddDate(0, 0, -1).Format(dateLayout))
}

// orderLister is the slice of the order API the report needs.
type orderLister interface {
	List(ctx context.Context, f api.OrderFilter) (*api.Page[domain.Order], error)
}

// fetchPaidOrders loads every paid order in r. The first page tells how many
// pages there are; the rest are fetched concurrently.
func fetchPaidOrders(ctx context.Context, orders orderLister, r sales.Range) ([]domain.Order, error) {
	filter := func(page int) api.OrderFilter {
		return api.OrderFilter{
			ListParams: api.ListParams{Page: page, Limit: orderPageSize},
			PaidOnly:   true,
			From:       r.From,
			To:         r.To,
		}
	}

	first, err := orders.List(ctx, filter(1))
	if err != nil {
		return nil, err
	}
	pages := first.Pagination.Pages()
	if pages > maxOrderPages {
		return nil, fmt.Errorf("%d paid orders is more than one report can hold; narrow the period", first.Pagination.Total)
	}
	if pages <= 1 {
		return first.Items, nil
	}

	rest := make([][]domain.Order, pages-1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(orderFetchers)
	for i := range rest {
		g.Go(func() error {
			page, err := orders.List(gctx, filter(i+2))
			if err != nil {
				return fmt.Errorf("page %d: %w", i+2, err)
			}
			rest[i] = page.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := first.Items
	for _, items := range rest {
		all = append(all, items...)
	}
	return all, nil
}
