package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shopdesk/shopdesk/internal/api"
	"github.com/shopdesk/shopdesk/internal/domain"
)

// table writes tab separated rows as aligned columns.
type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer, headers ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
	t.row(toAny(headers)...)
	return t
}

func (t *table) row(cols ...interface{}) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(t.tw, strings.Join(parts, "\t"))
}

func (t *table) flush() error {
	return t.tw.Flush()
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func printPagination(w io.Writer, p domain.Pagination, shown int) {
	pages := p.Pages()
	if pages == 0 {
		pages = 1
	}
	fmt.Fprintf(w, "\n%s of %s shown, page %d/%d\n",
		humanize.Comma(int64(shown)), humanize.Comma(int64(p.Total)), max(p.Page, 1), pages)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// listFlags are the paging flags shared by every list command.
type listFlags struct {
	page   int
	limit  int
	search string
}

func (l *listFlags) bind(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().IntVar(&l.page, "page", 1, "page number")
	cmd.Flags().IntVar(&l.limit, "limit", defaultLimit, "items per page")
	cmd.Flags().StringVar(&l.search, "search", "", "filter by keyword")
}

func (l listFlags) params() api.ListParams {
	return api.ListParams{Page: l.page, Limit: l.limit, Search: l.search}
}

// crud is the list/get/delete surface shared by the catalog services.
type crud[T any] interface {
	List(ctx context.Context, p api.ListParams) (*api.Page[T], error)
	Get(ctx context.Context, id string) (*T, error)
	Delete(ctx context.Context, id string) error
}

// resourceCmds builds the list, get and delete subcommands for one resource.
// render prints a page of items, show prints a single item.
func resourceCmds[T any](a *App, noun string, svc func() crud[T], render func(io.Writer, []T) error, show func(io.Writer, T)) []*cobra.Command {
	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List " + noun + "s",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			page, err := svc().List(cmd.Context(), lf.params())
			if err != nil {
				return err
			}
			if len(page.Items) == 0 {
				a.printf("No %ss found\n", noun)
				return nil
			}
			if err := render(a.out, page.Items); err != nil {
				return err
			}
			printPagination(a.out, page.Pagination, len(page.Items))
			return nil
		},
	}
	lf.bind(list, 10)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			item, err := svc().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			show(a.out, *item)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			if err := svc().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Deleted %s %s\n", noun, args[0])
			return nil
		},
	}
	return []*cobra.Command{list, get, del}
}
