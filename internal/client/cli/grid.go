package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/eumgrid/internal/client/grid"
	"github.com/dmitrijs2005/eumgrid/internal/client/services"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// viewFlags are the client-side query options of grid and grids.
type viewFlags struct {
	sort   []string
	filter string
	skip   int
	take   int
	all    bool
}

func (v *viewFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVar(&v.sort, "sort", nil, "sort key as field[:asc|desc]; repeatable")
	f.StringVar(&v.filter, "filter", "", `filter as JSON, e.g. {"field":"qty","operator":"gt","value":1}`)
	f.IntVar(&v.skip, "skip", 0, "rows to skip")
	f.IntVar(&v.take, "take", 0, "rows to show; 0 uses the configured page size")
	f.BoolVar(&v.all, "all", false, "disable paging")
}

// state builds the query state; take defaults to pageSize.
func (v *viewFlags) state(pageSize int) (*grid.QueryState, error) {
	sort, err := parseSort(v.sort)
	if err != nil {
		return nil, err
	}
	filter, err := parseFilter(v.filter)
	if err != nil {
		return nil, err
	}
	take := v.take
	if take <= 0 {
		take = pageSize
	}
	return &grid.QueryState{Sort: sort, Filter: filter, Skip: v.skip, Take: take}, nil
}

// options turns the view flags into grid toggles.
func (v *viewFlags) options(pageSize int) []grid.Option {
	return []grid.Option{
		grid.WithPaging(!v.all),
		grid.WithPageSize(pageSize),
		grid.WithShowFilter(v.filter != ""),
	}
}

func newGridCommand(a *App, creds *credentials) *cobra.Command {
	view := &viewFlags{}
	var types []string

	cmd := &cobra.Command{
		Use:   "grid <callId> [params...]",
		Short: "Load a stored-procedure grid and print the current page",
		Long: `Load a stored-procedure grid and print the current page.

Parameters may use date macros that expand to YYYYMMDD values:
@today, @first, @last, @days:N, @months:N, @years:N.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := expandParams(args[1:], a.dates)
			if err != nil {
				return err
			}
			state, err := view.state(a.config.DefaultPageSize)
			if err != nil {
				return err
			}
			q := services.GridQuery{CallID: args[0], Params: params, Types: splitTypes(types), State: state}

			return a.withSession(cmd.Context(), creds, func(ctx context.Context) error {
				g, err := a.gridService.Load(ctx, q, view.options(a.config.DefaultPageSize)...)
				if err != nil {
					return err
				}
				return a.render(a.out, q.CallID, g)
			})
		},
	}
	view.register(cmd)
	cmd.Flags().StringSliceVar(&types, "types", nil, "parameter types, e.g. S,S")
	return cmd
}

func newGridsCommand(a *App, creds *credentials) *cobra.Command {
	view := &viewFlags{}
	var parallel int

	cmd := &cobra.Command{
		Use:   "grids <callId>...",
		Short: "Load several parameterless grids concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := view.state(a.config.DefaultPageSize)
			if err != nil {
				return err
			}
			qs := make([]services.GridQuery, len(args))
			for i, id := range args {
				qs[i] = services.GridQuery{CallID: id, State: state}
			}

			return a.withSession(cmd.Context(), creds, func(ctx context.Context) error {
				grids, err := a.gridService.LoadAll(ctx, qs, parallel, view.options(a.config.DefaultPageSize)...)
				for i, g := range grids {
					if g == nil || g.Err() != nil {
						continue
					}
					if rerr := a.render(a.out, qs[i].CallID, g); rerr != nil {
						return rerr
					}
				}
				return err
			})
		},
	}
	view.register(cmd)
	cmd.Flags().IntVar(&parallel, "parallel", 4, "maximum concurrent requests; 0 means unlimited")
	return cmd
}

// render prints the visible columns of g's current view as a table.
func (a *App) render(w io.Writer, callID string, g *grid.Grid) error {
	cols := grid.VisibleColumns(g.Columns())
	view := g.View()
	state := g.State()

	data := make([][]string, 0, len(view.Data)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Title
	}
	data = append(data, header)
	for _, row := range view.Data {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = a.formatter.FormatValue(c, row[c.Field])
		}
		data = append(data, line)
	}

	fmt.Fprintln(w, pterm.DefaultSection.Sprint(callID))
	if len(cols) == 0 {
		fmt.Fprintln(w, pterm.Warning.Sprint("no visible columns"))
		return nil
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, table)
	fmt.Fprintln(w, summary(view, state, g.Toggles()))
	return nil
}

func summary(view grid.Result, state grid.QueryState, t grid.Toggles) string {
	if len(view.Data) == 0 {
		return fmt.Sprintf("0 of %d rows", view.Total)
	}
	from := 1
	if t.Page {
		from = state.Skip + 1
	}
	return fmt.Sprintf("rows %d-%d of %d", from, from+len(view.Data)-1, view.Total)
}
