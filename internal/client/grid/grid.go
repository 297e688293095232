package grid

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/metrics"
)

// DefaultPageSize is the initial Take.
const DefaultPageSize = 50

// Grid loads one server-defined grid and serves views of it. Every Load
// gets a new request token; a response whose token is no longer current is
// discarded and its Load returns common.ErrSuperseded. Grid is safe for
// concurrent use. Hooks run outside the internal lock, in the calling
// goroutine.
type Grid struct {
	fetcher   Fetcher
	logger    logging.Logger
	metrics   *metrics.Metrics
	location  *time.Location
	overrides map[string]ColumnOverride

	showSort     bool
	showFilter   bool
	enablePaging bool
	pageSize     int

	onStateChange  func(QueryState)
	onSortChange   func([]SortDescriptor)
	onFilterChange func(*CompositeFilter)
	onError        func(error)
	onDataLoad     func([]Row)
	onLoading      func(bool)

	mu       sync.Mutex
	seq      uint64
	loading  bool
	lastReq  *Request
	columns  []Column
	rows     []Row
	state    QueryState
	err      error
	view     *Result
	viewDirt bool
}

// Option configures a Grid.
type Option func(*Grid)

// WithShowSort enables sorting in views. Default true.
func WithShowSort(on bool) Option { return func(g *Grid) { g.showSort = on } }

// WithShowFilter enables filtering in views. Default false.
func WithShowFilter(on bool) Option { return func(g *Grid) { g.showFilter = on } }

// WithPaging enables skip/take in views. Default false.
func WithPaging(on bool) Option { return func(g *Grid) { g.enablePaging = on } }

// WithPageSize sets the initial and reset Take. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(g *Grid) {
		if n > 0 {
			g.pageSize = n
		}
	}
}

// WithColumnOverrides patches mapped columns by field before coercion.
func WithColumnOverrides(o map[string]ColumnOverride) Option {
	return func(g *Grid) { g.overrides = o }
}

// WithLocation sets where YYYYMMDD dates are anchored. Default time.Local.
func WithLocation(loc *time.Location) Option { return func(g *Grid) { g.location = loc } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(g *Grid) { g.logger = l } }

// WithMetrics counts loads.
func WithMetrics(m *metrics.Metrics) Option { return func(g *Grid) { g.metrics = m } }

// OnStateChange is called after every QueryState change.
func OnStateChange(fn func(QueryState)) Option { return func(g *Grid) { g.onStateChange = fn } }

// OnSortChange is called when the sort descriptors change.
func OnSortChange(fn func([]SortDescriptor)) Option { return func(g *Grid) { g.onSortChange = fn } }

// OnFilterChange is called when the filter changes.
func OnFilterChange(fn func(*CompositeFilter)) Option {
	return func(g *Grid) { g.onFilterChange = fn }
}

// OnError is called when a current load fails.
func OnError(fn func(error)) Option { return func(g *Grid) { g.onError = fn } }

// OnDataLoad is called with the coerced rows after a current load succeeds.
func OnDataLoad(fn func([]Row)) Option { return func(g *Grid) { g.onDataLoad = fn } }

// OnLoadingChange is called when the loading flag flips.
func OnLoadingChange(fn func(bool)) Option { return func(g *Grid) { g.onLoading = fn } }

// New returns an empty Grid fetching through f.
func New(f Fetcher, opts ...Option) *Grid {
	g := &Grid{
		fetcher:  f,
		logger:   logging.Nop(),
		location: time.Local,
		showSort: true,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.state = g.initialState()
	g.viewDirt = true
	return g
}

func (g *Grid) initialState() QueryState {
	return QueryState{Skip: 0, Take: g.pageSize}
}

// Toggles reports which Process stages views apply.
func (g *Grid) Toggles() Toggles {
	return Toggles{Sort: g.showSort, Filter: g.showFilter, Page: g.enablePaging}
}

// Load fetches req and, if it is still the latest request when the
// response arrives, replaces columns and rows. An empty CallID fails with
// common.ErrValidation before any I/O.
func (g *Grid) Load(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		g.mu.Lock()
		g.err = err
		g.mu.Unlock()
		g.logger.Warn(ctx, "grid request rejected", "error", err)
		g.fireError(err)
		return err
	}

	g.mu.Lock()
	g.seq++
	token := g.seq
	wasLoading := g.loading
	g.loading = true
	g.err = nil
	r := req
	g.lastReq = &r
	g.mu.Unlock()

	if !wasLoading && g.onLoading != nil {
		g.onLoading(true)
	}

	start := time.Now()
	resp := g.fetcher.FetchGridData(ctx, req)

	var (
		cols []Column
		rows []Row
		err  error
	)
	if resp.OK() {
		cols = ApplyOverrides(MapColumns(resp.Data.Headers, resp.Data.DataField), g.overrides)
		rows = CoerceRows(cols, resp.Data.Rows, g.location)
	} else {
		err = loadError(resp)
	}

	g.mu.Lock()
	if token != g.seq {
		g.mu.Unlock()
		g.logger.Debug(ctx, "grid response discarded", "call_id", req.CallID, "token", token)
		return common.ErrSuperseded
	}
	g.loading = false
	if err != nil {
		g.err = err
	} else {
		g.err = nil
		g.columns = cols
		g.rows = rows
		g.viewDirt = true
	}
	g.mu.Unlock()

	g.metrics.ObserveGridLoad(req.CallID, err)
	if g.onLoading != nil {
		g.onLoading(false)
	}

	if err != nil {
		g.logger.Error(ctx, "grid load failed",
			"call_id", req.CallID, "duration", time.Since(start), "error", err)
		g.fireError(err)
		return err
	}

	g.logger.Info(ctx, "grid loaded",
		"call_id", req.CallID, "columns", len(cols), "rows", len(rows),
		"hidden_columns", len(cols)-len(VisibleColumns(cols)), "duration", time.Since(start))
	if g.onDataLoad != nil {
		g.onDataLoad(rows)
	}
	return nil
}

// loadError turns a failed response into an error. Transport causes are
// kept for errors.Is.
func loadError(resp Response) error {
	msg := resp.Message
	if msg == "" {
		msg = "failed to fetch grid data"
	}
	if resp.Err != nil {
		return fmt.Errorf("grid load: %s: %w", msg, resp.Err)
	}
	return fmt.Errorf("grid load: status %d: %s", resp.Status, msg)
}

func (g *Grid) fireError(err error) {
	if g.onError != nil {
		g.onError(err)
	}
}

// Reload repeats the last request passed to Load.
func (g *Grid) Reload(ctx context.Context) error {
	g.mu.Lock()
	last := g.lastReq
	g.mu.Unlock()
	if last == nil {
		return errors.New("grid: nothing to reload")
	}
	return g.Load(ctx, *last)
}

// Loading reports whether the latest Load is outstanding.
func (g *Grid) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}

// Err returns the error of the latest completed Load, or nil.
func (g *Grid) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Columns returns all columns, hidden ones included.
func (g *Grid) Columns() []Column {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Column(nil), g.columns...)
}

// Rows returns every coerced row in server order.
func (g *Grid) Rows() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Row(nil), g.rows...)
}

// View returns the processed slice for the current rows and state. The
// result is recomputed only after rows or state change.
func (g *Grid) View() Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.viewDirt || g.view == nil {
		r := Process(g.rows, g.state, g.Toggles())
		g.view = &r
		g.viewDirt = false
	}
	return Result{Data: append([]Row(nil), g.view.Data...), Total: g.view.Total}
}

// State returns the current query state.
func (g *Grid) State() QueryState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// SetState replaces the query state after validating it.
func (g *Grid) SetState(s QueryState) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	g.replaceState(func(QueryState) QueryState { return s })
	return nil
}

// ClearFilters drops the filter.
func (g *Grid) ClearFilters() {
	g.replaceState(func(s QueryState) QueryState {
		s.Filter = nil
		return s
	})
}

// ClearSort drops every sort descriptor.
func (g *Grid) ClearSort() {
	g.replaceState(func(s QueryState) QueryState {
		s.Sort = nil
		return s
	})
}

// ResetState restores skip 0, the configured page size, no sort and no filter.
func (g *Grid) ResetState() {
	g.replaceState(func(QueryState) QueryState { return g.initialState() })
}

func (g *Grid) replaceState(fn func(QueryState) QueryState) {
	g.mu.Lock()
	prev := g.state
	next := fn(prev)
	g.state = next
	g.viewDirt = true
	g.mu.Unlock()

	if g.onStateChange != nil {
		g.onStateChange(next)
	}
	if g.onSortChange != nil && !reflect.DeepEqual(prev.Sort, next.Sort) {
		g.onSortChange(next.Sort)
	}
	if g.onFilterChange != nil && !reflect.DeepEqual(prev.Filter, next.Filter) {
		g.onFilterChange(next.Filter)
	}
}
