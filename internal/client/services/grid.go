package services

import (
	"context"

	"github.com/dmitrijs2005/eumgrid/internal/client/grid"
	"golang.org/x/sync/errgroup"
)

// GridQuery names a procedure, its parameters and the view to apply to
// the rows it returns.
type GridQuery struct {
	CallID string
	Params []any
	Types  []string
	State  *grid.QueryState
}

// GridService loads grids for the CLI.
type GridService interface {
	Load(ctx context.Context, q GridQuery, opts ...grid.Option) (*grid.Grid, error)
	LoadAll(ctx context.Context, qs []GridQuery, limit int, opts ...grid.Option) ([]*grid.Grid, error)
}

type gridService struct {
	fetcher grid.Fetcher
	factory grid.RequestFactory
	opts    []grid.Option
}

// NewGridService builds grids fetching through f. Requests carry the user
// known to factory's session; opts configure every grid created and are
// applied before the per-call options.
func NewGridService(f grid.Fetcher, factory grid.RequestFactory, opts ...grid.Option) GridService {
	return &gridService{fetcher: f, factory: factory, opts: opts}
}

// Load validates the query state before any request is sent.
func (s *gridService) Load(ctx context.Context, q GridQuery, opts ...grid.Option) (*grid.Grid, error) {
	g := grid.New(s.fetcher, append(append([]grid.Option{}, s.opts...), opts...)...)
	if q.State != nil {
		if err := g.SetState(*q.State); err != nil {
			return nil, err
		}
	}
	if err := g.Load(ctx, s.factory.New(q.CallID, q.Params, q.Types)); err != nil {
		return g, err
	}
	return g, nil
}

// LoadAll runs up to limit loads at a time. Every load runs to completion;
// the first failure is returned alongside all grids, in the order of qs.
func (s *gridService) LoadAll(ctx context.Context, qs []GridQuery, limit int, opts ...grid.Option) ([]*grid.Grid, error) {
	out := make([]*grid.Grid, len(qs))
	var eg errgroup.Group
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, q := range qs {
		eg.Go(func() error {
			g, err := s.Load(ctx, q, opts...)
			out[i] = g
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
