// Package procedures is the devserver's stand-in for the stored-procedure
// backend: a registry of named functions that return grid payloads.
package procedures

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/eumgrid/internal/shared"
	"github.com/dmitrijs2005/eumgrid/internal/wire"
)

// Call is the input of one procedure invocation.
type Call struct {
	Params []any
	Types  []string
	UserID string
}

// Func runs a procedure. Returned errors wrapping common.ErrValidation are
// reported to the caller as bad requests.
type Func func(ctx context.Context, c Call) (wire.Data, error)

type Registry struct {
	mu    sync.RWMutex
	procs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{procs: map[string]Func{}}
}

// Register adds or replaces the procedure id.
func (r *Registry) Register(id string, f Func) {
	r.mu.Lock()
	r.procs[id] = f
	r.mu.Unlock()
}

// IDs returns the registered procedure ids in order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.procs))
	for id := range r.procs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Call runs procedure id. Unknown ids wrap shared.ErrorUnknownProcedure;
// a types list of a different length than the parameters wraps
// shared.ErrorParameterMismatch.
func (r *Registry) Call(ctx context.Context, id string, c Call) (wire.Data, error) {
	r.mu.RLock()
	f, ok := r.procs[id]
	r.mu.RUnlock()
	if !ok {
		return wire.Data{}, fmt.Errorf("%w: %s", shared.ErrorUnknownProcedure, id)
	}
	if len(c.Types) > 0 && len(c.Types) != len(c.Params) {
		return wire.Data{}, fmt.Errorf("%w: %d parameters, %d types", shared.ErrorParameterMismatch, len(c.Params), len(c.Types))
	}

	d, err := f(ctx, c)
	if err != nil {
		return wire.Data{}, err
	}
	return d.Normalised(), nil
}
