// Package registry maps index names to query engines. A Registry is filled
// once at startup and never changes, so it is safe for concurrent reads.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/aqua777/indexquery/rag/queryengine"
)

// ErrUnknownIndex is returned for a name with no engine.
var ErrUnknownIndex = errors.New("unknown index")

// Registry is an immutable name to query engine map.
type Registry struct {
	engines  map[string]queryengine.QueryEngine
	selector []string
}

// New copies engines into a Registry. Every selector name must have an
// engine and no engine may be nil.
func New(engines map[string]queryengine.QueryEngine, selector []string) (*Registry, error) {
	var errs []error
	for name, engine := range engines {
		if engine == nil {
			errs = append(errs, fmt.Errorf("nil query engine for %q", name))
		}
	}
	for _, name := range selector {
		if _, ok := engines[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: selector name %q has no query engine", ErrUnknownIndex, name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Registry{
		engines:  maps.Clone(engines),
		selector: slices.Clone(selector),
	}, nil
}

// Get returns the engine registered under name.
func (r *Registry) Get(name string) (queryengine.QueryEngine, error) {
	engine, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndex, name)
	}
	return engine, nil
}

// Names returns the selector names in display order.
func (r *Registry) Names() []string {
	return slices.Clone(r.selector)
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	return len(r.engines)
}
