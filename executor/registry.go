// Package executor contains the specialized task handlers SupportMesh
// delegates flow steps to, and the fixed capability registry they are looked
// up in. Each executor declares exactly one capability label; the registry is
// built once at startup so dispatch never depends on runtime string plumbing.
package executor

import (
	"fmt"
	"sort"

	"github.com/hupe1980/supportmesh/core"
)

// Registry maps capability labels to executors. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	byCapability map[string]core.Executor
}

// NewRegistry builds a registry from the given executors. Duplicate
// capability labels are a configuration error.
func NewRegistry(executors ...core.Executor) (*Registry, error) {
	byCap := make(map[string]core.Executor, len(executors))
	for _, e := range executors {
		label := e.Capability()
		if label == "" {
			return nil, fmt.Errorf("executor with empty capability")
		}
		if _, exists := byCap[label]; exists {
			return nil, fmt.Errorf("duplicate executor capability %q", label)
		}
		byCap[label] = e
	}
	return &Registry{byCapability: byCap}, nil
}

// MustRegistry is like NewRegistry but panics on configuration errors.
// Intended for wiring in main functions and tests.
func MustRegistry(executors ...core.Executor) *Registry {
	r, err := NewRegistry(executors...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the executor declaring the capability, if any.
func (r *Registry) Lookup(capability string) (core.Executor, bool) {
	e, ok := r.byCapability[capability]
	return e, ok
}

// Capabilities returns all registered capability labels in sorted order.
func (r *Registry) Capabilities() []string {
	caps := make([]string, 0, len(r.byCapability))
	for c := range r.byCapability {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	return caps
}
