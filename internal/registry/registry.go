// Package registry maintains the named collection of miner clients
// and fans control actions out across them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/rigmon/rigmon/internal/history"
	"github.com/rigmon/rigmon/internal/miner"
)

// NotFoundError indicates no miner is registered under the name.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("miner %q not registered", e.Name)
}

// IsNotFound returns true when err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// DuplicateError indicates the name is already taken.
type DuplicateError struct {
	Name string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("miner %q already registered", e.Name)
}

// IsDuplicate returns true when err is (or wraps) a DuplicateError.
func IsDuplicate(err error) bool {
	var target DuplicateError
	return errors.As(err, &target)
}

// Registry owns a named set of miner clients that share one snapshot
// store. List order is registration order.
type Registry struct {
	hist *history.Store // nil when persistence is disabled

	mu     sync.Mutex
	miners map[string]*miner.Client
	order  []string
}

// New builds an empty registry. hist may be nil to run without
// snapshot persistence; every registered miner then serves from its
// in-memory cache only.
func New(hist *history.Store) *Registry {
	return &Registry{
		hist:   hist,
		miners: make(map[string]*miner.Client),
	}
}

// Add registers a miner and performs its initial full refresh. An
// authorization or connectivity failure (or a failed snapshot write)
// aborts the registration; a parse-only failure is tolerated because
// freshly restarted miners are known to serve a garbled backends
// response for a while.
func (r *Registry) Add(ctx context.Context, opts miner.Options) error {
	if opts.Name == "" {
		return errors.New("registry: miner name required")
	}

	r.mu.Lock()
	if _, exists := r.miners[opts.Name]; exists {
		r.mu.Unlock()
		return DuplicateError{Name: opts.Name}
	}
	r.mu.Unlock()

	client := miner.New(opts, r.hist)
	if err := client.RefreshAll(ctx); err != nil {
		if miner.IsAuth(err) || miner.IsConn(err) || history.IsStoreError(err) {
			return fmt.Errorf("registry: initial refresh for %q: %w", opts.Name, err)
		}
		log.Printf("[Registry] %s: initial refresh incomplete: %v", opts.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.miners[opts.Name]; exists {
		return DuplicateError{Name: opts.Name}
	}
	r.miners[opts.Name] = client
	r.order = append(r.order, opts.Name)
	log.Printf("[Registry] %s added (%s)", opts.Name, client.BaseURL())
	return nil
}

// Remove deregisters a miner and purges its snapshot history.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	_, exists := r.miners[name]
	if !exists {
		r.mu.Unlock()
		return NotFoundError{Name: name}
	}
	delete(r.miners, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if r.hist != nil {
		if err := r.hist.Purge(ctx, name); err != nil {
			return fmt.Errorf("registry: purge history for %q: %w", name, err)
		}
	}
	log.Printf("[Registry] %s removed", name)
	return nil
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (*miner.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.miners[name]
	if !ok {
		return nil, NotFoundError{Name: name}
	}
	return client, nil
}

// List returns every registered name in registration order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// ActionResult is the per-miner outcome of a broadcast action.
type ActionResult struct {
	Name string
	Err  error
}

// Broadcast applies a control action to every registered miner. A
// failure on one miner does not stop the others; each outcome is
// logged and returned.
func (r *Registry) Broadcast(ctx context.Context, action miner.Action) []ActionResult {
	names := r.List()
	results := make([]ActionResult, 0, len(names))
	for _, name := range names {
		client, err := r.Get(name)
		if err != nil {
			// Removed concurrently between List and Get.
			continue
		}
		err = client.Control(ctx, action)
		if err != nil {
			log.Printf("[Registry] %s: %s failed: %v", name, action, err)
		} else {
			log.Printf("[Registry] %s: %s ok", name, action)
		}
		results = append(results, ActionResult{Name: name, Err: err})
	}
	return results
}

// RefreshAll refreshes every endpoint of every registered miner and
// returns the per-miner outcomes.
func (r *Registry) RefreshAll(ctx context.Context) []ActionResult {
	names := r.List()
	results := make([]ActionResult, 0, len(names))
	for _, name := range names {
		client, err := r.Get(name)
		if err != nil {
			continue
		}
		results = append(results, ActionResult{Name: name, Err: client.RefreshAll(ctx)})
	}
	return results
}
