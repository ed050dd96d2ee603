// Package registry health-checks a named set of providers.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/steveire/grantlee/internal/ports"
)

const checkWorkers = 4

// Health is the outcome of probing one provider.
type Health struct {
	Name    string
	Err     error
	Latency time.Duration
}

type Registry struct {
	mu        sync.RWMutex
	providers map[string]ports.Provider
	timeout   time.Duration
}

// New returns an empty registry; timeout bounds each check, 0 means none.
func New(timeout time.Duration) *Registry {
	return &Registry{providers: make(map[string]ports.Provider), timeout: timeout}
}

// Register adds p under name. A nil p is kept and reported as unusable.
func (r *Registry) Register(name string, p ports.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

func (r *Registry) Get(name string) (ports.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok && p != nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HealthCheck tests every provider concurrently and returns the results
// sorted by name.
func (r *Registry) HealthCheck(ctx context.Context) []Health {
	names := r.Names()
	out := make([]Health, len(names))
	var g errgroup.Group
	g.SetLimit(checkWorkers)
	for i, name := range names {
		p, _ := r.Get(name)
		g.Go(func() error {
			out[i] = r.check(ctx, name, p)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Registry) check(ctx context.Context, name string, p ports.Provider) Health {
	h := Health{Name: name}
	if p == nil {
		h.Err = errors.New("unsupported provider type")
		return h
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	h.Err = p.Test(ctx)
	h.Latency = time.Since(start)
	return h
}
