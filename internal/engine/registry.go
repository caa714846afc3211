package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory builds the engine of a platform.
type Factory func(platform string) (*FieldOfPlay, error)

// Registry maps platform names to their running engines. It is owned by
// the process and passed to whoever needs an engine; there is no global
// lookup.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	engines map[string]*running
	closed  bool
}

type running struct {
	fop    *FieldOfPlay
	cancel context.CancelFunc
	done   chan error
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{factory: factory, engines: make(map[string]*running)}
}

// Open returns the engine of platform, creating it and starting its
// consumer loop on first use. The loop stops when ctx is cancelled or the
// registry is closed.
func (r *Registry) Open(ctx context.Context, platform string) (*FieldOfPlay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New("registry closed")
	}
	if e, ok := r.engines[platform]; ok {
		return e.fop, nil
	}

	f, err := r.factory(platform)
	if err != nil {
		return nil, fmt.Errorf("create platform %s: %w", platform, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e := &running{fop: f, cancel: cancel, done: make(chan error, 1)}
	go func() {
		e.done <- f.Run(runCtx)
	}()
	r.engines[platform] = e
	slog.Info("platform opened", "platform", platform)
	return f, nil
}

// Get returns the engine of an open platform.
func (r *Registry) Get(platform string) (*FieldOfPlay, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[platform]
	if !ok {
		return nil, false
	}
	return e.fop, true
}

// Platforms lists the open platforms, sorted.
func (r *Registry) Platforms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close stops every engine after it has drained its queue and closes the
// hubs. It waits for the consumer loops to return.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	engines := r.engines
	r.engines = map[string]*running{}
	r.mu.Unlock()

	var errs []error
	for name, e := range engines {
		e.fop.Stop()
		if err := <-e.done; err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("platform %s: %w", name, err))
		}
		e.cancel()
		e.fop.WaitSounds()
		e.fop.Hub().Close()
	}
	return errors.Join(errs...)
}
