package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/probe/pkg/domain"
)

// Registry manages the event handlers attached to analysis step markers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]domain.EventHandler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string][]domain.EventHandler),
	}
}

// Register adds a handler for the named event.
// Handlers run in registration order.
func (r *Registry) Register(name string, fn domain.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = append(r.handlers[name], fn)
}

// Has reports whether any handler listens to name.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[name]) > 0
}

// Dispatch runs every handler registered for ev.Name and returns the nodes
// they added. A panicking handler is skipped and reported through the
// returned errors; the remaining handlers still run.
func (r *Registry) Dispatch(ev *domain.Event) ([]*domain.Node, []error) {
	if r == nil {
		return nil, nil
	}
	r.mu.RLock()
	fns := r.handlers[ev.Name]
	r.mu.RUnlock()

	var added []*domain.Node
	var errs []error
	for i, fn := range fns {
		nodes, err := safeHandle(fn, ev)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s handler %d: %w", ev.Name, i, err))
			continue
		}
		added = append(added, nodes...)
	}
	return added, errs
}

func safeHandle(fn domain.EventHandler, ev *domain.Event) (nodes []*domain.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.RecoveredError{Op: "event handler", Value: r}
		}
	}()
	return fn(ev), nil
}
