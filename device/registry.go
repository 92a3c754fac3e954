// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	cb "github.com/sony/gobreaker"
)

// Factory creates a context on one graphics backend.
type Factory func(width, height int) (Context, error)

// Standard priorities. Higher is tried first.
const (
	PriorityHost   = 200
	PriorityNative = 100
	PriorityNoop   = 1
)

// RegistryEntry represents a registered backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines the preference order (higher = preferred).
	Priority int

	// Factory creates contexts.
	Factory Factory

	// Available reports if the backend is usable on this system.
	Available func() bool
}

// BreakerSettings tunes the per-backend circuit breaker. A backend whose
// creations fail repeatedly is skipped until the breaker half-opens.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker once exceeded.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration
}

// DefaultBreakerSettings trips after three consecutive failures and retries
// after thirty seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 2, Timeout: 30 * time.Second}
}

type registered struct {
	RegistryEntry
	breaker *cb.CircuitBreaker
}

// Registry holds graphics backends in preference order and creates
// contexts from the best one that works. Its Create method is the pool's
// context factory.
//
// Example registration:
//
//	r := device.NewRegistry()
//	device.RegisterVulkan(r)
//	p := pool.New[device.Context](pool.FactoryFunc[device.Context](r.Create))
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*registered
	settings BreakerSettings
}

// NewRegistry creates an empty registry with the default breaker settings.
func NewRegistry() *Registry {
	return NewRegistryWithBreaker(DefaultBreakerSettings())
}

// NewRegistryWithBreaker creates an empty registry with custom breaker
// settings.
func NewRegistryWithBreaker(s BreakerSettings) *Registry {
	return &Registry{
		entries:  make(map[string]*registered),
		settings: s,
	}
}

// Register adds a backend.
//
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry and
// resets its breaker.
func (r *Registry) Register(name string, priority int, factory Factory, available func() bool) {
	if available == nil {
		available = func() bool { return true }
	}
	threshold := r.settings.ConsecutiveFailures
	settings := cb.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    r.settings.Interval,
		Timeout:     r.settings.Timeout,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures > threshold
		},
		OnStateChange: func(name string, from, to cb.State) {
			slogger().Warn("device: backend breaker state change",
				"backend", name, "from", from.String(), "to", to.String())
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &registered{
		RegistryEntry: RegistryEntry{
			Name:      name,
			Priority:  priority,
			Factory:   factory,
			Available: available,
		},
		breaker: cb.NewCircuitBreaker(settings),
	}
}

// Unregister removes a backend.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(false)
}

// Available returns names of all available backends sorted by priority.
// It is the startup capability probe: an empty result means every surface
// will render in software.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames(true)
}

// Get returns information about a specific backend.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	entryCopy := e.RegistryEntry
	return &entryCopy, true
}

// BreakerState returns the breaker state of a backend.
func (r *Registry) BreakerState(name string) (cb.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return cb.StateClosed, false
	}
	return e.breaker.State(), true
}

// Create makes a context on the best available backend, trying each in
// priority order. Backends whose breaker is open are skipped. When every
// backend fails the individual errors are joined.
func (r *Registry) Create(width, height int) (Context, error) {
	r.mu.RLock()
	names := r.sortedNames(true)
	r.mu.RUnlock()

	if len(names) == 0 {
		return nil, ErrNoBackendAvailable
	}

	var errs []error
	for _, name := range names {
		ctx, err := r.CreateByName(name, width, height)
		if err == nil {
			return ctx, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackendAvailable, errors.Join(errs...))
}

// CreateByName makes a context on a specific backend.
func (r *Registry) CreateByName(name string, width, height int) (Context, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	if !e.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}

	res, err := e.breaker.Execute(func() (interface{}, error) {
		return e.Factory(width, height)
	})
	if err != nil {
		if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
			slogger().Debug("device: backend skipped", "backend", name, "err", err)
		} else {
			slogger().Warn("device: context creation failed", "backend", name, "err", err)
		}
		return nil, fmt.Errorf("device: %s: %w", name, err)
	}
	ctx, ok := res.(Context)
	if !ok || ctx == nil {
		return nil, fmt.Errorf("device: %s: factory returned no context", name)
	}
	slogger().Info("device: context created", "backend", name, "width", width, "height", height)
	return ctx, nil
}

// sortedNames returns backend names sorted by priority (highest first),
// ties broken by name. Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	entries := make([]*registered, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
