// Package actions holds the registry of named effects and the invoker that
// runs them with run-history recording and occurrence deduplication. CLI
// commands, the routine runner and Lua scripts all go through it.
package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Effect is a named, invokable unit of work.
type Effect interface {
	Name() string
	Execute(ctx context.Context, args map[string]any) error
}

// funcEffect is the standard Effect implementation.
type funcEffect struct {
	name string
	fn   func(ctx context.Context, args map[string]any) error
}

func (e *funcEffect) Name() string { return e.name }

func (e *funcEffect) Execute(ctx context.Context, args map[string]any) error {
	return e.fn(ctx, args)
}

// Registry holds all registered effects.
type Registry struct {
	mu      sync.RWMutex
	effects map[string]Effect
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{effects: make(map[string]Effect)}
}

// Register adds an effect to the registry.
func (r *Registry) Register(e Effect) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.effects[e.Name()]; exists {
		return fmt.Errorf("effect %q already registered", e.Name())
	}
	r.effects[e.Name()] = e
	return nil
}

// RegisterFunc adds a function-backed effect.
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context, args map[string]any) error) error {
	return r.Register(&funcEffect{name: name, fn: fn})
}

// Get retrieves an effect by name.
func (r *Registry) Get(name string) (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.effects[name]
	return e, exists
}

// Names returns all registered effect names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.effects))
	for name := range r.effects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
