// Package evaluator dispatches virtual predicate terms to externally
// registered callbacks.
package evaluator

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/internalerr"
)

// Func computes the truth value of a grounded predicate for ground arguments.
type Func func(args []*atom.Atom) (atom.TruthValue, error)

// Invoker is the capability the chainer depends on.
type Invoker interface {
	Invoke(name string, args []*atom.Atom) (atom.TruthValue, error)
}

// Option configures a registration.
type Option func(*entry)

// Reentrant declares that the callback may run concurrently with other
// evaluator calls. Without it every call is serialized.
func Reentrant() Option {
	return func(e *entry) { e.reentrant = true }
}

type entry struct {
	fn        Func
	reentrant bool
}

// Registry maps grounded predicate names to callbacks.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry

	// serial guards every call to a non-reentrant callback
	serial sync.Mutex
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{entries: make(map[string]entry), logger: logger}
}

// Register binds name to fn, replacing any previous binding.
func (r *Registry) Register(name string, fn Func, opts ...Option) error {
	if name == "" || fn == nil {
		return fmt.Errorf("register evaluator %q: %w", name, internalerr.ErrInvalidInput)
	}
	e := entry{fn: fn}
	for _, opt := range opts {
		opt(&e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = e
	return nil
}

// Unregister removes a binding.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Invoke calls the evaluator registered under name. Results are clamped
// into [0,1]. Nothing is cached: identical calls reach the callback again.
func (r *Registry) Invoke(name string, args []*atom.Atom) (atom.TruthValue, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return atom.TruthValue{}, fmt.Errorf("evaluator %q: %w", name, internalerr.ErrUnregisteredEvaluator)
	}
	for _, a := range args {
		if !a.IsGround() {
			return atom.TruthValue{}, fmt.Errorf("evaluator %q: argument %s is not ground: %w", name, a, internalerr.ErrInvalidInput)
		}
	}

	if !e.reentrant {
		r.serial.Lock()
		defer r.serial.Unlock()
	}

	tv, err := e.fn(args)
	if err != nil {
		r.logger.Debug("evaluator failed", zap.String("name", name), zap.Error(err))
		return atom.TruthValue{}, fmt.Errorf("evaluator %q: %w", name, err)
	}
	return tv.Clamp(), nil
}
