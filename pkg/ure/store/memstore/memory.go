package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/store"
	"github.com/cognicore/ure/pkg/ure/unify"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu     sync.RWMutex
	facts  map[string]*entry
	order  []string
	byType map[atom.Type][]string
}

type entry struct {
	atom *atom.Atom
	tv   atom.TruthValue
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		facts:  make(map[string]*entry),
		byType: make(map[atom.Type][]string),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// AddFact inserts or updates a fact, keyed by the atom's structure.
func (s *Store) AddFact(ctx context.Context, a *atom.Atom, tv atom.TruthValue) error {
	if a == nil || !a.IsGround() {
		return fmt.Errorf("add fact %v: not ground: %w", a, internalerr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := a.Key()
	if e, ok := s.facts[key]; ok {
		e.tv = tv.Clamp()
		return nil
	}
	s.facts[key] = &entry{atom: a, tv: tv.Clamp()}
	s.order = append(s.order, key)
	s.byType[a.Type()] = append(s.byType[a.Type()], key)
	return nil
}

// SetTruthValue updates the truth value of a stored fact.
func (s *Store) SetTruthValue(ctx context.Context, a *atom.Atom, tv atom.TruthValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.facts[a.Key()]
	if !ok {
		return fmt.Errorf("set truth value %s: %w", a, internalerr.ErrNotFound)
	}
	e.tv = tv.Clamp()
	return nil
}

// GetTruthValue returns the truth value of a stored fact.
func (s *Store) GetTruthValue(ctx context.Context, a *atom.Atom) (atom.TruthValue, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.facts[a.Key()]; ok {
		return e.tv, true, nil
	}
	return atom.TruthValue{}, false, nil
}

// QueryGroundings returns the facts the pattern unifies with.
func (s *Store) QueryGroundings(ctx context.Context, pattern *atom.Atom) ([]store.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pattern.IsGround() {
		if e, ok := s.facts[pattern.Key()]; ok {
			return []store.Fact{{Atom: e.atom, TV: e.tv}}, nil
		}
		return nil, nil
	}

	keys := s.order
	if !pattern.IsVariable() {
		keys = s.byType[pattern.Type()]
	}

	var out []store.Fact
	for _, key := range keys {
		e := s.facts[key]
		if _, ok := unify.Match(pattern, e.atom, nil); ok {
			out = append(out, store.Fact{Atom: e.atom, TV: e.tv})
		}
	}
	return out, nil
}

// Facts returns all facts in insertion order.
func (s *Store) Facts(ctx context.Context) ([]store.Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Fact, len(s.order))
	for i, key := range s.order {
		e := s.facts[key]
		out[i] = store.Fact{Atom: e.atom, TV: e.tv}
	}
	return out, nil
}

// Len returns the number of stored facts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
