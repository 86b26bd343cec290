package store

import (
	"context"

	"github.com/cognicore/ure/pkg/ure/atom"
)

// Store is the fact store the chainer reads from. Facts are ground atoms
// with a truth value attached.
//
// During a chaining run the store is only read; implementations must
// allow concurrent readers.
type Store interface {
	Close() error

	// AddFact inserts a ground atom or replaces the truth value of an
	// existing one. Insertion order is preserved across updates.
	AddFact(ctx context.Context, a *atom.Atom, tv atom.TruthValue) error

	// SetTruthValue updates an existing fact, failing with ErrNotFound
	// when the atom is not stored.
	SetTruthValue(ctx context.Context, a *atom.Atom, tv atom.TruthValue) error

	// GetTruthValue returns the truth value of a stored atom.
	GetTruthValue(ctx context.Context, a *atom.Atom) (atom.TruthValue, bool, error)

	// QueryGroundings returns, in insertion order, every stored fact the
	// pattern unifies with. Variable type constraints are not applied here.
	QueryGroundings(ctx context.Context, pattern *atom.Atom) ([]Fact, error)

	// Facts returns every stored fact in insertion order.
	Facts(ctx context.Context) ([]Fact, error)
}

// Fact is a stored atom and its truth value.
type Fact struct {
	Atom *atom.Atom
	TV   atom.TruthValue
}
