// Package formula holds the truth-value formulas rules refer to by name.
//
// Every formula is a pure function from premise truth values to the
// conclusion truth value. Outputs are always clamped into [0,1], so a
// formula can never produce an out-of-range truth value.
package formula

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/internalerr"
)

// Func combines premise truth values into a conclusion truth value.
type Func func(premises []atom.TruthValue) atom.TruthValue

// Built-in formula identifiers
const (
	Deduction        = "deduction"
	Conjunction      = "conjunction"
	FuzzyConjunction = "fuzzy-conjunction"
	Identity         = "identity"
	ModusPonens      = "modus-ponens"
	Revision         = "revision"
)

// Default term probabilities used by deduction when the premises carry
// no term truth values.
const (
	DefaultPriorB = 0.5
	DefaultPriorC = 0.5
)

// Library resolves formula identifiers. It is safe for concurrent use.
type Library struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewLibrary returns a library holding the built-in formulas.
func NewLibrary() *Library {
	l := &Library{funcs: make(map[string]Func)}
	l.funcs[Deduction] = DeductionWithPriors(DefaultPriorB, DefaultPriorC)
	l.funcs[Conjunction] = ProductConjunction
	l.funcs[FuzzyConjunction] = MinConjunction
	l.funcs[Identity] = PassThrough
	l.funcs[ModusPonens] = ModusPonensFormula
	l.funcs[Revision] = RevisionFormula
	return l
}

// Register adds or replaces a formula.
func (l *Library) Register(name string, fn Func) error {
	if name == "" || fn == nil {
		return fmt.Errorf("register formula %q: %w", name, internalerr.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.funcs[name] = fn
	return nil
}

// Lookup resolves a formula. The returned function clamps its output.
func (l *Library) Lookup(name string) (Func, error) {
	l.mu.RLock()
	fn, ok := l.funcs[name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("formula %q: %w", name, internalerr.ErrUnknownFormula)
	}
	return func(premises []atom.TruthValue) atom.TruthValue {
		return fn(premises).Clamp()
	}, nil
}

// Has reports whether name is registered.
func (l *Library) Has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.funcs[name]
	return ok
}

// Names lists the registered formulas, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.funcs))
	for n := range l.funcs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DeductionWithPriors returns the independence-based deduction formula for
// premises (A→B, B→C) yielding A→C:
//
//	sAC = sAB·sBC + (1−sAB)·(sC − sB·sBC)/(1 − sB)
//	cAC = min(cAB, cBC)
//
// When four premises are given, the third and fourth are the term truth
// values of B and C and replace the priors.
func DeductionWithPriors(priorB, priorC float64) Func {
	return func(p []atom.TruthValue) atom.TruthValue {
		if len(p) < 2 {
			return atom.DefaultTV
		}
		ab, bc := p[0], p[1]
		sB, sC := priorB, priorC
		if len(p) >= 4 {
			sB, sC = p[2].Strength, p[3].Strength
		}

		var s float64
		if sB > 0.9999 {
			// B is (almost) everything; nothing is known outside it
			s = sC
			if ab.Strength > 0.9999 {
				s = bc.Strength
			}
		} else {
			s = ab.Strength*bc.Strength + (1-ab.Strength)*(sC-sB*bc.Strength)/(1-sB)
		}
		return atom.NewTruthValue(s, math.Min(ab.Confidence, bc.Confidence))
	}
}

// ProductConjunction multiplies strengths and keeps the weakest confidence.
func ProductConjunction(p []atom.TruthValue) atom.TruthValue {
	s, c := 1.0, 1.0
	for _, tv := range p {
		s *= tv.Strength
		c = math.Min(c, tv.Confidence)
	}
	return atom.NewTruthValue(s, c)
}

// MinConjunction is the fuzzy conjunction: minimum strength and confidence.
func MinConjunction(p []atom.TruthValue) atom.TruthValue {
	s, c := 1.0, 1.0
	for _, tv := range p {
		s = math.Min(s, tv.Strength)
		c = math.Min(c, tv.Confidence)
	}
	return atom.NewTruthValue(s, c)
}

// PassThrough returns the first premise unchanged.
func PassThrough(p []atom.TruthValue) atom.TruthValue {
	if len(p) == 0 {
		return atom.DefaultTV
	}
	return p[0]
}

// ModusPonensFormula derives B from (A, A→B), assuming a small default
// strength for B when A does not hold.
func ModusPonensFormula(p []atom.TruthValue) atom.TruthValue {
	const notAPrior = 0.02
	if len(p) < 2 {
		return atom.DefaultTV
	}
	a, ab := p[0], p[1]
	s := a.Strength*ab.Strength + notAPrior*(1-a.Strength)
	return atom.NewTruthValue(s, math.Min(a.Confidence, ab.Confidence))
}

// RevisionFormula merges independent estimates of the same atom, weighting
// each strength by its evidence count c/(1−c).
func RevisionFormula(p []atom.TruthValue) atom.TruthValue {
	if len(p) == 0 {
		return atom.DefaultTV
	}
	var total, weighted float64
	for _, tv := range p {
		n := evidence(tv.Confidence)
		total += n
		weighted += n * tv.Strength
	}
	if total == 0 {
		return PassThrough(p)
	}
	return atom.NewTruthValue(weighted/total, total/(total+1))
}

// evidence converts a confidence into an evidence count. Full confidence
// is capped so that revision stays finite.
func evidence(c float64) float64 {
	const maxConfidence = 0.9999
	c = math.Min(c, maxConfidence)
	if c <= 0 {
		return 0
	}
	return c / (1 - c)
}
