// Package result collects the groundings produced by a chaining run.
package result

import (
	"fmt"
	"sync"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/formula"
	"github.com/cognicore/ure/pkg/ure/unify"
)

// Result is a grounded goal with its truth value.
type Result struct {
	ID       string
	Atom     *atom.Atom
	TV       atom.TruthValue
	Bindings unify.Substitution
	// Proof is the derivation that produced the accepted truth value.
	// Its concrete type belongs to the producer.
	Proof any
}

// Policy decides what happens when the same grounded atom arrives twice.
type Policy int

const (
	// KeepHigherConfidence keeps whichever candidate has the higher
	// confidence; ties keep the earlier one.
	KeepHigherConfidence Policy = iota
	// Revise merges both truth values with the revision formula.
	Revise
)

func (p Policy) String() string {
	switch p {
	case KeepHigherConfidence:
		return "keep-higher-confidence"
	case Revise:
		return "revise"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy reads a policy name as written in configuration.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "keep-higher-confidence":
		return KeepHigherConfidence, nil
	case "revise", "revision":
		return Revise, nil
	default:
		return 0, fmt.Errorf("unknown dedup policy %q", s)
	}
}

// Aggregator deduplicates candidates by grounded atom and keeps them in
// order of first acceptance. Accept may be called from several goroutines.
type Aggregator struct {
	mu        sync.Mutex
	policy    Policy
	threshold float64
	revise    formula.Func
	order     []string
	byKey     map[string]*Result
	rejected  int
}

// NewAggregator creates an aggregator. Candidates whose confidence is
// below threshold are rejected.
func NewAggregator(policy Policy, threshold float64) *Aggregator {
	return &Aggregator{
		policy:    policy,
		threshold: threshold,
		revise:    formula.RevisionFormula,
		byKey:     make(map[string]*Result),
	}
}

// Accept offers a candidate and reports whether it changed the result set.
// Candidates with variables are never accepted.
func (a *Aggregator) Accept(r Result) bool {
	if r.Atom == nil || !r.Atom.IsGround() {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if r.TV.Confidence < a.threshold {
		a.rejected++
		return false
	}

	key := r.Atom.Key()
	prev, ok := a.byKey[key]
	if !ok {
		cp := r
		a.byKey[key] = &cp
		a.order = append(a.order, key)
		return true
	}

	switch a.policy {
	case Revise:
		prev.TV = a.revise([]atom.TruthValue{prev.TV, r.TV}).Clamp()
		return true
	default:
		if r.TV.Confidence > prev.TV.Confidence {
			id := prev.ID
			*prev = r
			prev.ID = id
			return true
		}
		return false
	}
}

// Results returns the accepted results in order of first acceptance.
func (a *Aggregator) Results() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Result, len(a.order))
	for i, key := range a.order {
		out[i] = *a.byKey[key]
	}
	return out
}

// Len returns the number of distinct accepted results.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// Rejected returns how many candidates fell below the threshold.
func (a *Aggregator) Rejected() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rejected
}

// Reset clears all accepted results.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = nil
	a.byKey = make(map[string]*Result)
	a.rejected = 0
}
