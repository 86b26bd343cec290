package chainer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/rulebase"
	"github.com/cognicore/ure/pkg/ure/unify"
)

var errBudgetExhausted = errors.New("iteration budget exhausted")

// ancestry is the chain of targets above a branch, as canonical keys.
// A target found on its own ancestry is matched against stored facts but
// never expanded through rules again.
// Nodes are shared by sibling branches and never modified.
type ancestry struct {
	key    string
	parent *ancestry
}

func (a *ancestry) contains(key string) bool {
	for cur := a; cur != nil; cur = cur.parent {
		if cur.key == key {
			return true
		}
	}
	return false
}

func (a *ancestry) push(key string) *ancestry {
	return &ancestry{key: key, parent: a}
}

// proofState is one branch of the search: a target to establish under the
// bindings accumulated so far.
type proofState struct {
	target *atom.Atom
	sub    unify.Substitution
	depth  int
	anc    *ancestry
	scope  *unify.Scope
}

// solution establishes a target: the extended bindings, the truth value
// and how it was obtained.
type solution struct {
	sub   unify.Substitution
	tv    atom.TruthValue
	proof *Proof
}

type emitFunc func(solution) error

// alternative is one way of establishing a target. Running it emits every
// solution found along that way.
type alternative func(emit emitFunc) error

func run(alts []alternative, emit emitFunc) error {
	for _, alt := range alts {
		if err := alt(emit); err != nil {
			return err
		}
	}
	return nil
}

// round holds the per-round state shared by every branch.
type round struct {
	depthCut atomic.Bool
}

// expand classifies a target and returns its alternatives in search order.
func (bc *BackwardChainer) expand(ctx context.Context, rd *round, ps proofState) ([]alternative, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := bc.stats.expansions.Add(1); n > int64(bc.opts.MaxIterations) {
		return nil, errBudgetExhausted
	}

	target := ps.sub.Apply(ps.target)
	key := unify.Canonical(target)
	cyclic := ps.anc.contains(key)
	if cyclic {
		bc.stats.cyclePrunes.Add(1)
		bc.logger.Debug("cycle: rules skipped", zap.Stringer("target", target))
	}
	anc := ps.anc.push(key)

	switch {
	case rulebase.IsCombinator(target):
		if cyclic {
			return nil, nil
		}
		return bc.expandConjunction(ctx, rd, ps, target, anc)
	case target.IsVirtual():
		return bc.expandVirtual(ps, target), nil
	default:
		return bc.expandPattern(ctx, rd, ps, target, anc, cyclic)
	}
}

// expandPattern matches stored facts first and then the rules able to
// conclude the target. A target already on its own ancestry is matched
// against stored facts only.
func (bc *BackwardChainer) expandPattern(ctx context.Context, rd *round, ps proofState, target *atom.Atom, anc *ancestry, cyclic bool) ([]alternative, error) {
	facts, err := bc.store.QueryGroundings(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("query groundings of %s: %w: %w", target, internalerr.ErrStoreUnavailable, err)
	}

	var alts []alternative
	for _, f := range facts {
		sub, ok := unify.Unify(target, f.Atom, ps.sub, ps.scope)
		if !ok {
			continue
		}
		s := solution{sub: sub, tv: f.TV, proof: &Proof{Kind: ProofFact, Atom: f.Atom, TV: f.TV}}
		alts = append(alts, func(emit emitFunc) error { return emit(s) })
	}
	bc.stats.factMatches.Add(int64(len(alts)))
	if cyclic || (target.IsGround() && len(alts) > 0 && !bc.opts.Exhaustive) {
		return alts, nil
	}

	if ps.depth <= 0 {
		if bc.rb.Concludes(target, ps.sub, ps.scope) {
			rd.depthCut.Store(true)
			bc.stats.depthCuts.Add(1)
		}
		return alts, nil
	}

	tag := strconv.FormatUint(bc.tags.Add(1), 10)
	for _, app := range bc.rb.RulesFor(target, ps.sub, ps.scope, tag) {
		alts = append(alts, bc.applyRule(ctx, rd, app, ps.depth-1, anc))
	}
	return alts, nil
}

// applyRule solves the premises of a rule application left to right and
// scores the conclusion with the rule's formula.
func (bc *BackwardChainer) applyRule(ctx context.Context, rd *round, app rulebase.Application, depth int, anc *ancestry) alternative {
	finish := func(sub unify.Substitution, cl clauses) solution {
		tv := app.Rule.Apply(cl.tvs)
		return solution{
			sub: sub,
			tv:  tv,
			proof: &Proof{
				Kind:     ProofRule,
				Atom:     sub.Apply(app.Conclusion),
				TV:       tv,
				Rule:     app.Rule.Name,
				Formula:  app.Rule.Formula,
				Premises: cl.proofs,
			},
		}
	}
	return func(emit emitFunc) error {
		bc.stats.ruleApplications.Add(1)
		alts, err := bc.clauseAlternatives(ctx, rd, newClauses(app.Premises), app.Sub, depth, anc, app.Scope, finish)
		if err != nil {
			return err
		}
		return run(alts, emit)
	}
}

// expandConjunction solves the clauses of an AndLink. Depth is not
// consumed: the conjunction is structure, not an inference step.
func (bc *BackwardChainer) expandConjunction(ctx context.Context, rd *round, ps proofState, target *atom.Atom, anc *ancestry) ([]alternative, error) {
	finish := func(sub unify.Substitution, cl clauses) solution {
		tv := bc.conjunction(cl.tvs)
		return solution{
			sub: sub,
			tv:  tv,
			proof: &Proof{
				Kind:     ProofConjunction,
				Atom:     sub.Apply(target),
				TV:       tv,
				Formula:  bc.opts.ConjunctionFormula,
				Premises: cl.proofs,
			},
		}
	}
	return bc.clauseAlternatives(ctx, rd, newClauses(target.Outgoing()), ps.sub, ps.depth, anc, ps.scope, finish)
}

// expandVirtual dispatches a ground virtual term to its evaluator. The
// term holds when the returned strength reaches the accept strength.
func (bc *BackwardChainer) expandVirtual(ps proofState, target *atom.Atom) []alternative {
	if !target.IsGround() {
		bc.logger.Debug("virtual term not ground", zap.Stringer("target", target))
		return nil
	}
	return []alternative{func(emit emitFunc) error {
		name, args, _ := target.VirtualCall()
		bc.stats.evaluatorCalls.Add(1)
		tv, err := bc.evals.Invoke(name, args)
		if err != nil {
			bc.stats.evaluatorFailures.Add(1)
			bc.logger.Debug("evaluation failed", zap.Stringer("target", target), zap.Error(err))
			return nil
		}
		if tv.Strength < bc.opts.VirtualAcceptStrength {
			bc.logger.Debug("evaluation rejected", zap.Stringer("target", target), zap.Stringer("tv", tv))
			return nil
		}
		return emit(solution{sub: ps.sub, tv: tv, proof: &Proof{Kind: ProofVirtual, Atom: target, TV: tv}})
	}}
}

// clauses tracks a left-to-right solve of several targets. Values are
// copied on every step, so sibling branches never share slices.
type clauses struct {
	targets []*atom.Atom
	solved  []bool
	tvs     []atom.TruthValue
	proofs  []*Proof
}

func newClauses(targets []*atom.Atom) clauses {
	return clauses{
		targets: targets,
		solved:  make([]bool, len(targets)),
		tvs:     make([]atom.TruthValue, len(targets)),
		proofs:  make([]*Proof, len(targets)),
	}
}

func (c clauses) with(i int, s solution) clauses {
	out := clauses{
		targets: c.targets,
		solved:  append([]bool(nil), c.solved...),
		tvs:     append([]atom.TruthValue(nil), c.tvs...),
		proofs:  append([]*Proof(nil), c.proofs...),
	}
	out.solved[i] = true
	out.tvs[i] = s.tv
	out.proofs[i] = s.proof
	return out
}

// next picks the first unsolved clause that can be attempted. Virtual
// clauses with unbound arguments wait for the other clauses to ground
// them. done is true when nothing is left; ok is false when only waiting
// clauses remain.
func (c clauses) next(sub unify.Substitution) (idx int, done, ok bool) {
	pending := false
	for i, t := range c.targets {
		if c.solved[i] {
			continue
		}
		pending = true
		if t.IsVirtual() && !sub.Apply(t).IsGround() {
			continue
		}
		return i, false, true
	}
	return -1, !pending, !pending
}

type finishFunc func(sub unify.Substitution, cl clauses) solution

// clauseAlternatives expands the next clause and chains the rest of the
// clauses behind each of its alternatives.
func (bc *BackwardChainer) clauseAlternatives(ctx context.Context, rd *round, cl clauses, sub unify.Substitution, depth int, anc *ancestry, scope *unify.Scope, finish finishFunc) ([]alternative, error) {
	i, done, ok := cl.next(sub)
	if done {
		s := finish(sub, cl)
		return []alternative{func(emit emitFunc) error { return emit(s) }}, nil
	}
	if !ok {
		bc.logger.Debug("clauses never grounded", zap.Int("pending", pendingCount(cl)))
		return nil, nil
	}

	inner, err := bc.expand(ctx, rd, proofState{target: cl.targets[i], sub: sub, depth: depth, anc: anc, scope: scope})
	if err != nil {
		return nil, err
	}
	alts := make([]alternative, len(inner))
	for j, alt := range inner {
		alt := alt
		alts[j] = func(emit emitFunc) error {
			return alt(func(s solution) error {
				rest, err := bc.clauseAlternatives(ctx, rd, cl.with(i, s), s.sub, depth, anc, scope, finish)
				if err != nil {
					return err
				}
				return run(rest, emit)
			})
		}
	}
	return alts, nil
}

func pendingCount(cl clauses) int {
	n := 0
	for _, s := range cl.solved {
		if !s {
			n++
		}
	}
	return n
}
