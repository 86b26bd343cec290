// Package chainer implements backward chaining: starting from a goal
// pattern it searches rule applications and stored facts for groundings of
// the goal's variables, scoring every grounding with a truth value.
//
// The search deepens iteratively. Each round is a depth-first expansion of
// the proof tree bounded by the round's depth; rules are tried heaviest
// first, premises and conjunction clauses left to right, facts in store
// order. Every branch carries its own ancestry of targets, and a target
// already on its ancestry is pruned, so cyclic rule bases terminate.
package chainer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/evaluator"
	"github.com/cognicore/ure/pkg/ure/formula"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/result"
	"github.com/cognicore/ure/pkg/ure/rulebase"
	"github.com/cognicore/ure/pkg/ure/store"
	"github.com/cognicore/ure/pkg/ure/unify"
)

// BackwardChainer searches groundings of one goal against one rule base.
// A chainer may be run several times; each run starts afresh. Runs must
// not overlap.
type BackwardChainer struct {
	store    store.Store
	rb       *rulebase.RuleBase
	goal     *atom.Atom
	decl     *unify.VarDecl
	goalVars []*atom.Atom

	opts        Options
	conjunction formula.Func
	evals       evaluator.Invoker
	logger      *zap.Logger
	metrics     *metrics

	agg   *result.Aggregator
	stats counters
	tags  atomic.Uint64
	// proofs already offered to the aggregator during the current run;
	// later rounds find them again
	seen map[string]struct{}

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New prepares a chainer for goal using the rule base called name. A nil
// decl is the unconstrained declaration. Configuration errors (unknown
// rule base, a declaration that does not fit the goal, unknown types or
// formulas) are reported here, before any search work.
func New(st store.Store, rbs *rulebase.Registry, name string, goal *atom.Atom, decl *unify.VarDecl, opts Options) (*BackwardChainer, error) {
	if st == nil || rbs == nil {
		return nil, fmt.Errorf("chainer needs a store and rule bases: %w", internalerr.ErrInvalidConfig)
	}
	if goal == nil {
		return nil, fmt.Errorf("chainer needs a goal: %w", internalerr.ErrInvalidConfig)
	}
	if decl == nil {
		decl = unify.Unconstrained()
	}
	resolved, err := decl.Resolve(goal)
	if err != nil {
		return nil, fmt.Errorf("goal %s: %w", goal, err)
	}
	rb, err := rbs.Lookup(name)
	if err != nil {
		return nil, err
	}

	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	conj, err := opts.Formulas.Lookup(opts.ConjunctionFormula)
	if err != nil {
		return nil, fmt.Errorf("conjunction: %w", err)
	}
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &BackwardChainer{
		store:       st,
		rb:          rb,
		goal:        goal,
		decl:        resolved,
		goalVars:    goal.Variables(),
		opts:        opts,
		conjunction: conj,
		evals:       opts.Evaluators,
		logger:      opts.Logger.With(zap.String("rulebase", rb.Name())),
		metrics:     m,
		agg:         result.NewAggregator(opts.Policy, opts.ConfidenceThreshold),
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Goal returns the goal pattern.
func (bc *BackwardChainer) Goal() *atom.Atom { return bc.goal }

// RunChain searches until every round is complete, MaxDepth is reached or
// the iteration budget runs out. Budget exhaustion is not an error: the
// results found so far stay available. The error is non-nil only when the
// fact store fails or ctx is cancelled.
func (bc *BackwardChainer) RunChain(ctx context.Context) error {
	bc.agg.Reset()
	bc.stats.reset()
	bc.tags.Store(0)
	bc.seen = make(map[string]struct{})

	start := time.Now()
	logger := bc.logger.With(zap.String("run", bc.newID()), zap.Stringer("goal", bc.goal))
	logger.Debug("chain started", zap.Stringer("vars", bc.decl), zap.Int("max_depth", bc.opts.MaxDepth))

	var err error
	for depth := 0; depth <= bc.opts.MaxDepth; depth++ {
		bc.stats.rounds.Add(1)
		var cut bool
		cut, err = bc.round(ctx, depth)
		if err != nil || !cut {
			break
		}
	}
	if errors.Is(err, errBudgetExhausted) {
		bc.stats.exhausted.Store(true)
		logger.Info("iteration budget exhausted", zap.Int("max_iterations", bc.opts.MaxIterations))
		err = nil
	}

	bc.stats.accepted.Store(int64(bc.agg.Len()))
	bc.stats.duration.Store(int64(time.Since(start)))
	stats := bc.stats.snapshot()
	bc.metrics.observe(stats)

	logger.Info("chain finished",
		zap.Int("results", stats.Accepted),
		zap.Int("rounds", stats.Rounds),
		zap.Int("expansions", stats.Expansions),
		zap.Duration("duration", stats.Duration),
		zap.Error(err))
	return err
}

// round expands the goal at one depth bound and reports whether some
// branch was cut by that bound.
func (bc *BackwardChainer) round(ctx context.Context, depth int) (bool, error) {
	rd := &round{}
	root := proofState{
		target: bc.goal,
		depth:  depth,
		scope:  unify.NewScope(bc.decl),
	}
	alts, err := bc.expand(ctx, rd, root)
	if err != nil {
		return rd.depthCut.Load(), err
	}

	if bc.opts.Workers <= 1 || len(alts) < 2 {
		err = run(alts, func(s solution) error {
			bc.accept(s)
			return nil
		})
		return rd.depthCut.Load(), err
	}

	// Branches run concurrently; their candidates are accepted afterwards
	// in branch order so results match a sequential run.
	found := make([][]solution, len(alts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bc.opts.Workers)
	for i, alt := range alts {
		i, alt := i, alt
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return alt(func(s solution) error {
				found[i] = append(found[i], s)
				return nil
			})
		})
	}
	err = g.Wait()
	for _, sols := range found {
		for _, s := range sols {
			bc.accept(s)
		}
	}
	return rd.depthCut.Load(), err
}

// accept turns a root solution into a candidate result. It is only
// called from the goroutine running the chain.
func (bc *BackwardChainer) accept(s solution) {
	bc.stats.candidates.Add(1)
	if s.proof.Kind == ProofFact && !bc.opts.IncludeFacts && len(bc.goalVars) > 0 {
		return
	}
	grounded := s.sub.Apply(bc.goal)
	if !grounded.IsGround() {
		bc.logger.Debug("candidate not ground", zap.Stringer("atom", grounded))
		return
	}
	proof := s.proof.resolve(s.sub)
	sig := proof.signature()
	if _, dup := bc.seen[sig]; dup {
		return
	}
	bc.seen[sig] = struct{}{}

	bc.agg.Accept(result.Result{
		ID:       bc.newID(),
		Atom:     grounded,
		TV:       s.tv,
		Bindings: s.sub.Restrict(bc.goalVars),
		Proof:    proof,
	})
}

func (bc *BackwardChainer) newID() string {
	bc.idMu.Lock()
	defer bc.idMu.Unlock()
	return ulid.MustNew(ulid.Now(), bc.entropy).String()
}

// Results returns the results of the last run in order of first acceptance.
func (bc *BackwardChainer) Results() []result.Result {
	return bc.agg.Results()
}

// Stats returns the statistics of the last run.
func (bc *BackwardChainer) Stats() Stats {
	return bc.stats.snapshot()
}
