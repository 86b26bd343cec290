// Package ure is the engine facade: it ties a fact store, rule bases and
// evaluators together and answers backward chaining queries.
package ure

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/chainer"
	"github.com/cognicore/ure/pkg/ure/evaluator"
	"github.com/cognicore/ure/pkg/ure/formula"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/result"
	"github.com/cognicore/ure/pkg/ure/rulebase"
	"github.com/cognicore/ure/pkg/ure/store"
	"github.com/cognicore/ure/pkg/ure/unify"
)

// Engine is the main inference facade
type Engine struct {
	store      store.Store
	rulebases  *rulebase.Registry
	evals      *evaluator.Registry
	formulas   *formula.Library
	logger     *zap.Logger
	registerer prometheus.Registerer
	defaults   chainer.Options
}

// Options configures an Engine
type Options struct {
	Store      store.Store
	RuleBases  *rulebase.Registry
	Evaluators *evaluator.Registry
	Formulas   *formula.Library
	Logger     *zap.Logger
	Registerer prometheus.Registerer
	// Chainer holds the search settings used when a query sets none.
	Chainer chainer.Options
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	e := &Engine{
		store:      opts.Store,
		rulebases:  opts.RuleBases,
		evals:      opts.Evaluators,
		formulas:   opts.Formulas,
		logger:     opts.Logger,
		registerer: opts.Registerer,
		defaults:   opts.Chainer,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.evals == nil {
		e.evals = evaluator.NewRegistry(e.logger)
	}
	if e.formulas == nil {
		e.formulas = formula.NewLibrary()
	}
	if e.rulebases == nil {
		e.rulebases = rulebase.EmptyRegistry()
	}
	return e
}

// Close cleanly shuts down the Engine
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Evaluators exposes the registry virtual predicates are dispatched to.
func (e *Engine) Evaluators() *evaluator.Registry { return e.evals }

// RuleBases exposes the rule-base registry.
func (e *Engine) RuleBases() *rulebase.Registry { return e.rulebases }

// AddFacts stores facts in order.
func (e *Engine) AddFacts(ctx context.Context, facts []store.Fact) error {
	if e.store == nil {
		return fmt.Errorf("add facts: no store: %w", internalerr.ErrInvalidConfig)
	}
	for _, f := range facts {
		if err := e.store.AddFact(ctx, f.Atom, f.TV); err != nil {
			return fmt.Errorf("add fact %s: %w", f.Atom, err)
		}
	}
	return nil
}

// QueryRequest defines a backward chaining query
type QueryRequest struct {
	RuleBase string
	Goal     *atom.Atom
	// Decl constrains the goal variables; nil leaves them unconstrained.
	Decl *unify.VarDecl
	// Options overrides the engine's search settings when set.
	Options *chainer.Options
}

// Answer is one grounding of the goal
type Answer struct {
	result.Result
	Explanation string
}

// QueryResponse contains the answers in the order they were found
type QueryResponse struct {
	Answers []Answer
	Stats   chainer.Stats
}

// Chainer builds a chainer for req wired to the engine's collaborators.
func (e *Engine) Chainer(req QueryRequest) (*chainer.BackwardChainer, error) {
	opts := e.defaults
	if req.Options != nil {
		opts = *req.Options
	}
	opts.Logger = e.logger
	opts.Registerer = e.registerer
	opts.Evaluators = e.evals
	if opts.Formulas == nil {
		opts.Formulas = e.formulas
	}
	return chainer.New(e.store, e.rulebases, req.RuleBase, req.Goal, req.Decl, opts)
}

// Query runs a backward chain and returns its answers
func (e *Engine) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	bc, err := e.Chainer(req)
	if err != nil {
		return QueryResponse{}, err
	}
	if err := bc.RunChain(ctx); err != nil {
		return QueryResponse{}, err
	}

	var resp QueryResponse
	resp.Stats = bc.Stats()
	for _, r := range bc.Results() {
		resp.Answers = append(resp.Answers, Answer{Result: r, Explanation: chainer.Explain(r)})
	}
	return resp, nil
}
