package chainer

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cognicore/ure/pkg/ure/evaluator"
	"github.com/cognicore/ure/pkg/ure/formula"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/result"
)

// Default search budgets
const (
	DefaultMaxDepth              = 4
	DefaultMaxIterations         = 10000
	DefaultVirtualAcceptStrength = 0.5
)

// Options tunes a chaining run. The zero value selects the defaults.
type Options struct {
	// MaxDepth bounds the number of nested rule applications in a proof.
	MaxDepth int
	// MaxIterations bounds the number of target expansions in one run.
	MaxIterations int

	// ConfidenceThreshold drops results whose confidence is below it.
	ConfidenceThreshold float64
	// ConjunctionFormula names the formula that combines AndLink clauses.
	ConjunctionFormula string
	// Policy decides how duplicate groundings are merged.
	Policy result.Policy

	// Exhaustive also tries rules on ground targets that are stored facts.
	Exhaustive bool
	// IncludeFacts returns goal groundings that are plain stored facts.
	IncludeFacts bool
	// VirtualAcceptStrength is the strength an evaluated term needs to hold.
	// Zero selects DefaultVirtualAcceptStrength.
	VirtualAcceptStrength float64

	// Workers > 1 expands the root alternatives of each round concurrently.
	Workers int

	Logger     *zap.Logger
	Registerer prometheus.Registerer
	Evaluators evaluator.Invoker
	Formulas   *formula.Library
}

// DefaultOptions returns the options used when fields are left zero.
func DefaultOptions() Options {
	return Options{
		MaxDepth:              DefaultMaxDepth,
		MaxIterations:         DefaultMaxIterations,
		ConjunctionFormula:    formula.Conjunction,
		VirtualAcceptStrength: DefaultVirtualAcceptStrength,
		Workers:               1,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxDepth == 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.ConjunctionFormula == "" {
		o.ConjunctionFormula = def.ConjunctionFormula
	}
	if o.VirtualAcceptStrength == 0 {
		o.VirtualAcceptStrength = def.VirtualAcceptStrength
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Formulas == nil {
		o.Formulas = formula.NewLibrary()
	}
	if o.Evaluators == nil {
		o.Evaluators = evaluator.NewRegistry(o.Logger)
	}
	return o
}

func (o Options) validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("max depth %d: %w", o.MaxDepth, internalerr.ErrInvalidConfig)
	}
	if o.MaxIterations < 0 {
		return fmt.Errorf("max iterations %d: %w", o.MaxIterations, internalerr.ErrInvalidConfig)
	}
	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v outside [0,1]: %w", o.ConfidenceThreshold, internalerr.ErrInvalidConfig)
	}
	if o.VirtualAcceptStrength < 0 || o.VirtualAcceptStrength > 1 {
		return fmt.Errorf("virtual accept strength %v outside [0,1]: %w", o.VirtualAcceptStrength, internalerr.ErrInvalidConfig)
	}
	if o.Policy != result.KeepHigherConfidence && o.Policy != result.Revise {
		return fmt.Errorf("dedup policy %s: %w", o.Policy, internalerr.ErrInvalidConfig)
	}
	return nil
}
