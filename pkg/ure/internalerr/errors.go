package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidConfig is the root of every configuration error. The more
	// specific sentinels below wrap it, so errors.Is(err, ErrInvalidConfig)
	// holds for all of them.
	ErrInvalidConfig = errors.New("invalid configuration")

	ErrUnknownRuleBase = fmt.Errorf("%w: unknown rule base", ErrInvalidConfig)
	ErrUnknownType     = fmt.Errorf("%w: unknown atom type", ErrInvalidConfig)
	ErrUnknownFormula  = fmt.Errorf("%w: unknown formula", ErrInvalidConfig)
	ErrInvalidVarDecl  = fmt.Errorf("%w: invalid variable declaration", ErrInvalidConfig)

	// ErrUnregisteredEvaluator is a branch failure, not a configuration error.
	ErrUnregisteredEvaluator = errors.New("unregistered evaluator")
)
