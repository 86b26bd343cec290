package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cognicore/ure/pkg/ure"
	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/config"
	"github.com/cognicore/ure/pkg/ure/evaluator"
	"github.com/cognicore/ure/pkg/ure/store"
	"github.com/cognicore/ure/pkg/ure/store/memstore"
	"github.com/cognicore/ure/pkg/ure/store/sqlite"
)

func buildEngine(ctx context.Context, configPath, dbPath string) (*ure.Engine, *config.Components, func(), error) {
	loader := config.Loader{ConfigPath: configPath}

	components, err := loader.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	var st store.Store = memstore.New()
	if dbPath != "" {
		st, err = sqlite.OpenSQLite(ctx, dbPath, sqlite.WithTypes(components.Types))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open store: %w", err)
		}
	}

	evals := evaluator.NewRegistry(logger)
	if err := registerBuiltins(evals); err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	engine := ure.New(ure.Options{
		Store:      st,
		RuleBases:  components.RuleBases,
		Evaluators: evals,
		Formulas:   components.Formulas,
		Logger:     logger,
		Registerer: prometheus.NewRegistry(),
		Chainer:    components.Options,
	})

	cleanup := func() {
		engine.Close()
	}

	return engine, components, cleanup, nil
}

const builtinCacheSize = 1024

// registerBuiltins adds the evaluators every config file may use.
func registerBuiltins(evals *evaluator.Registry) error {
	builtins := map[string]evaluator.Func{
		"equal":     identical(true),
		"not-equal": identical(false),
	}
	for name, fn := range builtins {
		memo, err := evaluator.Memoize(fn, builtinCacheSize)
		if err != nil {
			return err
		}
		if err := evals.Register(name, memo, evaluator.Reentrant()); err != nil {
			return err
		}
	}
	return nil
}

// identical holds when all arguments are the same atom, or, with
// want false, when they are not.
func identical(want bool) evaluator.Func {
	return func(args []*atom.Atom) (atom.TruthValue, error) {
		if len(args) == 0 {
			return atom.TruthValue{}, fmt.Errorf("no arguments")
		}
		same := true
		for _, a := range args[1:] {
			same = same && a.Equal(args[0])
		}
		if same == want {
			return atom.TrueTV, nil
		}
		return atom.NewTruthValue(0, 1), nil
	}
}
