package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/ure/pkg/ure"
	"github.com/cognicore/ure/pkg/ure/chainer"
	"github.com/cognicore/ure/pkg/ure/config"
)

func runChain(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := query(ctx)
	if err != nil {
		return err
	}
	printResults(cmd.OutOrStdout(), resp, false)
	return nil
}

func explainChain(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := query(ctx)
	if err != nil {
		return err
	}
	printResults(cmd.OutOrStdout(), resp, true)
	return nil
}

func loadFacts(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return errors.New("--db required")
	}
	if configPath == "" {
		return errors.New("--config required")
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	engine, comp, cleanup, err := buildEngine(ctx, configPath, dbPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := engine.AddFacts(ctx, comp.Facts); err != nil {
		return err
	}
	logger.Info("facts loaded", zap.Int("facts", len(comp.Facts)), zap.String("db", dbPath))
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d facts into %s\n", len(comp.Facts), dbPath)
	return nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// query builds the engine, adds the config facts and answers the goal.
func query(ctx context.Context) (ure.QueryResponse, error) {
	engine, comp, cleanup, err := buildEngine(ctx, configPath, dbPath)
	if err != nil {
		return ure.QueryResponse{}, err
	}
	defer cleanup()

	if err := engine.AddFacts(ctx, comp.Facts); err != nil {
		return ure.QueryResponse{}, err
	}

	req, err := queryRequest(comp)
	if err != nil {
		return ure.QueryResponse{}, err
	}
	logger.Debug("querying",
		zap.Stringer("goal", req.Goal),
		zap.String("rulebase", req.RuleBase),
		zap.Int("max_depth", req.Options.MaxDepth))
	return engine.Query(ctx, req)
}

// queryRequest merges the command line flags over the config file.
func queryRequest(comp *config.Components) (ure.QueryRequest, error) {
	req := ure.QueryRequest{
		RuleBase: comp.RuleBase,
		Goal:     comp.Goal,
		Decl:     comp.GoalDecl,
	}
	if ruleBaseName != "" {
		req.RuleBase = ruleBaseName
	}
	if goalExpr != "" {
		goal, decl, err := config.ParseGoal(comp.Types, goalExpr, varDecls)
		if err != nil {
			return ure.QueryRequest{}, fmt.Errorf("goal: %w", err)
		}
		req.Goal, req.Decl = goal, decl
	}
	if req.Goal == nil {
		return ure.QueryRequest{}, errors.New("no goal: pass --goal or set goal in the config file")
	}

	opts := comp.Options
	if maxDepth > 0 {
		opts.MaxDepth = maxDepth
	}
	if workers > 0 {
		opts.Workers = workers
	}
	if includeFacts {
		opts.IncludeFacts = true
	}
	req.Options = &opts
	return req, nil
}

func printResults(w io.Writer, resp ure.QueryResponse, explain bool) {
	if len(resp.Answers) == 0 {
		fmt.Fprintln(w, "No results found.")
	}
	for i, ans := range resp.Answers {
		if explain {
			fmt.Fprintf(w, "\n--- Result %d ---\n%s", i+1, ans.Explanation)
			continue
		}
		fmt.Fprintf(w, "%d. %s %s\n", i+1, ans.Atom, ans.TV)
		if len(ans.Bindings) > 0 {
			fmt.Fprintf(w, "   %s\n", ans.Bindings)
		}
	}
	printStats(w, len(resp.Answers), resp.Stats)
}

func printStats(w io.Writer, n int, s chainer.Stats) {
	fmt.Fprintf(w, "\n%d results, %d rounds, %d expansions, %d rule applications, %d cycle prunes in %s\n",
		n, s.Rounds, s.Expansions, s.RuleApplications, s.CyclePrunes, s.Duration)
	if s.Exhausted {
		fmt.Fprintln(w, "iteration budget exhausted; results may be incomplete")
	}
}
