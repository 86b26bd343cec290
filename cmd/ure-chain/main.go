package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string
	timeout    time.Duration

	// Query flags
	goalExpr     string
	varDecls     []string
	ruleBaseName string
	maxDepth     int
	workers      int
	includeFacts bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ure-chain",
	Short: "Backward chaining over a rule base and a fact store",
	Long: `ure-chain answers goal patterns by backward chaining.

Rule bases, facts and search settings come from a YAML config file. Facts can
also be kept in a SQLite database (--db). Goals and atoms are written as
s-expressions, for example:

  (InheritanceLink (VariableNode "$who") (ConceptNode "C"))`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd answers the goal and prints the groundings
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the backward chainer and print the results",
	RunE:  runChain,
}

// explainCmd answers the goal and prints a proof tree per result
var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Run the backward chainer and print the proof of every result",
	RunE:  explainChain,
}

// loadCmd imports the facts of the config file into the database
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import the facts of a config file into a SQLite database",
	RunE:  loadFacts,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config with rule bases, facts and chainer settings")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite fact database (default: in memory)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Operation timeout")

	// Query flags
	for _, cmd := range []*cobra.Command{runCmd, explainCmd} {
		cmd.Flags().StringVarP(&goalExpr, "goal", "g", "", "Goal pattern (default: the goal of the config file)")
		cmd.Flags().StringSliceVar(&varDecls, "vars", nil, `Variable declarations such as "$who:ConceptNode"`)
		cmd.Flags().StringVarP(&ruleBaseName, "rulebase", "r", "", "Rule base to chain with (default: from the config file)")
		cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum proof depth (default: from the config file)")
		cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent root branches (default: from the config file)")
		cmd.Flags().BoolVar(&includeFacts, "include-facts", false, "Also return stored facts that match the goal")
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
