package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/ure/pkg/ure/atom"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func crispConfig(t *testing.T) string {
	return filepath.Join(repoRoot(t), "pkg", "ure", "config", "testdata", "crisp.yaml")
}

// resetFlags restores every flag global and points the logger at a no-op core.
func resetFlags(t *testing.T) {
	t.Helper()
	logger = zap.NewNop()
	verbose = false
	configPath = ""
	dbPath = ""
	timeout = time.Minute
	goalExpr = ""
	varDecls = nil
	ruleBaseName = ""
	maxDepth = 0
	workers = 0
	includeFacts = false
}

const rulesOnly = `
rulebases:
  - name: crisp
    rules:
      - name: deduction
        formula: deduction
        premises:
          - (InheritanceLink (VariableNode "$A") (VariableNode "$B"))
          - (InheritanceLink (VariableNode "$B") (VariableNode "$C"))
        conclusion: (InheritanceLink (VariableNode "$A") (VariableNode "$C"))
goal:
  atom: (InheritanceLink (VariableNode "$who") (ConceptNode "C"))
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func execute(t *testing.T, run func(*cobra.Command, []string) error) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	err := run(cmd, nil)
	return out.String(), err
}

func TestBuildEngine(t *testing.T) {
	resetFlags(t)
	ctx := context.Background()

	engine, comp, cleanup, err := buildEngine(ctx, crispConfig(t), "")
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	defer cleanup()

	if engine == nil {
		t.Fatal("Expected non-nil engine")
	}
	if len(comp.Facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(comp.Facts))
	}
	names := engine.Evaluators().Names()
	if strings.Join(names, ",") != "equal,not-equal" {
		t.Fatalf("unexpected builtin evaluators %v", names)
	}
}

func TestBuildEngineNonExistentConfig(t *testing.T) {
	resetFlags(t)
	_, _, _, err := buildEngine(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestRunPrintsResults(t *testing.T) {
	resetFlags(t)
	configPath = crispConfig(t)

	out, err := execute(t, runChain)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `1. (InheritanceLink (ConceptNode "A") (ConceptNode "C")) (stv 1 1)`
	if !strings.Contains(out, want) {
		t.Fatalf("output missing %q:\n%s", want, out)
	}
	if !strings.Contains(out, `$who -> (ConceptNode "A")`) {
		t.Fatalf("output missing binding:\n%s", out)
	}
	if !strings.Contains(out, "1 results") {
		t.Fatalf("output missing stats:\n%s", out)
	}
}

func TestRunGoalFlagOverridesConfig(t *testing.T) {
	resetFlags(t)
	configPath = crispConfig(t)
	goalExpr = `(InheritanceLink (ConceptNode "A") (VariableNode "$what"))`
	varDecls = []string{"$what:ConceptNode"}
	includeFacts = true

	out, err := execute(t, runChain)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{`(ConceptNode "B")`, `(ConceptNode "C")`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s:\n%s", want, out)
		}
	}
}

func TestRunMaxDepthFlag(t *testing.T) {
	resetFlags(t)
	configPath = crispConfig(t)
	goalExpr = `(InheritanceLink (VariableNode "$who") (ConceptNode "C"))`
	maxDepth = 1

	out, err := execute(t, runChain)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, `(ConceptNode "A") (ConceptNode "C")`) {
		t.Fatalf("depth 1 should still derive A->C:\n%s", out)
	}
}

func TestExplainPrintsProof(t *testing.T) {
	resetFlags(t)
	configPath = crispConfig(t)

	out, err := execute(t, explainChain)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	for _, want := range []string{"--- Result 1 ---", "proof (1 steps):", "rule deduction (deduction)", "[fact]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunWithoutGoal(t *testing.T) {
	resetFlags(t)
	configPath = filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, configPath, "facts: []\n")

	_, err := execute(t, runChain)
	if err == nil || !strings.Contains(err.Error(), "no goal") {
		t.Fatalf("expected no goal error, got %v", err)
	}
}

func TestRunUnknownRuleBase(t *testing.T) {
	resetFlags(t)
	configPath = crispConfig(t)
	ruleBaseName = "missing"

	if _, err := execute(t, runChain); err == nil {
		t.Fatal("expected error for unknown rule base")
	}
}

func TestLoadFactsIntoDatabase(t *testing.T) {
	resetFlags(t)
	configPath = crispConfig(t)
	dbPath = filepath.Join(t.TempDir(), "facts.db")

	out, err := execute(t, loadFacts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(out, "Loaded 2 facts") {
		t.Fatalf("unexpected output %q", out)
	}

	// A rules-only config now answers the goal from the database.
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, rules, rulesOnly)
	configPath = rules

	out, err = execute(t, runChain)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, `(InheritanceLink (ConceptNode "A") (ConceptNode "C"))`) {
		t.Fatalf("stored facts were not used:\n%s", out)
	}
}

func TestLoadFactsRequiresDatabase(t *testing.T) {
	resetFlags(t)
	configPath = crispConfig(t)

	if _, err := execute(t, loadFacts); err == nil {
		t.Fatal("expected error without --db")
	}
}

func TestIdenticalEvaluator(t *testing.T) {
	a, b := atom.Concept("A"), atom.Concept("B")

	tv, err := identical(true)([]*atom.Atom{a, a})
	if err != nil || tv.Strength != 1 {
		t.Fatalf("equal(A, A) = %v, %v", tv, err)
	}
	tv, err = identical(true)([]*atom.Atom{a, b})
	if err != nil || tv.Strength != 0 {
		t.Fatalf("equal(A, B) = %v, %v", tv, err)
	}
	tv, err = identical(false)([]*atom.Atom{a, b})
	if err != nil || tv.Strength != 1 {
		t.Fatalf("not-equal(A, B) = %v, %v", tv, err)
	}
	if _, err := identical(true)(nil); err == nil {
		t.Fatal("expected error without arguments")
	}
}
