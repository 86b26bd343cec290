package ure

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/chainer"
	"github.com/cognicore/ure/pkg/ure/formula"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/rulebase"
	"github.com/cognicore/ure/pkg/ure/store"
	"github.com/cognicore/ure/pkg/ure/store/memstore"
	"github.com/cognicore/ure/pkg/ure/unify"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	rule := &rulebase.Rule{
		Name: "deduction",
		Premises: []*atom.Atom{
			atom.MustParse(`(InheritanceLink (VariableNode "$A") (VariableNode "$B"))`),
			atom.MustParse(`(InheritanceLink (VariableNode "$B") (VariableNode "$C"))`),
		},
		Conclusion: atom.MustParse(`(InheritanceLink (VariableNode "$A") (VariableNode "$C"))`),
		Formula:    formula.Deduction,
		Weight:     1,
	}
	rb, err := rulebase.New("crisp", formula.NewLibrary(), rule)
	if err != nil {
		t.Fatal(err)
	}
	rbs, err := rulebase.NewRegistry(rb)
	if err != nil {
		t.Fatal(err)
	}
	return New(Options{Store: memstore.New(), RuleBases: rbs})
}

func TestQueryReturnsExplainedAnswers(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	defer engine.Close()

	facts := []store.Fact{
		{Atom: atom.MustParse(`(InheritanceLink (ConceptNode "A") (ConceptNode "B"))`), TV: atom.TrueTV},
		{Atom: atom.MustParse(`(InheritanceLink (ConceptNode "B") (ConceptNode "C"))`), TV: atom.TrueTV},
	}
	if err := engine.AddFacts(ctx, facts); err != nil {
		t.Fatalf("add facts: %v", err)
	}

	resp, err := engine.Query(ctx, QueryRequest{
		RuleBase: "crisp",
		Goal:     atom.MustParse(`(InheritanceLink (VariableNode "$who") (ConceptNode "C"))`),
		Decl:     unify.Typed(unify.Decl{Var: "$who", Types: []atom.Type{atom.ConceptNode}}),
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(resp.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(resp.Answers))
	}
	ans := resp.Answers[0]
	if got := ans.Bindings["$who"].Name(); got != "A" {
		t.Errorf("expected $who = A, got %s", got)
	}
	if !strings.Contains(ans.Explanation, "rule deduction") {
		t.Errorf("explanation lacks the rule:\n%s", ans.Explanation)
	}
	if resp.Stats.Accepted != 1 {
		t.Errorf("expected 1 accepted, got %d", resp.Stats.Accepted)
	}
}

func TestQueryOptionsOverrideDefaults(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	defer engine.Close()

	facts := []store.Fact{
		{Atom: atom.MustParse(`(InheritanceLink (ConceptNode "A") (ConceptNode "B"))`), TV: atom.NewTruthValue(1, 0.4)},
		{Atom: atom.MustParse(`(InheritanceLink (ConceptNode "B") (ConceptNode "C"))`), TV: atom.NewTruthValue(1, 0.4)},
	}
	if err := engine.AddFacts(ctx, facts); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Query(ctx, QueryRequest{
		RuleBase: "crisp",
		Goal:     atom.MustParse(`(InheritanceLink (VariableNode "$who") (ConceptNode "C"))`),
		Options:  &chainer.Options{ConfidenceThreshold: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Answers) != 0 {
		t.Errorf("threshold should drop every answer, got %d", len(resp.Answers))
	}
}

func TestQueryUnknownRuleBase(t *testing.T) {
	engine := newEngine(t)
	defer engine.Close()

	_, err := engine.Query(context.Background(), QueryRequest{
		RuleBase: "fuzzy",
		Goal:     atom.MustParse(`(ConceptNode "A")`),
	})
	if !errors.Is(err, internalerr.ErrUnknownRuleBase) {
		t.Errorf("expected ErrUnknownRuleBase, got %v", err)
	}
}

func TestAddFactsRejectsVariables(t *testing.T) {
	engine := newEngine(t)
	defer engine.Close()

	err := engine.AddFacts(context.Background(), []store.Fact{{Atom: atom.NewVariable("$x"), TV: atom.TrueTV}})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEngineWithoutStore(t *testing.T) {
	engine := New(Options{})
	if err := engine.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if engine.RuleBases() == nil || len(engine.RuleBases().Names()) != 0 {
		t.Fatalf("expected an empty rule-base registry")
	}

	err := engine.AddFacts(context.Background(), []store.Fact{{Atom: atom.MustParse(`(ConceptNode "A")`), TV: atom.TrueTV}})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig from AddFacts, got %v", err)
	}
	_, err = engine.Query(context.Background(), QueryRequest{Goal: atom.MustParse(`(ConceptNode "A")`)})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig from Query, got %v", err)
	}
}
