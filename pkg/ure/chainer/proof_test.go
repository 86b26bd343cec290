package chainer

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/result"
	"github.com/cognicore/ure/pkg/ure/store"
)

func TestExplainDeduction(t *testing.T) {
	st := factStore(t,
		store.Fact{Atom: inh("A", "B"), TV: atom.TrueTV},
		store.Fact{Atom: inh("B", "C"), TV: atom.TrueTV},
	)
	bc := runChain(t, st, ruleBases(t, deductionRule()), atom.Inheritance(who, atom.Concept("C")), conceptDecl("$who"), Options{})
	require.Len(t, bc.Results(), 1)

	r := bc.Results()[0]
	proof := r.Proof.(*Proof)
	assert.Equal(t, ProofRule, proof.Kind)
	assert.Equal(t, 1, proof.Steps())
	assert.Equal(t, 2, proof.Height())
	require.Len(t, proof.Premises, 2)
	assert.Equal(t, inh("A", "B").Key(), proof.Premises[0].Atom.Key())
	assert.Equal(t, inh("B", "C").Key(), proof.Premises[1].Atom.Key())

	out := Explain(r)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, `(InheritanceLink (ConceptNode "A") (ConceptNode "C")) (stv 1 1)`, lines[0])
	assert.Equal(t, `bindings: {$who -> (ConceptNode "A")}`, lines[1])
	assert.Equal(t, "proof (1 steps):", lines[2])
	assert.Equal(t, `  (InheritanceLink (ConceptNode "A") (ConceptNode "C")) (stv 1 1) [rule deduction (deduction)]`, lines[3])
	assert.Equal(t, `    (InheritanceLink (ConceptNode "A") (ConceptNode "B")) (stv 1 1) [fact]`, lines[4])
	assert.Equal(t, `    (InheritanceLink (ConceptNode "B") (ConceptNode "C")) (stv 1 1) [fact]`, lines[5])
}

func TestExplainConjunction(t *testing.T) {
	goal := atom.And(
		atom.Inheritance(vY, atom.Concept("Size")),
		atom.Inheritance(vX, atom.Concept("Items")),
		atom.Evaluation(atom.GroundedPredicate("run-predicate"), vX, vY),
	)
	bc := runChain(t, scenarioBStore(t), ruleBases(t, deductionRule()), goal, nil, Options{Evaluators: scenarioBEvaluators(t)})
	require.NotEmpty(t, bc.Results())

	out := Explain(bc.Results()[0])
	assert.Contains(t, out, "[conjunction]")
	assert.Contains(t, out, "[evaluated]")
	assert.Contains(t, out, "proof (0 steps):")
	assert.NotContains(t, out, "VariableNode")
}

func TestExplainWithoutProof(t *testing.T) {
	out := Explain(result.Result{Atom: inh("A", "B"), TV: atom.TrueTV})
	assert.Contains(t, out, "no proof recorded")
}

func TestMetricsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	st := factStore(t,
		store.Fact{Atom: inh("A", "B"), TV: atom.TrueTV},
		store.Fact{Atom: inh("B", "C"), TV: atom.TrueTV},
	)
	goal := atom.Inheritance(who, atom.Concept("C"))

	first := runChain(t, st, ruleBases(t, deductionRule()), goal, conceptDecl("$who"), Options{Registerer: reg})
	assert.Equal(t, 1.0, testutil.ToFloat64(first.metrics.runs))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.metrics.results))
	assert.Equal(t, float64(first.Stats().Expansions), testutil.ToFloat64(first.metrics.expansions))

	second := runChain(t, st, ruleBases(t, deductionRule()), goal, conceptDecl("$who"), Options{Registerer: reg})
	assert.Equal(t, 2.0, testutil.ToFloat64(second.metrics.runs))
	n, err := testutil.GatherAndCount(reg, "ure_chainer_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetricsDisabled(t *testing.T) {
	st := factStore(t)
	bc := runChain(t, st, ruleBases(t, deductionRule()), atom.Inheritance(who, atom.Concept("C")), nil, Options{})
	assert.Nil(t, bc.metrics)
	assert.Empty(t, bc.Results())
}
