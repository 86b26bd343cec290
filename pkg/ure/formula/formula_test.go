package formula

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/internalerr"
)

func tv(s, c float64) atom.TruthValue { return atom.NewTruthValue(s, c) }

func TestDeductionCrisp(t *testing.T) {
	lib := NewLibrary()
	fn, err := lib.Lookup(Deduction)
	require.NoError(t, err)

	got := fn([]atom.TruthValue{tv(1, 1), tv(1, 1)})
	assert.True(t, got.Equal(atom.TrueTV), "got %v", got)
}

func TestDeductionConfidenceNeverExceedsPremises(t *testing.T) {
	fn, err := NewLibrary().Lookup(Deduction)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		ab := tv(r.Float64(), r.Float64())
		bc := tv(r.Float64(), r.Float64())
		got := fn([]atom.TruthValue{ab, bc})

		require.True(t, got.Valid(), "ab=%v bc=%v got=%v", ab, bc, got)
		require.LessOrEqual(t, got.Confidence, ab.Confidence)
		require.LessOrEqual(t, got.Confidence, bc.Confidence)
	}
}

func TestDeductionWithTermTruthValues(t *testing.T) {
	fn := DeductionWithPriors(DefaultPriorB, DefaultPriorC)

	// B covers everything: A→C collapses to P(C)
	got := fn([]atom.TruthValue{tv(0.5, 1), tv(0.5, 1), tv(1, 1), tv(0.3, 1)})
	assert.InDelta(t, 0.3, got.Strength, 1e-9)

	got = fn([]atom.TruthValue{tv(0.8, 0.9), tv(0.5, 0.7), tv(0.2, 1), tv(0.4, 1)})
	// 0.8*0.5 + 0.2*(0.4-0.1)/0.8
	assert.InDelta(t, 0.475, got.Strength, 1e-9)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
}

func TestConjunctions(t *testing.T) {
	premises := []atom.TruthValue{tv(1, 1), tv(0.9, 0.9), tv(0.8, 1)}

	got := ProductConjunction(premises)
	assert.InDelta(t, 0.72, got.Strength, 1e-9)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)

	got = MinConjunction(premises)
	assert.InDelta(t, 0.8, got.Strength, 1e-9)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)

	assert.Equal(t, atom.TrueTV, ProductConjunction(nil))
}

func TestIdentityAndModusPonens(t *testing.T) {
	assert.Equal(t, tv(0.3, 0.4), PassThrough([]atom.TruthValue{tv(0.3, 0.4), tv(1, 1)}))
	assert.Equal(t, atom.DefaultTV, PassThrough(nil))

	got := ModusPonensFormula([]atom.TruthValue{tv(1, 0.8), tv(0.9, 0.6)})
	assert.InDelta(t, 0.9, got.Strength, 1e-9)
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
}

func TestRevision(t *testing.T) {
	got := RevisionFormula([]atom.TruthValue{tv(1, 0.5), tv(0, 0.5)})
	assert.InDelta(t, 0.5, got.Strength, 1e-9)
	assert.Greater(t, got.Confidence, 0.5, "more evidence, more confidence")

	got = RevisionFormula([]atom.TruthValue{tv(1, 1), tv(1, 1)})
	assert.True(t, got.Valid())
}

func TestLookupUnknown(t *testing.T) {
	_, err := NewLibrary().Lookup("no-such-formula")
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrUnknownFormula))
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))
}

func TestLookupClampsCustomFormulas(t *testing.T) {
	lib := NewLibrary()
	require.NoError(t, lib.Register("broken", func([]atom.TruthValue) atom.TruthValue {
		return atom.TruthValue{Strength: 3, Confidence: -1}
	}))
	fn, err := lib.Lookup("broken")
	require.NoError(t, err)
	assert.True(t, fn(nil).Valid())
	assert.True(t, lib.Has("broken"))
	assert.Contains(t, lib.Names(), Deduction)
}
