package result

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ure/pkg/ure/atom"
)

func cand(name string, s, c float64) Result {
	return Result{
		ID:   "id-" + name,
		Atom: atom.Inheritance(atom.Concept(name), atom.Concept("C")),
		TV:   atom.NewTruthValue(s, c),
	}
}

func TestAcceptKeepsFirstInsertionOrder(t *testing.T) {
	agg := NewAggregator(KeepHigherConfidence, 0)
	assert.True(t, agg.Accept(cand("A", 1, 0.5)))
	assert.True(t, agg.Accept(cand("B", 1, 0.5)))
	assert.True(t, agg.Accept(cand("A", 0.7, 0.9)), "higher confidence replaces")
	assert.False(t, agg.Accept(cand("A", 0.1, 0.2)), "lower confidence ignored")

	got := agg.Results()
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Atom.Child(0).Name())
	assert.Equal(t, 0.9, got[0].TV.Confidence)
	assert.Equal(t, "id-A", got[0].ID, "identity of the first acceptance is kept")
}

func TestAcceptEqualConfidenceKeepsEarlier(t *testing.T) {
	agg := NewAggregator(KeepHigherConfidence, 0)
	agg.Accept(cand("A", 0.3, 0.5))
	assert.False(t, agg.Accept(cand("A", 0.9, 0.5)))
	assert.Equal(t, 0.3, agg.Results()[0].TV.Strength)
}

func TestRevisePolicy(t *testing.T) {
	agg := NewAggregator(Revise, 0)
	agg.Accept(cand("A", 1, 0.5))
	agg.Accept(cand("A", 0, 0.5))

	got := agg.Results()
	require.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[0].TV.Strength, 1e-9)
	assert.Greater(t, got[0].TV.Confidence, 0.5)
}

func TestThresholdFiltering(t *testing.T) {
	agg := NewAggregator(KeepHigherConfidence, 0.95)
	agg.Accept(cand("A", 1, 0.9))
	agg.Accept(cand("B", 1, 0.5))

	assert.Empty(t, agg.Results())
	assert.Equal(t, 2, agg.Rejected())
}

func TestRejectsNonGround(t *testing.T) {
	agg := NewAggregator(KeepHigherConfidence, 0)
	r := Result{Atom: atom.Inheritance(atom.NewVariable("$x"), atom.Concept("C")), TV: atom.TrueTV}
	assert.False(t, agg.Accept(r))
	assert.False(t, agg.Accept(Result{}))
	assert.Zero(t, agg.Len())
}

func TestAcceptConcurrent(t *testing.T) {
	agg := NewAggregator(KeepHigherConfidence, 0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agg.Accept(cand("A", 1, float64(i)/16))
			agg.Accept(cand("B", 1, 0.5))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, agg.Len())
	for _, r := range agg.Results() {
		if r.Atom.Child(0).Name() == "A" {
			assert.Equal(t, 15.0/16, r.TV.Confidence)
		}
	}

	agg.Reset()
	assert.Zero(t, agg.Len())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("revise")
	require.NoError(t, err)
	assert.Equal(t, Revise, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, KeepHigherConfidence, p)

	_, err = ParsePolicy("average")
	assert.Error(t, err)
}
