package atom

import (
	"fmt"
	"math"
)

// TruthValue is a (strength, confidence) pair, both in [0,1].
type TruthValue struct {
	Strength   float64
	Confidence float64
}

var (
	// DefaultTV is attached to atoms that carry no evidence.
	DefaultTV = TruthValue{Strength: 1, Confidence: 0}
	// TrueTV is full-strength, full-confidence belief.
	TrueTV = TruthValue{Strength: 1, Confidence: 1}
)

// NewTruthValue builds a truth value, clamping both components into [0,1].
// NaN components become 0.
func NewTruthValue(strength, confidence float64) TruthValue {
	return TruthValue{Strength: clamp01(strength), Confidence: clamp01(confidence)}
}

// Clamp returns tv with both components forced into [0,1].
func (tv TruthValue) Clamp() TruthValue {
	return NewTruthValue(tv.Strength, tv.Confidence)
}

// Valid reports whether both components lie in [0,1].
func (tv TruthValue) Valid() bool {
	return tv.Strength >= 0 && tv.Strength <= 1 && tv.Confidence >= 0 && tv.Confidence <= 1
}

// Equal compares within a small tolerance.
func (tv TruthValue) Equal(other TruthValue) bool {
	const eps = 1e-9
	return math.Abs(tv.Strength-other.Strength) < eps && math.Abs(tv.Confidence-other.Confidence) < eps
}

func (tv TruthValue) String() string {
	return fmt.Sprintf("(stv %.4g %.4g)", tv.Strength, tv.Confidence)
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
