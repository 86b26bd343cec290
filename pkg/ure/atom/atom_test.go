package atom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/ure/pkg/ure/internalerr"
)

func TestStructuralIdentity(t *testing.T) {
	a1 := Inheritance(Concept("A"), Concept("B"))
	a2 := NewLink(InheritanceLink, NewNode(ConceptNode, "A"), NewNode(ConceptNode, "B"))

	assert.True(t, a1.Equal(a2))
	assert.Equal(t, a1.Key(), a2.Key())
	assert.False(t, a1.Equal(Inheritance(Concept("B"), Concept("A"))))
	assert.False(t, Concept("A").Equal(Predicate("A")), "type is part of identity")
}

func TestGroundAndVariables(t *testing.T) {
	x := NewVariable("$x")
	y := NewVariable("$y")
	pat := And(Inheritance(x, Concept("C")), Inheritance(y, x))

	assert.False(t, pat.IsGround())
	assert.True(t, Concept("C").IsGround())
	assert.Equal(t, KindVariable, x.Kind())

	vars := pat.Variables()
	require.Len(t, vars, 2)
	assert.Equal(t, "$x", vars[0].Name())
	assert.Equal(t, "$y", vars[1].Name())
}

func TestNewLinkCopiesChildren(t *testing.T) {
	children := []*Atom{Concept("A"), Concept("B")}
	l := NewLink(ListLink, children...)
	children[0] = Concept("Z")

	assert.Equal(t, "A", l.Child(0).Name())
}

func TestVirtualCall(t *testing.T) {
	p := GroundedPredicate("run-predicate")
	ev := Evaluation(p, Concept("Item0"), Concept("large"))

	require.True(t, ev.IsVirtual())
	name, args, ok := ev.VirtualCall()
	require.True(t, ok)
	assert.Equal(t, "run-predicate", name)
	require.Len(t, args, 2)
	assert.Equal(t, "large", args[1].Name())

	plain := Evaluation(Predicate("likes"), Concept("a"))
	assert.False(t, plain.IsVirtual())
}

func TestTruthValueClamp(t *testing.T) {
	tv := NewTruthValue(1.5, -0.2)
	assert.Equal(t, 1.0, tv.Strength)
	assert.Equal(t, 0.0, tv.Confidence)
	assert.True(t, tv.Valid())

	assert.False(t, TruthValue{Strength: 2}.Valid())
	assert.True(t, TruthValue{Strength: 2}.Clamp().Valid())
}

func TestTypeRegistry(t *testing.T) {
	r := NewTypeRegistry()

	assert.True(t, r.IsA(ConceptNode, NodeType))
	assert.True(t, r.IsA(ConceptNode, TopType))
	assert.False(t, r.IsA(ConceptNode, LinkType))
	assert.True(t, r.IsLink(AndLink))

	require.NoError(t, r.Register("SizeNode", ConceptNode))
	assert.True(t, r.IsA("SizeNode", ConceptNode))
	assert.True(t, r.IsNode("SizeNode"))
	require.NoError(t, r.Register("SizeNode", ConceptNode), "idempotent")

	err := r.Register("Orphan", "NoSuchParent")
	assert.True(t, errors.Is(err, internalerr.ErrUnknownType))
	assert.True(t, errors.Is(err, internalerr.ErrInvalidConfig))

	err = r.Register("SizeNode", PredicateNode)
	assert.Error(t, err)
}
