package atom

import (
	"strconv"
	"strings"
)

// Kind tags the payload an Atom carries.
type Kind uint8

const (
	KindNode     Kind = iota // name payload
	KindLink                 // ordered children
	KindVariable             // name payload, only valid inside patterns
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindLink:
		return "link"
	case KindVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Atom is an immutable term of the knowledge graph.
//
// Identity is structural: two atoms built from the same type and name, or
// the same type and child sequence, have equal keys and are interchangeable.
// Atoms never reference themselves, so the graph they form is a DAG.
type Atom struct {
	kind   Kind
	typ    Type
	name   string
	out    []*Atom
	key    string
	ground bool
}

// NewNode creates a node atom. A VariableNode type yields a variable.
func NewNode(t Type, name string) *Atom {
	a := &Atom{kind: KindNode, typ: t, name: name, ground: true}
	if t == VariableNode {
		a.kind = KindVariable
		a.ground = false
	}
	a.key = "(" + string(t) + " " + strconv.Quote(name) + ")"
	return a
}

// NewVariable creates a VariableNode with the given name, e.g. "$x".
func NewVariable(name string) *Atom {
	return NewNode(VariableNode, name)
}

// NewLink creates a link atom over the given children.
func NewLink(t Type, out ...*Atom) *Atom {
	children := make([]*Atom, len(out))
	copy(children, out)

	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(string(t))
	ground := true
	for _, c := range children {
		b.WriteByte(' ')
		b.WriteString(c.key)
		ground = ground && c.ground
	}
	b.WriteByte(')')

	return &Atom{kind: KindLink, typ: t, out: children, key: b.String(), ground: ground}
}

// Convenience constructors for the common types.

func Concept(name string) *Atom { return NewNode(ConceptNode, name) }
func Predicate(name string) *Atom { return NewNode(PredicateNode, name) }
func GroundedPredicate(name string) *Atom { return NewNode(GroundedPredicateNode, name) }
func Inheritance(a, b *Atom) *Atom { return NewLink(InheritanceLink, a, b) }
func List(out ...*Atom) *Atom { return NewLink(ListLink, out...) }
func And(out ...*Atom) *Atom { return NewLink(AndLink, out...) }

// Evaluation builds (EvaluationLink pred (ListLink args...)).
func Evaluation(pred *Atom, args ...*Atom) *Atom {
	return NewLink(EvaluationLink, pred, List(args...))
}

func (a *Atom) Kind() Kind { return a.kind }
func (a *Atom) Type() Type { return a.typ }
func (a *Atom) Name() string { return a.name }
func (a *Atom) Arity() int { return len(a.out) }

// Key is the canonical s-expression of the atom; equal keys mean equal atoms.
func (a *Atom) Key() string { return a.key }
func (a *Atom) String() string { return a.key }

// Child returns the i-th outgoing atom of a link.
func (a *Atom) Child(i int) *Atom { return a.out[i] }

// Outgoing returns the children of a link. The slice must not be modified.
func (a *Atom) Outgoing() []*Atom { return a.out }

// IsNode reports whether a is a non-variable node.
func (a *Atom) IsNode() bool { return a.kind == KindNode }

// IsLink reports whether a is a link.
func (a *Atom) IsLink() bool { return a.kind == KindLink }

// IsVariable reports whether a is a variable.
func (a *Atom) IsVariable() bool { return a.kind == KindVariable }

// IsGround reports whether a contains no variables.
func (a *Atom) IsGround() bool { return a.ground }

// Equal compares atoms structurally.
func (a *Atom) Equal(b *Atom) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b || a.key == b.key
}

// Variables returns the distinct variables of a in order of first occurrence.
func (a *Atom) Variables() []*Atom {
	if a.ground {
		return nil
	}
	seen := make(map[string]bool)
	var out []*Atom
	var walk func(x *Atom)
	walk = func(x *Atom) {
		if x.ground {
			return
		}
		if x.kind == KindVariable {
			if !seen[x.name] {
				seen[x.name] = true
				out = append(out, x)
			}
			return
		}
		for _, c := range x.out {
			walk(c)
		}
	}
	walk(a)
	return out
}

// Contains reports whether b occurs anywhere inside a, a included.
func (a *Atom) Contains(b *Atom) bool {
	if a.Equal(b) {
		return true
	}
	for _, c := range a.out {
		if c.Contains(b) {
			return true
		}
	}
	return false
}

// IsVirtual reports whether a is an evaluation of a grounded predicate,
// i.e. a term whose truth value comes from an external evaluator.
func (a *Atom) IsVirtual() bool {
	return a.typ == EvaluationLink && len(a.out) == 2 && a.out[0].typ == GroundedPredicateNode
}

// VirtualCall splits a virtual term into its predicate name and arguments.
// A ListLink argument is unpacked; any other argument is passed alone.
func (a *Atom) VirtualCall() (name string, args []*Atom, ok bool) {
	if !a.IsVirtual() {
		return "", nil, false
	}
	arg := a.out[1]
	if arg.typ == ListLink {
		args = make([]*Atom, len(arg.out))
		copy(args, arg.out)
	} else {
		args = []*Atom{arg}
	}
	return a.out[0].name, args, true
}
