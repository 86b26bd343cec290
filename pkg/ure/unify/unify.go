package unify

import (
	"github.com/cognicore/ure/pkg/ure/atom"
)

// Unify computes the most general substitution extending sub under which
// pattern and candidate become structurally identical.
//
// Either side may contain variables. Matching fails when node types or
// names differ, link types or arities differ, a variable would need two
// different values, or tc rejects a binding. A nil tc admits everything.
// The input substitution is never modified.
func Unify(pattern, candidate *atom.Atom, sub Substitution, tc TypeChecker) (Substitution, bool) {
	out := sub.Clone()
	if !unify(pattern, candidate, out, tc) {
		return nil, false
	}
	if tc != nil && !admitted(out, tc) {
		return nil, false
	}
	return out, true
}

// Match is Unify for a ground candidate with no prior bindings.
func Match(pattern, candidate *atom.Atom, tc TypeChecker) (Substitution, bool) {
	return Unify(pattern, candidate, nil, tc)
}

func unify(a, b *atom.Atom, s Substitution, tc TypeChecker) bool {
	a = s.Walk(a)
	b = s.Walk(b)
	if a.Equal(b) {
		return true
	}

	switch {
	case a.IsVariable():
		return bind(a, b, s, tc)
	case b.IsVariable():
		return bind(b, a, s, tc)
	}

	if a.Kind() != b.Kind() || a.Type() != b.Type() {
		return false
	}
	if !a.IsLink() {
		// same type, keys differ: different names
		return false
	}
	if a.Arity() != b.Arity() {
		return false
	}
	for i := 0; i < a.Arity(); i++ {
		if !unify(a.Child(i), b.Child(i), s, tc) {
			return false
		}
	}
	return true
}

func bind(v, value *atom.Atom, s Substitution, tc TypeChecker) bool {
	if !value.IsVariable() {
		if s.occurs(v.Name(), value) {
			return false
		}
		if tc != nil && !tc.Admits(v.Name(), value) {
			return false
		}
	}
	s[v.Name()] = value
	return true
}

// admitted re-checks every binding whose value resolves to a non-variable.
// This catches variables that were first bound to another variable and
// only later received a value.
func admitted(s Substitution, tc TypeChecker) bool {
	for name, val := range s {
		resolved := s.Walk(val)
		if !resolved.IsVariable() && !tc.Admits(name, resolved) {
			return false
		}
	}
	return true
}
