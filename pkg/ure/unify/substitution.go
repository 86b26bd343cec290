package unify

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/ure/pkg/ure/atom"
)

// Substitution maps variable names to atoms. A value may itself be a
// variable, in which case lookups follow the chain.
//
// Substitutions are treated as values: every operation that adds bindings
// returns a new map and leaves its receiver untouched.
type Substitution map[string]*atom.Atom

// Clone returns a shallow copy of s.
func (s Substitution) Clone() Substitution {
	out := make(Substitution, len(s)+2)
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Walk follows variable bindings from a until it reaches an unbound
// variable or a non-variable atom.
func (s Substitution) Walk(a *atom.Atom) *atom.Atom {
	for a.IsVariable() {
		next, ok := s[a.Name()]
		if !ok {
			return a
		}
		a = next
	}
	return a
}

// Apply replaces every bound variable in a by its fully resolved value.
func (s Substitution) Apply(a *atom.Atom) *atom.Atom {
	if a.IsGround() || len(s) == 0 {
		return a
	}
	if a.IsVariable() {
		w := s.Walk(a)
		if w.IsVariable() {
			return w
		}
		return s.Apply(w)
	}
	out := a.Outgoing()
	var rebuilt []*atom.Atom
	for i, c := range out {
		nc := s.Apply(c)
		if rebuilt == nil && nc != c {
			rebuilt = make([]*atom.Atom, len(out))
			copy(rebuilt, out[:i])
		}
		if rebuilt != nil {
			rebuilt[i] = nc
		}
	}
	if rebuilt == nil {
		return a
	}
	return atom.NewLink(a.Type(), rebuilt...)
}

// Restrict returns the resolved bindings of the given variables only.
// Unbound variables are left out.
func (s Substitution) Restrict(vars []*atom.Atom) Substitution {
	out := make(Substitution, len(vars))
	for _, v := range vars {
		val := s.Apply(v)
		if val.IsVariable() && val.Name() == v.Name() {
			continue
		}
		out[v.Name()] = val
	}
	return out
}

// String renders the bindings sorted by variable name.
func (s Substitution) String() string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n)
		b.WriteString(" -> ")
		b.WriteString(s[n].Key())
	}
	b.WriteByte('}')
	return b.String()
}

// occurs reports whether variable v appears in a under s.
func (s Substitution) occurs(v string, a *atom.Atom) bool {
	a = s.Walk(a)
	if a.IsVariable() {
		return a.Name() == v
	}
	for _, c := range a.Outgoing() {
		if !c.IsGround() && s.occurs(v, c) {
			return true
		}
	}
	return false
}

// Rename returns a with every variable renamed by fn.
func Rename(a *atom.Atom, fn func(name string) string) *atom.Atom {
	if a.IsGround() {
		return a
	}
	if a.IsVariable() {
		return atom.NewVariable(fn(a.Name()))
	}
	out := a.Outgoing()
	children := make([]*atom.Atom, len(out))
	for i, c := range out {
		children[i] = Rename(c, fn)
	}
	return atom.NewLink(a.Type(), children...)
}

// Suffix renames every variable of a by appending "#tag", which keeps rule
// variables apart from goal variables and from other rule applications.
func Suffix(a *atom.Atom, tag string) *atom.Atom {
	return Rename(a, func(name string) string { return name + "#" + tag })
}

// Canonical returns the key of a with its variables renamed by order of
// first occurrence. Two patterns that differ only in variable names have
// the same canonical key.
func Canonical(a *atom.Atom) string {
	if a.IsGround() {
		return a.Key()
	}
	names := make(map[string]string)
	for i, v := range a.Variables() {
		names[v.Name()] = "$" + strconv.Itoa(i)
	}
	return Rename(a, func(name string) string { return names[name] }).Key()
}
