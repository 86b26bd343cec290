package unify

import (
	"fmt"
	"strings"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/internalerr"
)

// Mode selects how a VarDecl constrains variables.
type Mode uint8

const (
	// ModeUnconstrained accepts any variable bound to any type. The set of
	// variables is taken from the pattern it is resolved against.
	ModeUnconstrained Mode = iota
	// ModeEmpty declares that the pattern has no variables at all.
	ModeEmpty
	// ModeTyped lists every variable together with its allowed types.
	ModeTyped
)

func (m Mode) String() string {
	switch m {
	case ModeUnconstrained:
		return "unconstrained"
	case ModeEmpty:
		return "empty"
	case ModeTyped:
		return "typed"
	default:
		return "unknown"
	}
}

// TypeChecker decides whether a variable may be bound to a value.
type TypeChecker interface {
	Admits(name string, value *atom.Atom) bool
}

// Decl is one (variable, allowed types) entry. An empty Types list leaves
// the variable unconstrained.
type Decl struct {
	Var   string
	Types []atom.Type
}

// VarDecl is a variable declaration attached to a goal or a rule.
// The zero value is unusable; use Unconstrained, Empty or Typed.
type VarDecl struct {
	mode  Mode
	order []string
	types map[string][]atom.Type
	reg   *atom.TypeRegistry
}

// Unconstrained returns the "any variable, any type" declaration.
func Unconstrained() *VarDecl {
	return &VarDecl{mode: ModeUnconstrained, types: map[string][]atom.Type{}, reg: atom.DefaultTypes}
}

// Empty returns the declaration of a variable-free pattern.
func Empty() *VarDecl {
	return &VarDecl{mode: ModeEmpty, types: map[string][]atom.Type{}, reg: atom.DefaultTypes}
}

// Typed returns an explicit declaration checked against atom.DefaultTypes.
func Typed(decls ...Decl) *VarDecl {
	return TypedWith(atom.DefaultTypes, decls...)
}

// TypedWith returns an explicit declaration checked against reg.
func TypedWith(reg *atom.TypeRegistry, decls ...Decl) *VarDecl {
	d := &VarDecl{mode: ModeTyped, types: make(map[string][]atom.Type, len(decls)), reg: reg}
	for _, e := range decls {
		if _, dup := d.types[e.Var]; !dup {
			d.order = append(d.order, e.Var)
		}
		d.types[e.Var] = append(d.types[e.Var], e.Types...)
	}
	return d
}

// ParseDecl reads "$x:ConceptNode|PredicateNode" or a bare "$x".
func ParseDecl(s string) (Decl, error) {
	name, types, _ := strings.Cut(strings.TrimSpace(s), ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Decl{}, fmt.Errorf("variable declaration %q: %w", s, internalerr.ErrInvalidVarDecl)
	}
	d := Decl{Var: name}
	if types = strings.TrimSpace(types); types != "" {
		for _, t := range strings.Split(types, "|") {
			d.Types = append(d.Types, atom.Type(strings.TrimSpace(t)))
		}
	}
	return d, nil
}

func (d *VarDecl) Mode() Mode { return d.mode }

// Variables returns the declared variable names in declaration order.
func (d *VarDecl) Variables() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Types returns the allowed types of a variable. A nil result means any type.
func (d *VarDecl) Types(name string) []atom.Type {
	return d.types[name]
}

// Validate checks that every declared type exists.
func (d *VarDecl) Validate() error {
	for _, name := range d.order {
		for _, t := range d.types[name] {
			if !d.reg.Exists(t) {
				return fmt.Errorf("variable %s: type %q: %w", name, t, internalerr.ErrUnknownType)
			}
		}
	}
	return nil
}

// Resolve checks the declaration against a pattern and returns the typed
// declaration actually in force for it:
//   - Empty is rejected when the pattern has variables;
//   - Unconstrained lists the pattern's free variables with no constraint;
//   - Typed must declare every free variable of the pattern.
func (d *VarDecl) Resolve(pattern *atom.Atom) (*VarDecl, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	vars := pattern.Variables()

	switch d.mode {
	case ModeEmpty:
		if len(vars) > 0 {
			return nil, fmt.Errorf("empty declaration for pattern with variable %s: %w", vars[0].Name(), internalerr.ErrInvalidVarDecl)
		}
		return TypedWith(d.reg), nil
	case ModeUnconstrained:
		decls := make([]Decl, len(vars))
		for i, v := range vars {
			decls[i] = Decl{Var: v.Name()}
		}
		return TypedWith(d.reg, decls...), nil
	default:
		for _, v := range vars {
			if _, ok := d.types[v.Name()]; !ok {
				return nil, fmt.Errorf("variable %s is not declared: %w", v.Name(), internalerr.ErrInvalidVarDecl)
			}
		}
		return d, nil
	}
}

// Admits implements TypeChecker. Variables the declaration does not
// constrain, and variable values, are always admitted.
func (d *VarDecl) Admits(name string, value *atom.Atom) bool {
	allowed := d.types[name]
	if len(allowed) == 0 || value.IsVariable() {
		return true
	}
	for _, t := range allowed {
		if d.reg.IsA(value.Type(), t) {
			return true
		}
	}
	return false
}

// WithSuffix returns a copy whose variable names carry the "#tag" suffix
// used by Suffix.
func (d *VarDecl) WithSuffix(tag string) *VarDecl {
	out := &VarDecl{mode: d.mode, types: make(map[string][]atom.Type, len(d.types)), reg: d.reg}
	for _, name := range d.order {
		renamed := name + "#" + tag
		out.order = append(out.order, renamed)
		out.types[renamed] = d.types[name]
	}
	return out
}

func (d *VarDecl) String() string {
	if d.mode != ModeTyped {
		return d.mode.String()
	}
	parts := make([]string, len(d.order))
	for i, name := range d.order {
		ts := d.types[name]
		if len(ts) == 0 {
			parts[i] = name
			continue
		}
		names := make([]string, len(ts))
		for j, t := range ts {
			names[j] = string(t)
		}
		parts[i] = name + ":" + strings.Join(names, "|")
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Scope chains type checkers: a binding is admitted only if every checker
// in the chain admits it. Scopes are immutable and may be shared by
// branches that extend them independently.
type Scope struct {
	tc     TypeChecker
	parent *Scope
}

// NewScope starts a chain with tc.
func NewScope(tc TypeChecker) *Scope {
	return &Scope{tc: tc}
}

// Extend returns a child scope adding tc.
func (s *Scope) Extend(tc TypeChecker) *Scope {
	return &Scope{tc: tc, parent: s}
}

// Admits implements TypeChecker.
func (s *Scope) Admits(name string, value *atom.Atom) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.tc != nil && !cur.tc.Admits(name, value) {
			return false
		}
	}
	return true
}
