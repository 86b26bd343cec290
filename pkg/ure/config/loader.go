// Package config loads rule bases, facts and chainer settings from YAML.
package config

import (
	"fmt"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/chainer"
	"github.com/cognicore/ure/pkg/ure/formula"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/rulebase"
	"github.com/cognicore/ure/pkg/ure/store"
	"github.com/cognicore/ure/pkg/ure/unify"
)

// Loader loads a configuration file and constructs components
type Loader struct {
	ConfigPath string
	// Formulas resolves rule formulas; nil uses the built-in library.
	Formulas *formula.Library
}

// Components holds everything a configuration file describes
type Components struct {
	Types     *atom.TypeRegistry
	Formulas  *formula.Library
	RuleBases *rulebase.Registry
	Facts     []store.Fact

	RuleBase string
	Options  chainer.Options

	// Goal is nil when the file names no default goal.
	Goal     *atom.Atom
	GoalDecl *unify.VarDecl
}

// Load reads the configuration file and returns initialized components.
// An empty ConfigPath yields empty components.
func (l *Loader) Load() (*Components, error) {
	f := &File{}
	if l.ConfigPath != "" {
		var err error
		if f, err = LoadFile(l.ConfigPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	return Build(f, l.Formulas)
}

// Build turns a decoded file into components.
func Build(f *File, lib *formula.Library) (*Components, error) {
	if lib == nil {
		lib = formula.NewLibrary()
	}
	comp := &Components{
		Types:    atom.NewTypeRegistry(),
		Formulas: lib,
		RuleBase: f.Chainer.RuleBase,
	}

	for _, td := range f.Types {
		if err := comp.Types.Register(atom.Type(td.Name), atom.Type(td.Parent)); err != nil {
			return nil, fmt.Errorf("type %s: %w", td.Name, err)
		}
	}

	bases := make([]*rulebase.RuleBase, 0, len(f.RuleBases))
	for _, def := range f.RuleBases {
		rb, err := buildRuleBase(comp.Types, lib, def)
		if err != nil {
			return nil, err
		}
		bases = append(bases, rb)
	}
	var err error
	if comp.RuleBases, err = rulebase.NewRegistry(bases...); err != nil {
		return nil, err
	}
	if comp.RuleBase == "" && len(bases) == 1 {
		comp.RuleBase = bases[0].Name()
	}

	for i, fd := range f.Facts {
		fact, err := buildFact(comp.Types, fd)
		if err != nil {
			return nil, fmt.Errorf("fact %d: %w", i, err)
		}
		comp.Facts = append(comp.Facts, fact)
	}

	if comp.Options, err = f.Chainer.Options(); err != nil {
		return nil, err
	}
	comp.Options.Formulas = lib

	if f.Goal != nil {
		if comp.Goal, comp.GoalDecl, err = ParseGoal(comp.Types, f.Goal.Atom, f.Goal.Variables); err != nil {
			return nil, fmt.Errorf("goal: %w", err)
		}
	}
	return comp, nil
}

// ParseGoal parses a goal and its declaration. A nil entries slice is the
// unconstrained declaration; an empty one declares a ground goal.
func ParseGoal(reg *atom.TypeRegistry, goal string, entries []string) (*atom.Atom, *unify.VarDecl, error) {
	g, err := reg.Parse(goal)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case entries == nil:
		return g, unify.Unconstrained(), nil
	case len(entries) == 0:
		return g, unify.Empty(), nil
	}
	decl, err := ParseDecl(reg, entries)
	if err != nil {
		return nil, nil, err
	}
	return g, decl, nil
}

func buildRuleBase(reg *atom.TypeRegistry, lib *formula.Library, def RuleBaseDef) (*rulebase.RuleBase, error) {
	rules := make([]*rulebase.Rule, 0, len(def.Rules))
	for _, rd := range def.Rules {
		r := &rulebase.Rule{
			Name:    rd.Name,
			Weight:  rd.Weight,
			Formula: rd.Formula,
		}
		if r.Formula == "" {
			r.Formula = formula.Identity
		}
		for _, p := range rd.Premises {
			a, err := reg.Parse(p)
			if err != nil {
				return nil, fmt.Errorf("rule base %s: rule %s: premise: %w", def.Name, rd.Name, err)
			}
			r.Premises = append(r.Premises, a)
		}
		if rd.Conclusion == "" {
			return nil, fmt.Errorf("rule base %s: rule %s: no conclusion: %w", def.Name, rd.Name, internalerr.ErrInvalidConfig)
		}
		c, err := reg.Parse(rd.Conclusion)
		if err != nil {
			return nil, fmt.Errorf("rule base %s: rule %s: conclusion: %w", def.Name, rd.Name, err)
		}
		r.Conclusion = c
		if rd.Variables != nil {
			if r.Decl, err = ParseDecl(reg, rd.Variables); err != nil {
				return nil, fmt.Errorf("rule base %s: rule %s: %w", def.Name, rd.Name, err)
			}
		}
		rules = append(rules, r)
	}
	return rulebase.New(def.Name, lib, rules...)
}

func buildFact(reg *atom.TypeRegistry, fd FactDef) (store.Fact, error) {
	a, err := reg.Parse(fd.Atom)
	if err != nil {
		return store.Fact{}, err
	}
	if !a.IsGround() {
		return store.Fact{}, fmt.Errorf("fact %s has variables: %w", a, internalerr.ErrInvalidConfig)
	}
	tv := atom.TrueTV
	switch len(fd.TV) {
	case 0:
	case 2:
		tv = atom.TruthValue{Strength: fd.TV[0], Confidence: fd.TV[1]}
		if !tv.Valid() {
			return store.Fact{}, fmt.Errorf("fact %s: truth value %v outside [0,1]: %w", a, fd.TV, internalerr.ErrInvalidConfig)
		}
	default:
		return store.Fact{}, fmt.Errorf("fact %s: tv needs [strength, confidence]: %w", a, internalerr.ErrInvalidConfig)
	}
	return store.Fact{Atom: a, TV: tv}, nil
}
