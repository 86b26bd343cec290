// Package rulebase holds named, weighted collections of inference rules
// and finds the rules able to conclude a given target.
package rulebase

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/formula"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/unify"
)

// Rule concludes Conclusion from Premises, scoring the conclusion with the
// named formula. Rules are immutable once added to a RuleBase.
type Rule struct {
	Name       string
	Premises   []*atom.Atom
	Conclusion *atom.Atom
	Decl       *unify.VarDecl
	Formula    string
	Weight     float64

	seq int
	fn  formula.Func

	// conclusion and declaration renamed with lookaheadTag, for Concludes
	head     *atom.Atom
	headDecl *unify.VarDecl
}

// lookaheadTag renames rule variables for Concludes. Callers of RulesFor
// draw their tags from a counter starting at 1, so the names never meet.
const lookaheadTag = "0"

// Apply scores a conclusion from its premises' truth values.
func (r *Rule) Apply(premises []atom.TruthValue) atom.TruthValue {
	return r.fn(premises)
}

// Seq is the registration position of the rule within its rule base.
func (r *Rule) Seq() int { return r.seq }

func (r *Rule) String() string {
	return fmt.Sprintf("%s[w=%.3g %s]", r.Name, r.Weight, r.Formula)
}

// Application is a rule whose variables were renamed apart and whose
// conclusion unified with a target.
type Application struct {
	Rule       *Rule
	Premises   []*atom.Atom
	Conclusion *atom.Atom
	Sub        unify.Substitution
	Scope      *unify.Scope
}

// RuleBase is an ordered rule collection indexed by conclusion type.
type RuleBase struct {
	name     string
	rules    []*Rule
	rank     map[*Rule]int
	byType   map[atom.Type][]*Rule
	wildcard []*Rule
}

// New validates rules, resolves their formulas in lib and builds the index.
// Rules are ordered by weight, heaviest first, ties kept in the given order.
func New(name string, lib *formula.Library, rules ...*Rule) (*RuleBase, error) {
	if name == "" {
		return nil, fmt.Errorf("rule base: empty name: %w", internalerr.ErrInvalidConfig)
	}
	rb := &RuleBase{
		name:   name,
		rank:   make(map[*Rule]int, len(rules)),
		byType: make(map[atom.Type][]*Rule),
	}

	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if err := validate(r, lib); err != nil {
			return nil, fmt.Errorf("rule base %s: %w", name, err)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rule base %s: duplicate rule %q: %w", name, r.Name, internalerr.ErrInvalidConfig)
		}
		seen[r.Name] = true

		fn, err := lib.Lookup(r.Formula)
		if err != nil {
			return nil, fmt.Errorf("rule base %s: rule %s: %w", name, r.Name, err)
		}
		cp := *r
		cp.Premises = append([]*atom.Atom(nil), r.Premises...)
		cp.seq = i
		cp.fn = fn
		if cp.Decl == nil {
			cp.Decl = unify.Unconstrained()
		}
		cp.head = unify.Suffix(cp.Conclusion, lookaheadTag)
		cp.headDecl = cp.Decl.WithSuffix(lookaheadTag)
		rb.rules = append(rb.rules, &cp)
	}

	sort.SliceStable(rb.rules, func(i, j int) bool {
		return rb.rules[i].Weight > rb.rules[j].Weight
	})
	for i, r := range rb.rules {
		rb.rank[r] = i
		if r.Conclusion.IsVariable() {
			rb.wildcard = append(rb.wildcard, r)
			continue
		}
		rb.byType[r.Conclusion.Type()] = append(rb.byType[r.Conclusion.Type()], r)
	}
	return rb, nil
}

func validate(r *Rule, lib *formula.Library) error {
	if r == nil || r.Name == "" {
		return fmt.Errorf("rule without name: %w", internalerr.ErrInvalidConfig)
	}
	if r.Conclusion == nil {
		return fmt.Errorf("rule %s: no conclusion: %w", r.Name, internalerr.ErrInvalidConfig)
	}
	if len(r.Premises) == 0 {
		return fmt.Errorf("rule %s: no premises: %w", r.Name, internalerr.ErrInvalidConfig)
	}
	if math.IsNaN(r.Weight) || math.IsInf(r.Weight, 0) || r.Weight < 0 {
		return fmt.Errorf("rule %s: weight %v: %w", r.Name, r.Weight, internalerr.ErrInvalidConfig)
	}
	if !lib.Has(r.Formula) {
		return fmt.Errorf("rule %s: formula %q: %w", r.Name, r.Formula, internalerr.ErrUnknownFormula)
	}
	if r.Decl != nil {
		if err := r.Decl.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", r.Name, err)
		}
	}

	inPremises := make(map[string]bool)
	for _, p := range r.Premises {
		for _, v := range p.Variables() {
			inPremises[v.Name()] = true
		}
	}
	for _, v := range r.Conclusion.Variables() {
		if !inPremises[v.Name()] {
			return fmt.Errorf("rule %s: conclusion variable %s does not occur in any premise: %w", r.Name, v.Name(), internalerr.ErrInvalidConfig)
		}
	}
	return nil
}

func (rb *RuleBase) Name() string { return rb.name }
func (rb *RuleBase) Len() int     { return len(rb.rules) }

// Rules returns the rules in lookup order.
func (rb *RuleBase) Rules() []*Rule {
	out := make([]*Rule, len(rb.rules))
	copy(out, rb.rules)
	return out
}

// IsCombinator reports whether target is a structural combinator that the
// chainer expands itself rather than through rules.
func IsCombinator(target *atom.Atom) bool {
	return target.Type() == atom.AndLink
}

// RulesFor returns every rule whose conclusion unifies with target under
// sub, in rule order. The rule's variables are renamed with tag so they
// cannot collide with variables already in the branch; scope is extended
// with the rule's declaration. Combinator targets yield no rules.
func (rb *RuleBase) RulesFor(target *atom.Atom, sub unify.Substitution, scope *unify.Scope, tag string) []Application {
	if IsCombinator(target) {
		return nil
	}

	var apps []Application
	for _, r := range rb.candidates(target) {
		ruleScope := scope.Extend(r.Decl.WithSuffix(tag))
		conclusion := unify.Suffix(r.Conclusion, tag)

		s, ok := unify.Unify(target, conclusion, sub, ruleScope)
		if !ok {
			continue
		}
		premises := make([]*atom.Atom, len(r.Premises))
		for i, p := range r.Premises {
			premises[i] = unify.Suffix(p, tag)
		}
		apps = append(apps, Application{
			Rule:       r,
			Premises:   premises,
			Conclusion: conclusion,
			Sub:        s,
			Scope:      ruleScope,
		})
	}
	return apps
}

// Concludes reports whether RulesFor would return at least one
// application for target, without renaming premises or building
// applications.
func (rb *RuleBase) Concludes(target *atom.Atom, sub unify.Substitution, scope *unify.Scope) bool {
	if IsCombinator(target) {
		return false
	}
	for _, r := range rb.candidates(target) {
		if _, ok := unify.Unify(target, r.head, sub, scope.Extend(r.headDecl)); ok {
			return true
		}
	}
	return false
}

// candidates merges the type bucket and the wildcard bucket in rule order.
func (rb *RuleBase) candidates(target *atom.Atom) []*Rule {
	if target.IsVariable() {
		return rb.rules
	}
	typed := rb.byType[target.Type()]
	if len(rb.wildcard) == 0 {
		return typed
	}
	if len(typed) == 0 {
		return rb.wildcard
	}

	out := make([]*Rule, 0, len(typed)+len(rb.wildcard))
	i, j := 0, 0
	for i < len(typed) && j < len(rb.wildcard) {
		if rb.rank[typed[i]] < rb.rank[rb.wildcard[j]] {
			out = append(out, typed[i])
			i++
		} else {
			out = append(out, rb.wildcard[j])
			j++
		}
	}
	out = append(out, typed[i:]...)
	return append(out, rb.wildcard[j:]...)
}

// Registry maps rule-base names to rule bases.
type Registry struct {
	mu    sync.RWMutex
	bases map[string]*RuleBase
}

// EmptyRegistry creates a registry with no rule bases.
func EmptyRegistry() *Registry {
	return &Registry{bases: make(map[string]*RuleBase)}
}

// NewRegistry creates a registry holding the given rule bases.
func NewRegistry(bases ...*RuleBase) (*Registry, error) {
	r := EmptyRegistry()
	for _, rb := range bases {
		if err := r.Add(rb); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers rb. Names must be unique.
func (r *Registry) Add(rb *RuleBase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.bases[rb.name]; dup {
		return fmt.Errorf("rule base %q already registered: %w", rb.name, internalerr.ErrInvalidConfig)
	}
	r.bases[rb.name] = rb
	return nil
}

// Lookup finds a rule base by name.
func (r *Registry) Lookup(name string) (*RuleBase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rb, ok := r.bases[name]
	if !ok {
		return nil, fmt.Errorf("rule base %q: %w", name, internalerr.ErrUnknownRuleBase)
	}
	return rb, nil
}

// Names lists the registered rule bases, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.bases))
	for n := range r.bases {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
