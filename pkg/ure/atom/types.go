package atom

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/ure/pkg/ure/internalerr"
)

// Type names an atom type. Types form a single-inheritance hierarchy
// rooted at TopType.
type Type string

// Built-in types
const (
	TopType  Type = "Atom"
	NodeType Type = "Node"
	LinkType Type = "Link"

	ConceptNode           Type = "ConceptNode"
	PredicateNode         Type = "PredicateNode"
	GroundedPredicateNode Type = "GroundedPredicateNode"
	VariableNode          Type = "VariableNode"
	TypeNode              Type = "TypeNode"
	NumberNode            Type = "NumberNode"

	InheritanceLink Type = "InheritanceLink"
	ImplicationLink Type = "ImplicationLink"
	SimilarityLink  Type = "SimilarityLink"
	MemberLink      Type = "MemberLink"
	EvaluationLink  Type = "EvaluationLink"
	ExecutionLink   Type = "ExecutionLink"
	ListLink        Type = "ListLink"
	AndLink         Type = "AndLink"
	OrLink          Type = "OrLink"
	NotLink         Type = "NotLink"
)

// TypeRegistry records the known atom types and their parents.
// It is safe for concurrent use.
type TypeRegistry struct {
	mu     sync.RWMutex
	parent map[Type]Type
}

// NewTypeRegistry creates a registry pre-populated with the built-in types.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{parent: map[Type]Type{TopType: ""}}
	r.parent[NodeType] = TopType
	r.parent[LinkType] = TopType
	for _, t := range []Type{ConceptNode, PredicateNode, GroundedPredicateNode, VariableNode, TypeNode, NumberNode} {
		r.parent[t] = NodeType
	}
	for _, t := range []Type{InheritanceLink, ImplicationLink, SimilarityLink, MemberLink, EvaluationLink, ExecutionLink, ListLink, AndLink, OrLink, NotLink} {
		r.parent[t] = LinkType
	}
	return r
}

// DefaultTypes is the registry used by Parse and by declarations that
// are not given an explicit registry.
var DefaultTypes = NewTypeRegistry()

// Register adds a type under parent. Re-registering a type with the same
// parent is a no-op.
func (r *TypeRegistry) Register(t, parent Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t == "" {
		return fmt.Errorf("register type: %w", internalerr.ErrInvalidInput)
	}
	if _, ok := r.parent[parent]; !ok {
		return fmt.Errorf("register %s: parent %q: %w", t, parent, internalerr.ErrUnknownType)
	}
	if existing, ok := r.parent[t]; ok {
		if existing == parent {
			return nil
		}
		return fmt.Errorf("register %s: already registered under %s: %w", t, existing, internalerr.ErrInvalidInput)
	}
	r.parent[t] = parent
	return nil
}

// Exists reports whether t is registered.
func (r *TypeRegistry) Exists(t Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.parent[t]
	return ok
}

// IsA reports whether t equals ancestor or inherits from it.
func (r *TypeRegistry) IsA(t, ancestor Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for cur := t; cur != ""; {
		if cur == ancestor {
			return true
		}
		next, ok := r.parent[cur]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// IsNode reports whether t is a node type.
func (r *TypeRegistry) IsNode(t Type) bool { return r.IsA(t, NodeType) }

// IsLink reports whether t is a link type.
func (r *TypeRegistry) IsLink(t Type) bool { return r.IsA(t, LinkType) }

// All returns every registered type, sorted by name.
func (r *TypeRegistry) All() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Type, 0, len(r.parent))
	for t := range r.parent {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
