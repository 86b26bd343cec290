package chainer

import (
	"fmt"
	"strings"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/result"
	"github.com/cognicore/ure/pkg/ure/unify"
)

// ProofKind tells how a proof node was established.
type ProofKind uint8

const (
	ProofFact        ProofKind = iota // read from the fact store
	ProofRule                         // concluded by a rule from its premises
	ProofConjunction                  // every clause of an AndLink holds
	ProofVirtual                      // computed by an external evaluator
)

func (k ProofKind) String() string {
	switch k {
	case ProofFact:
		return "fact"
	case ProofRule:
		return "rule"
	case ProofConjunction:
		return "conjunction"
	case ProofVirtual:
		return "evaluated"
	default:
		return "unknown"
	}
}

// Proof is a node of the proof tree behind a result.
type Proof struct {
	Kind     ProofKind
	Atom     *atom.Atom
	TV       atom.TruthValue
	Rule     string
	Formula  string
	Premises []*Proof
}

// Steps counts the rule applications in the tree.
func (p *Proof) Steps() int {
	n := 0
	if p.Kind == ProofRule {
		n = 1
	}
	for _, c := range p.Premises {
		n += c.Steps()
	}
	return n
}

// Height is the longest path from p to a leaf, counting p.
func (p *Proof) Height() int {
	h := 0
	for _, c := range p.Premises {
		if ch := c.Height(); ch > h {
			h = ch
		}
	}
	return h + 1
}

// resolve applies the final bindings of a branch to every node. Atoms
// recorded before later siblings bound their variables become ground.
func (p *Proof) resolve(sub unify.Substitution) *Proof {
	out := *p
	out.Atom = sub.Apply(p.Atom)
	if len(p.Premises) > 0 {
		out.Premises = make([]*Proof, len(p.Premises))
		for i, c := range p.Premises {
			out.Premises[i] = c.resolve(sub)
		}
	}
	return &out
}

// signature identifies a derivation up to variable names.
func (p *Proof) signature() string {
	var b strings.Builder
	p.sign(&b)
	return b.String()
}

func (p *Proof) sign(b *strings.Builder) {
	b.WriteString(unify.Canonical(p.Atom))
	b.WriteByte('|')
	b.WriteString(p.Rule)
	for _, c := range p.Premises {
		b.WriteByte('[')
		c.sign(b)
		b.WriteByte(']')
	}
}

func (p *Proof) label() string {
	switch p.Kind {
	case ProofRule:
		return fmt.Sprintf("rule %s (%s)", p.Rule, p.Formula)
	default:
		return p.Kind.String()
	}
}

func (p *Proof) write(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s%s %s [%s]\n", strings.Repeat("  ", depth), p.Atom, p.TV, p.label())
	for _, c := range p.Premises {
		c.write(b, depth+1)
	}
}

// Explain renders the proof tree of a result produced by the chainer.
func Explain(r result.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.Atom, r.TV)
	if len(r.Bindings) > 0 {
		fmt.Fprintf(&b, "bindings: %s\n", r.Bindings)
	}
	p, ok := r.Proof.(*Proof)
	if !ok || p == nil {
		b.WriteString("no proof recorded\n")
		return b.String()
	}
	fmt.Fprintf(&b, "proof (%d steps):\n", p.Steps())
	p.write(&b, 1)
	return b.String()
}
