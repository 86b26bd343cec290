package atom

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cognicore/ure/pkg/ure/internalerr"
)

// Parse reads an atom written as an s-expression against DefaultTypes.
//
//	(ConceptNode "A")
//	(InheritanceLink (VariableNode "$who") (ConceptNode "C"))
func Parse(s string) (*Atom, error) {
	return DefaultTypes.Parse(s)
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(s string) *Atom {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Parse reads an atom written as an s-expression, checking every type
// against the registry.
func (r *TypeRegistry) Parse(s string) (*Atom, error) {
	p := &parser{src: s, types: r}
	a, err := p.atom()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing input %q", p.src[p.pos:])
	}
	return a, nil
}

type parser struct {
	src   string
	pos   int
	types *TypeRegistry
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("parse atom at offset %d: %s: %w", p.pos, fmt.Sprintf(format, args...), internalerr.ErrInvalidInput)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ';':
			// comment to end of line
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case unicode.IsSpace(rune(c)):
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) atom() (*Atom, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return nil, p.errorf("expected '('")
	}
	p.pos++
	p.skipSpace()

	start := p.pos
	for p.pos < len(p.src) && !unicode.IsSpace(rune(p.src[p.pos])) && p.src[p.pos] != '(' && p.src[p.pos] != ')' {
		p.pos++
	}
	t := Type(p.src[start:p.pos])
	if t == "" {
		return nil, p.errorf("missing type")
	}
	if !p.types.Exists(t) {
		return nil, fmt.Errorf("parse atom: type %q: %w", t, internalerr.ErrUnknownType)
	}
	p.skipSpace()

	if p.types.IsNode(t) {
		name, err := p.str()
		if err != nil {
			return nil, err
		}
		if err := p.closeParen(); err != nil {
			return nil, err
		}
		return NewNode(t, name), nil
	}

	var out []*Atom
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated %s", t)
		}
		if p.src[p.pos] == ')' {
			p.pos++
			return NewLink(t, out...), nil
		}
		child, err := p.atom()
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
}

func (p *parser) str() (string, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '"' {
		return "", p.errorf("expected quoted name")
	}
	end := p.pos + 1
	for end < len(p.src) {
		if p.src[end] == '\\' {
			end += 2
			continue
		}
		if p.src[end] == '"' {
			break
		}
		end++
	}
	if end >= len(p.src) {
		return "", p.errorf("unterminated string")
	}
	name, err := strconv.Unquote(p.src[p.pos : end+1])
	if err != nil {
		return "", p.errorf("bad string: %v", err)
	}
	p.pos = end + 1
	return name, nil
}

func (p *parser) closeParen() error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != ')' {
		return p.errorf("expected ')'")
	}
	p.pos++
	return nil
}

// Format renders a multi-line, indented form of a for human display.
func Format(a *Atom) string {
	var b strings.Builder
	format(&b, a, 0)
	return b.String()
}

func format(b *strings.Builder, a *Atom, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	if !a.IsLink() {
		b.WriteString(a.Key())
		return
	}
	b.WriteString("(" + string(a.Type()))
	for _, c := range a.out {
		b.WriteByte('\n')
		format(b, c, depth+1)
	}
	b.WriteByte(')')
}
