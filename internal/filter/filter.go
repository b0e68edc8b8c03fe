// Package filter parses and evaluates the LDAP-style filter expressions the
// registry uses to select registrations, e.g.
//
//	(&(type=converter)(in_data=text/*)(!(remote=*)))
//
// Supported forms are conjunction (&), disjunction (|), negation (!),
// equality (key=value), presence (key=*) and substring (key=pre*mid*post).
// Keys match case-insensitively, values case-sensitively. A backslash escapes
// the next character in a value.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is wrapped by every parse error.
var ErrInvalidFilter = errors.New("invalid filter")

// Properties is anything a filter can be evaluated against.
type Properties interface {
	Property(key string) (string, bool)
}

type op int

const (
	opAnd op = iota
	opOr
	opNot
	opEqual
	opPresent
	opSubstring
)

// Filter is a parsed, immutable filter expression. It is safe for concurrent use.
type Filter struct {
	op       op
	key      string
	value    string
	parts    []string
	children []*Filter
}

// Parse compiles a filter expression.
func Parse(s string) (*Filter, error) {
	p := &parser{s: s}
	f, err := p.filter()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.errorf("unexpected trailing input")
	}
	return f, nil
}

// MustParse is like Parse but panics on error. Intended for constant filters.
func MustParse(s string) *Filter {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Match reports whether props satisfy the filter.
func (f *Filter) Match(props Properties) bool {
	switch f.op {
	case opAnd:
		for _, c := range f.children {
			if !c.Match(props) {
				return false
			}
		}
		return true
	case opOr:
		for _, c := range f.children {
			if c.Match(props) {
				return true
			}
		}
		return false
	case opNot:
		return !f.children[0].Match(props)
	}

	v, ok := props.Property(f.key)
	if !ok {
		return false
	}
	switch f.op {
	case opPresent:
		return true
	case opEqual:
		return v == f.value
	case opSubstring:
		return matchSubstring(v, f.parts)
	}
	return false
}

// matchSubstring checks v against initial*any*...*final.
func matchSubstring(v string, parts []string) bool {
	first, last := parts[0], parts[len(parts)-1]
	if !strings.HasPrefix(v, first) {
		return false
	}
	v = v[len(first):]
	for _, mid := range parts[1 : len(parts)-1] {
		i := strings.Index(v, mid)
		if i < 0 {
			return false
		}
		v = v[i+len(mid):]
	}
	return strings.HasSuffix(v, last)
}

// String renders the filter in canonical form.
func (f *Filter) String() string {
	var b strings.Builder
	f.write(&b)
	return b.String()
}

func (f *Filter) write(b *strings.Builder) {
	b.WriteByte('(')
	switch f.op {
	case opAnd, opOr, opNot:
		b.WriteByte("&|!"[f.op])
		for _, c := range f.children {
			c.write(b)
		}
	case opEqual:
		b.WriteString(f.key + "=" + Escape(f.value))
	case opPresent:
		b.WriteString(f.key + "=*")
	case opSubstring:
		escaped := make([]string, len(f.parts))
		for i, p := range f.parts {
			escaped[i] = Escape(p)
		}
		b.WriteString(f.key + "=" + strings.Join(escaped, "*"))
	}
	b.WriteByte(')')
}

// Escape quotes the characters that carry meaning inside a filter value.
func Escape(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '\\', '*', '(', ')':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

type parser struct {
	s   string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrInvalidFilter, fmt.Sprintf(format, args...), p.pos, p.s)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n' || p.s[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) filter() (*Filter, error) {
	p.skipSpace()
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.skipSpace()

	var f *Filter
	var err error
	switch p.peek() {
	case '&':
		p.pos++
		f, err = p.list(opAnd)
	case '|':
		p.pos++
		f, err = p.list(opOr)
	case '!':
		p.pos++
		var child *Filter
		child, err = p.filter()
		if err == nil {
			f = &Filter{op: opNot, children: []*Filter{child}}
		}
	default:
		f, err = p.item()
	}
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *parser) list(o op) (*Filter, error) {
	f := &Filter{op: o}
	for {
		p.skipSpace()
		if p.peek() != '(' {
			break
		}
		child, err := p.filter()
		if err != nil {
			return nil, err
		}
		f.children = append(f.children, child)
	}
	if len(f.children) == 0 {
		return nil, p.errorf("empty filter list")
	}
	return f, nil
}

func (p *parser) item() (*Filter, error) {
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("=<>~()", rune(p.s[p.pos])) {
		p.pos++
	}
	key := strings.TrimSpace(p.s[start:p.pos])
	if key == "" {
		return nil, p.errorf("missing attribute name")
	}

	switch p.peek() {
	case '=':
		p.pos++
	case '<', '>', '~':
		return nil, p.errorf("unsupported operator %q", p.s[p.pos:min(p.pos+2, len(p.s))])
	default:
		return nil, p.errorf("expected '=' after %q", key)
	}

	var parts []string
	var cur strings.Builder
	for {
		if p.pos >= len(p.s) {
			return nil, p.errorf("unterminated value")
		}
		c := p.s[p.pos]
		if c == ')' {
			break
		}
		switch c {
		case '(':
			return nil, p.errorf("unescaped '(' in value")
		case '\\':
			p.pos++
			if p.pos >= len(p.s) {
				return nil, p.errorf("dangling escape")
			}
			cur.WriteByte(p.s[p.pos])
		case '*':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
		p.pos++
	}
	parts = append(parts, cur.String())

	switch {
	case len(parts) == 1:
		return &Filter{op: opEqual, key: key, value: parts[0]}, nil
	case len(parts) == 2 && parts[0] == "" && parts[1] == "":
		return &Filter{op: opPresent, key: key}, nil
	default:
		return &Filter{op: opSubstring, key: key, parts: parts}, nil
	}
}
