package structural

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"
)

// ErrSyntax is wrapped by every parse error that is not a semantic one.
var ErrSyntax = errors.New("syntax error")

// ParseError locates a failure in the input text.
type ParseError struct {
	Pos scanner.Position
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %v", e.Pos.Line, e.Pos.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads the structural text format:
//
//	Port "a" [("b", 20)]
//	DataReg "b" [("c", 5.5), ("d", 0)]
//
// and returns the lowered graph.
func Parse(r io.Reader) (*Graph, error) {
	p := &parser{b: NewBuilder()}
	p.s.Init(r)
	p.s.Mode = scanner.ScanIdents | scanner.ScanFloats | scanner.ScanInts |
		scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = &ParseError{Pos: s.Position, Err: fmt.Errorf("%w: %s", ErrSyntax, msg)}
		}
	}
	p.next()

	for p.tok != scanner.EOF && p.err == nil {
		p.declaration()
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.b.Build()
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Graph, error) {
	return Parse(strings.NewReader(s))
}

type parser struct {
	s   scanner.Scanner
	tok rune
	b   *Builder
	err error
}

func (p *parser) next() {
	p.tok = p.s.Scan()
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = &ParseError{Pos: p.s.Position, Err: fmt.Errorf("%w: "+format, append([]any{ErrSyntax}, args...)...)}
	}
}

func (p *parser) failWith(pos scanner.Position, err error) {
	if p.err == nil {
		p.err = &ParseError{Pos: pos, Err: err}
	}
}

func (p *parser) expect(tok rune) bool {
	if p.tok != tok {
		p.fail("expected %s, found %q", scanner.TokenString(tok), p.s.TokenText())
		return false
	}
	p.next()
	return true
}

func (p *parser) str() (string, bool) {
	if p.tok != scanner.String {
		p.fail("expected quoted name, found %q", p.s.TokenText())
		return "", false
	}
	v, err := strconv.Unquote(p.s.TokenText())
	if err != nil {
		p.fail("bad string %s", p.s.TokenText())
		return "", false
	}
	p.next()
	return v, true
}

func (p *parser) number() (float64, bool) {
	sign := 1.0
	if p.tok == '-' {
		sign = -1
		p.next()
	}
	if p.tok != scanner.Int && p.tok != scanner.Float {
		p.fail("expected delay, found %q", p.s.TokenText())
		return 0, false
	}
	v, err := strconv.ParseFloat(p.s.TokenText(), 64)
	if err != nil {
		p.fail("bad number %s", p.s.TokenText())
		return 0, false
	}
	p.next()
	return sign * v, true
}

func (p *parser) declaration() {
	pos := p.s.Position
	if p.tok != scanner.Ident {
		p.fail("expected element kind, found %q", p.s.TokenText())
		return
	}
	kind, err := ParseKind(p.s.TokenText())
	if err != nil {
		p.failWith(pos, err)
		return
	}
	p.next()

	name, ok := p.str()
	if !ok || !p.expect('[') {
		return
	}

	var edges []Edge
	for p.tok != ']' {
		if len(edges) > 0 && !p.expect(',') {
			return
		}
		e, ok := p.edge()
		if !ok {
			return
		}
		edges = append(edges, e)
	}
	p.next()

	if err := p.b.Add(kind, name, edges...); err != nil {
		p.failWith(pos, err)
	}
}

func (p *parser) edge() (Edge, bool) {
	if !p.expect('(') {
		return Edge{}, false
	}
	target, ok := p.str()
	if !ok || !p.expect(',') {
		return Edge{}, false
	}
	delay, ok := p.number()
	if !ok || !p.expect(')') {
		return Edge{}, false
	}
	return Edge{Target: target, Delay: delay}, true
}
