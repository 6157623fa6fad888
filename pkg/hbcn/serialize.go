package hbcn

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Text form, one place per line:
//
//	* +{a} => +{b} : 20
//	  +{b} => -{a} : (1.5,2)
//	  +{lonely}
//
// A leading '*' marks the place. A line holding a single transition declares
// a transition without places; those follow the places. Names are wrapped in
// braces with '{', '}' and '\' escaped by a backslash, and control characters
// written as \n, \r, \t or \xHH. Whether a place is internal is not part of
// the text form; places read back are external.

func escapeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		switch ch := name[i]; {
		case ch == '\\' || ch == '{' || ch == '}':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case ch == '\n':
			b.WriteString(`\n`)
		case ch == '\r':
			b.WriteString(`\r`)
		case ch == '\t':
			b.WriteString(`\t`)
		case ch < 0x20 || ch == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// unescape decodes the character after a backslash at c.pos.
func (c *cursor) unescape(name *strings.Builder) error {
	if c.pos >= len(c.s) {
		return fmt.Errorf("dangling escape")
	}
	ch := c.s[c.pos]
	c.pos++
	switch ch {
	case 'n':
		name.WriteByte('\n')
	case 'r':
		name.WriteByte('\r')
	case 't':
		name.WriteByte('\t')
	case 'x':
		if c.pos+2 > len(c.s) {
			return fmt.Errorf("short \\x escape at column %d", c.pos)
		}
		v, err := strconv.ParseUint(c.s[c.pos:c.pos+2], 16, 8)
		if err != nil {
			return fmt.Errorf("bad \\x escape at column %d", c.pos)
		}
		name.WriteByte(byte(v))
		c.pos += 2
	default:
		name.WriteByte(ch)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTo writes the text form of the network to w.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	for _, p := range n.places {
		mark := "  "
		if p.Marked {
			mark = "* "
		}
		k, err := fmt.Fprintf(bw, "%s%s => %s : %s\n", mark, p.Src, p.Dst, p.Delay)
		written += int64(k)
		if err != nil {
			return written, err
		}
	}
	for i, t := range n.transitions {
		if len(n.out[i]) > 0 || len(n.in[i]) > 0 {
			continue
		}
		k, err := fmt.Fprintf(bw, "  %s\n", t)
		written += int64(k)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// MarshalText implements encoding.TextMarshaler.
func (n *Network) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := n.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read parses the text form. Transitions are numbered in order of first
// appearance and node classes are inferred from names.
func Read(r io.Reader) (*Network, error) {
	n := newNetwork(0, 0)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		p, bare, err := parseLine(text)
		if err != nil {
			return nil, &GraphError{Op: "parse", Line: line, Err: fmt.Errorf("%w: %v", ErrSyntax, err)}
		}
		n.addTransition(p.Src)
		if bare {
			continue
		}
		n.addTransition(p.Dst)
		n.addPlace(p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, t := range n.transitions {
		n.classes[t.Node] = ClassFromName(t.Node)
	}
	return n, nil
}

// ParseString is a convenience wrapper around Read.
func ParseString(s string) (*Network, error) {
	return Read(strings.NewReader(s))
}

type cursor struct {
	s   string
	pos int
}

func (c *cursor) skipSpace() {
	for c.pos < len(c.s) && (c.s[c.pos] == ' ' || c.s[c.pos] == '\t') {
		c.pos++
	}
}

func (c *cursor) accept(tok string) bool {
	c.skipSpace()
	if strings.HasPrefix(c.s[c.pos:], tok) {
		c.pos += len(tok)
		return true
	}
	return false
}

func (c *cursor) expect(tok string) error {
	if !c.accept(tok) {
		return fmt.Errorf("expected %q at column %d", tok, c.pos+1)
	}
	return nil
}

func (c *cursor) transition() (Transition, error) {
	c.skipSpace()
	var t Transition
	switch {
	case c.accept("+"):
		t.Polarity = Data
	case c.accept("-"):
		t.Polarity = Spacer
	default:
		return t, fmt.Errorf("expected '+' or '-' at column %d", c.pos+1)
	}
	if c.pos >= len(c.s) || c.s[c.pos] != '{' {
		return t, fmt.Errorf("expected '{' at column %d", c.pos+1)
	}
	c.pos++

	var name strings.Builder
	for {
		if c.pos >= len(c.s) {
			return t, fmt.Errorf("unterminated name")
		}
		ch := c.s[c.pos]
		c.pos++
		switch ch {
		case '\\':
			if err := c.unescape(&name); err != nil {
				return t, err
			}
		case '}':
			t.Node = name.String()
			return t, nil
		default:
			name.WriteByte(ch)
		}
	}
}

func (c *cursor) number() (float64, error) {
	c.skipSpace()
	start := c.pos
	for c.pos < len(c.s) && strings.IndexByte("0123456789+-.eE", c.s[c.pos]) >= 0 {
		c.pos++
	}
	if start == c.pos {
		return 0, fmt.Errorf("expected number at column %d", start+1)
	}
	return strconv.ParseFloat(c.s[start:c.pos], 64)
}

func (c *cursor) delay() (DelayPair, error) {
	if !c.accept("(") {
		max, err := c.number()
		return MaxOnly(max), err
	}
	min, err := c.number()
	if err != nil {
		return DelayPair{}, err
	}
	if err := c.expect(","); err != nil {
		return DelayPair{}, err
	}
	max, err := c.number()
	if err != nil {
		return DelayPair{}, err
	}
	if err := c.expect(")"); err != nil {
		return DelayPair{}, err
	}
	return Window(min, max), nil
}

// parseLine parses a place, or a bare transition when bare is set, in
// which case only p.Src is filled in.
func parseLine(line string) (p Place, bare bool, err error) {
	c := &cursor{s: line}

	p.Marked = c.accept("*")
	if p.Src, err = c.transition(); err != nil {
		return p, false, err
	}
	c.skipSpace()
	if c.pos == len(c.s) && !p.Marked {
		return p, true, nil
	}
	if err = c.expect("=>"); err != nil {
		return p, false, err
	}
	if p.Dst, err = c.transition(); err != nil {
		return p, false, err
	}
	if err = c.expect(":"); err != nil {
		return p, false, err
	}
	if p.Delay, err = c.delay(); err != nil {
		return p, false, err
	}
	c.skipSpace()
	if c.pos != len(c.s) {
		return p, false, fmt.Errorf("trailing input at column %d", c.pos+1)
	}
	return p, false, nil
}
