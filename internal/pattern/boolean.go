package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Boolean pattern expressions let a single pattern string combine
// sub-patterns with '&' (AND), '|' (OR), and parentheses:
//
//	error&timeout        both must match the line
//	error&(conn|dial)    error AND (conn OR dial)
//
// A literal '&', '|', or parenthesis is written with a backslash escape.
// A pattern string is treated as a boolean expression only when it contains
// an unescaped '&'; plain regex alternation and grouping are untouched.

type boolOp int

const (
	opLeaf boolOp = iota
	opAnd
	opOr
)

// boolExpr is one node of the parsed expression tree. Leaf nodes carry the
// raw sub-pattern and, after compile, its regex.
type boolExpr struct {
	op          boolOp
	left, right *boolExpr
	pat         string
	re          *regexp.Regexp
}

// isBooleanExpr reports whether raw contains an unescaped '&'.
func isBooleanExpr(raw string) bool {
	escaped := false
	for _, ch := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '&':
			return true
		}
	}
	return false
}

// matches evaluates the expression against a line.
func (e *boolExpr) matches(line string) bool {
	switch e.op {
	case opAnd:
		return e.left.matches(line) && e.right.matches(line)
	case opOr:
		return e.left.matches(line) || e.right.matches(line)
	default:
		return e.re.MatchString(line)
	}
}

// compile builds the leaf regexes with the set's modifiers applied.
func (e *boolExpr) compile(opts Options) error {
	if e.op == opLeaf {
		re, err := compileOne(e.pat, opts)
		if err != nil {
			return err
		}
		e.re = re
		return nil
	}
	if err := e.left.compile(opts); err != nil {
		return err
	}
	return e.right.compile(opts)
}

// leaves returns the distinct leaf patterns in left-to-right order.
func (e *boolExpr) leaves() []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(*boolExpr)
	walk = func(n *boolExpr) {
		if n.op == opLeaf {
			if !seen[n.pat] {
				seen[n.pat] = true
				out = append(out, n.pat)
			}
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(e)
	return out
}

// boolParser is a recursive-descent parser over the expression runes.
// Grammar: or := and ('|' and)* ; and := primary ('&' primary)* ;
// primary := '(' or ')' | leaf-pattern.
type boolParser struct {
	input []rune
	pos   int
}

func parseBoolExpr(raw string) (*boolExpr, error) {
	p := &boolParser{input: []rune(raw)}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	return expr, nil
}

func (p *boolParser) current() (rune, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *boolParser) skipSpace() {
	for {
		ch, ok := p.current()
		if !ok || ch != ' ' && ch != '\t' {
			return
		}
		p.pos++
	}
}

func (p *boolParser) parseOr() (*boolExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		ch, ok := p.current()
		if !ok || ch != '|' {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolExpr{op: opOr, left: left, right: right}
	}
}

func (p *boolParser) parseAnd() (*boolExpr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		ch, ok := p.current()
		if !ok || ch != '&' {
			return left, nil
		}
		p.pos++
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &boolExpr{op: opAnd, left: left, right: right}
	}
}

func (p *boolParser) parsePrimary() (*boolExpr, error) {
	p.skipSpace()

	if ch, ok := p.current(); ok && ch == '(' {
		p.pos++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if ch, ok := p.current(); !ok || ch != ')' {
			return nil, fmt.Errorf("expected closing parenthesis")
		}
		p.pos++
		return expr, nil
	}

	var pat strings.Builder
	escaped := false
	for {
		ch, ok := p.current()
		if !ok {
			break
		}
		if escaped {
			pat.WriteRune(ch)
			escaped = false
			p.pos++
			continue
		}
		if ch == '\\' {
			pat.WriteRune(ch)
			escaped = true
			p.pos++
			continue
		}
		if ch == '&' || ch == '|' || ch == ')' || ch == ' ' || ch == '\t' {
			break
		}
		pat.WriteRune(ch)
		p.pos++
	}

	if pat.Len() == 0 {
		return nil, fmt.Errorf("expected pattern at position %d", p.pos)
	}
	return &boolExpr{op: opLeaf, pat: pat.String()}, nil
}
