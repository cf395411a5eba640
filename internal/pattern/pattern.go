// Package pattern compiles user-supplied search patterns into a matching
// predicate. Plain patterns combine as alternation; patterns containing
// unescaped '&', or parentheses mixing '&' with '|', are parsed as boolean
// expressions over sub-patterns.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern wraps regex compilation and expression parse failures.
// Callers can test for it with errors.Is.
var ErrInvalidPattern = errors.New("invalid pattern")

// Options are the matching modifiers applied to every pattern.
type Options struct {
	// Word accepts a match only when bounded by non-word characters
	Word bool
	// Line accepts a match only when it spans the entire line
	Line bool
	// IgnoreCase enables case-insensitive matching
	IgnoreCase bool
	// DotAll makes '.' match newlines
	DotAll bool
}

// Set is a compiled set of patterns. A line matches the set iff any
// alternative matches (or, for boolean expressions, iff the expression
// evaluates true). Invert semantics belong to the engine, not here.
type Set struct {
	opts Options

	// combined is the alternation of all patterns, used both for plain
	// matching and for locating highlight segments.
	combined *regexp.Regexp

	// expr is non-nil when the single raw pattern was a boolean
	// expression; it takes over match classification.
	expr *boolExpr
}

// Compile builds a Set from raw pattern strings.
// Returns an error wrapping ErrInvalidPattern when any pattern fails to
// compile or a boolean expression is malformed.
func Compile(raw []string, opts Options) (*Set, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no patterns given", ErrInvalidPattern)
	}

	s := &Set{opts: opts}

	// A boolean expression is only recognized for a single pattern string;
	// multiple -e patterns always combine as plain alternation.
	if len(raw) == 1 && isBooleanExpr(raw[0]) {
		expr, err := parseBoolExpr(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
		if err := expr.compile(opts); err != nil {
			return nil, err
		}
		s.expr = expr

		// Highlighting still needs a single regex; use the alternation
		// of the expression's leaf patterns.
		combined, err := compileOne(strings.Join(expr.leaves(), "|"), opts)
		if err != nil {
			return nil, err
		}
		s.combined = combined
		return s, nil
	}

	// Each pattern must compile on its own; joining first would let an
	// invalid pattern sneak through when the alternation happens to parse.
	alts := make([]string, 0, len(raw))
	for _, pat := range raw {
		if _, err := regexp.Compile(pat); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
		alts = append(alts, "(?:"+pat+")")
	}

	combined, err := compileOne(strings.Join(alts, "|"), opts)
	if err != nil {
		return nil, err
	}
	s.combined = combined
	return s, nil
}

// compileOne wraps a pattern with the modifier syntax and compiles it.
func compileOne(pat string, opts Options) (*regexp.Regexp, error) {
	if opts.Word {
		pat = `\b(?:` + pat + `)\b`
	}
	if opts.Line {
		pat = `^(?:` + pat + `)$`
	}

	var flags []string
	if opts.IgnoreCase {
		flags = append(flags, "i")
	}
	if opts.DotAll {
		flags = append(flags, "s")
	}
	if len(flags) > 0 {
		pat = "(?" + strings.Join(flags, "") + ")" + pat
	}

	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}

// Matches reports whether line satisfies the pattern set.
func (s *Set) Matches(line string) bool {
	if s.expr != nil {
		return s.expr.matches(line)
	}
	return s.combined.MatchString(line)
}

// FindSegments returns the [start, end) byte ranges of all match segments
// in line, for highlighting. Ranges are non-overlapping and in order.
func (s *Set) FindSegments(line string) [][]int {
	return s.combined.FindAllStringIndex(line, -1)
}
