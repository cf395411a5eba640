// Package output renders the engine's event stream to a destination.
// Matched content goes to its own writer, never mixed with diagnostics.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/greptail/internal/engine"
	"github.com/harrison/greptail/internal/pattern"
)

// TerminalSink writes events as text lines, with optional line-number
// prefixes and ANSI highlighting of match segments.
type TerminalSink struct {
	writer      io.Writer
	patterns    *pattern.Set
	highlight   bool
	lineNumbers bool
	matchColor  *color.Color
}

// Option configures a TerminalSink.
type Option func(*TerminalSink)

// WithHighlight enables match-segment highlighting.
func WithHighlight(on bool) Option {
	return func(s *TerminalSink) { s.highlight = on }
}

// WithLineNumbers enables 1-based "N:" prefixes on line events.
func WithLineNumbers(on bool) Option {
	return func(s *TerminalSink) { s.lineNumbers = on }
}

// NewTerminalSink creates a sink writing to w. patterns is used to locate
// highlight segments and may be nil when highlighting is off.
func NewTerminalSink(w io.Writer, patterns *pattern.Set, opts ...Option) *TerminalSink {
	s := &TerminalSink{
		writer:     w,
		patterns:   patterns,
		matchColor: color.New(color.FgRed, color.Bold),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit renders one event.
func (s *TerminalSink) Emit(ev engine.Event) error {
	switch ev.Kind {
	case engine.EventCount:
		if ev.Source != "" {
			_, err := fmt.Fprintf(s.writer, "%s:%d\n", ev.Source, ev.Count)
			return err
		}
		_, err := fmt.Fprintf(s.writer, "%d\n", ev.Count)
		return err

	case engine.EventMatch, engine.EventContext:
		text := ev.Line.Text
		if ev.Kind == engine.EventMatch && s.highlight && s.patterns != nil {
			text = s.highlightSegments(text)
		}
		if s.lineNumbers {
			_, err := fmt.Fprintf(s.writer, "%d:%s\n", ev.Line.Number, text)
			return err
		}
		_, err := fmt.Fprintln(s.writer, text)
		return err

	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// highlightSegments wraps every match segment of line in the match color.
func (s *TerminalSink) highlightSegments(line string) string {
	segments := s.patterns.FindSegments(line)
	if len(segments) == 0 {
		return line
	}

	var b strings.Builder
	b.Grow(len(line) + 16)
	last := 0
	for _, seg := range segments {
		start, end := seg[0], seg[1]
		if start > last {
			b.WriteString(line[last:start])
		}
		b.WriteString(s.matchColor.Sprint(line[start:end]))
		last = end
	}
	if last < len(line) {
		b.WriteString(line[last:])
	}
	return b.String()
}
