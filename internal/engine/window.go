package engine

import "github.com/harrison/greptail/internal/source"

// ContextWindow decides, line by line, which non-matching lines to emit
// around matches. It holds a bounded buffer of candidate leading-context
// lines and a countdown of trailing-context lines still owed to the most
// recent match.
//
// A physical line is only ever emitted through one path (pending-leading
// flush, match, or trailing countdown), so overlapping windows from close
// consecutive matches never print the same line twice.
type ContextWindow struct {
	before, after int

	pending  []source.Line
	trailing int
}

// NewContextWindow creates a window emitting up to before leading and
// after trailing context lines per match. Zero disables that side.
func NewContextWindow(before, after int) *ContextWindow {
	return &ContextWindow{before: before, after: after}
}

// Reset clears buffered leading candidates and cancels any trailing
// obligation. The engine calls it at every batch boundary so context
// never crosses separate read cycles of a followed file.
func (w *ContextWindow) Reset() {
	w.pending = w.pending[:0]
	w.trailing = 0
}

// Observe classifies one line and returns the events to emit now, in
// order. matched is the line's classification after invert was applied.
func (w *ContextWindow) Observe(line source.Line, matched bool) []Event {
	if matched {
		events := make([]Event, 0, len(w.pending)+1)
		for _, p := range w.pending {
			events = append(events, Event{Kind: EventContext, Line: p})
		}
		w.pending = w.pending[:0]
		events = append(events, Event{Kind: EventMatch, Line: line})
		w.trailing = w.after
		return events
	}

	if w.trailing > 0 {
		w.trailing--
		return []Event{{Kind: EventContext, Line: line}}
	}

	if w.before > 0 {
		if len(w.pending) == w.before {
			copy(w.pending, w.pending[1:])
			w.pending = w.pending[:w.before-1]
		}
		w.pending = append(w.pending, line)
	}
	return nil
}
