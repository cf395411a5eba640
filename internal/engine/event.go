package engine

import "github.com/harrison/greptail/internal/source"

// EventKind tags what an emitted event represents.
type EventKind int

const (
	// EventContext is a non-matching line emitted as leading or trailing context
	EventContext EventKind = iota
	// EventMatch is a line that satisfied the match predicate
	EventMatch
	// EventCount is a per-source match total, emitted in count mode
	EventCount
)

// String returns a human-readable representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventContext:
		return "context"
	case EventMatch:
		return "match"
	case EventCount:
		return "count"
	default:
		return "unknown"
	}
}

// Event is one element of the engine's output stream.
// For line events, Line carries the content; for count events, Count
// carries the total and Source is empty for a single-source run.
type Event struct {
	Kind   EventKind
	Source string
	Line   source.Line
	Count  int
}

// Sink receives the engine's output stream. The engine guarantees tag
// correctness and ordering; rendering (highlighting, prefixing) is
// entirely the sink's concern.
type Sink interface {
	Emit(Event) error
}
