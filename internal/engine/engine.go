// Package engine drives line sources through the pattern set and the
// context window, producing a tagged event stream and the run result used
// for exit-status determination.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/harrison/greptail/internal/logger"
	"github.com/harrison/greptail/internal/pattern"
	"github.com/harrison/greptail/internal/source"
)

// Input is one logical input to a run. Open is called lazily so that an
// unreadable source is reported without aborting its siblings. The
// returned closer may be nil (stdin, follow tailer).
type Input struct {
	Name string
	Open func() (source.Source, io.Closer, error)
}

// SourceResult aggregates one source's outcome.
type SourceResult struct {
	Name    string
	Matches int
	Err     error
}

// RunResult aggregates a whole run across all sources.
type RunResult struct {
	Sources []SourceResult
}

// TotalMatches sums match counts across sources.
func (r RunResult) TotalMatches() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Matches
	}
	return total
}

// AnyMatch reports whether at least one match occurred anywhere.
func (r RunResult) AnyMatch() bool {
	for _, s := range r.Sources {
		if s.Matches > 0 {
			return true
		}
	}
	return false
}

// SourceErrors counts sources that failed to open or read.
func (r RunResult) SourceErrors() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// ExitCode derives the process exit status: 0 when any match occurred,
// 2 when no match occurred and some source errored, 1 otherwise.
// Fatal conditions are handled by the caller before this applies.
func (r RunResult) ExitCode() int {
	if r.AnyMatch() {
		return 0
	}
	if r.SourceErrors() > 0 {
		return 2
	}
	return 1
}

// Engine runs the match-and-context pipeline over a sequence of inputs.
type Engine struct {
	Patterns  *pattern.Set
	Before    int
	After     int
	Invert    bool
	CountOnly bool
	Quiet     bool
	Sink      Sink
	Log       *logger.ConsoleLogger
}

// Run processes inputs sequentially in order. Per-source errors are
// recorded in the result and logged; they do not abort sibling sources.
// A non-nil error return is fatal (exhausted follow retries or a sink
// failure) and maps to exit status 2.
func (e *Engine) Run(ctx context.Context, inputs []Input) (RunResult, error) {
	var result RunResult
	multi := len(inputs) > 1

	for _, in := range inputs {
		sr := SourceResult{Name: in.Name}

		src, closer, err := in.Open()
		if err != nil {
			sr.Err = err
			e.logSourceError(in.Name, err)
			result.Sources = append(result.Sources, sr)
			continue
		}

		matches, err := e.runSource(ctx, src, in.Name)
		if closer != nil {
			closer.Close()
		}
		sr.Matches = matches

		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// External cancellation is a clean stop, not an error; the
			// result so far keeps exit-status logic well-defined.
			result.Sources = append(result.Sources, sr)
			return result, nil
		case errors.Is(err, source.ErrRetriesExhausted):
			result.Sources = append(result.Sources, sr)
			return result, err
		default:
			sr.Err = err
			e.logSourceError(in.Name, err)
		}

		result.Sources = append(result.Sources, sr)
	}

	if e.CountOnly && !e.Quiet {
		if err := e.emitCounts(result, multi); err != nil {
			return result, err
		}
	}

	return result, nil
}

// runSource drains one source to exhaustion or cancellation, returning
// its match count.
func (e *Engine) runSource(ctx context.Context, src source.Source, name string) (int, error) {
	window := NewContextWindow(e.Before, e.After)
	matches := 0

	for {
		batch, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return matches, nil
			}
			return matches, err
		}

		// Context never crosses a batch boundary.
		window.Reset()

		for _, line := range batch {
			matched := e.Patterns.Matches(line.Text) != e.Invert
			if matched {
				matches++
			}
			if e.CountOnly || e.Quiet {
				continue
			}
			for _, ev := range window.Observe(line, matched) {
				ev.Source = name
				if err := e.Sink.Emit(ev); err != nil {
					return matches, fmt.Errorf("sink failed: %w", err)
				}
			}
		}
	}
}

// emitCounts routes per-source totals after all sources complete. A
// single-source run omits the path prefix; errored sources emit nothing.
func (e *Engine) emitCounts(result RunResult, multi bool) error {
	for _, sr := range result.Sources {
		if sr.Err != nil {
			continue
		}
		ev := Event{Kind: EventCount, Count: sr.Matches}
		if multi {
			ev.Source = sr.Name
		}
		if err := e.Sink.Emit(ev); err != nil {
			return fmt.Errorf("sink failed: %w", err)
		}
	}
	return nil
}

func (e *Engine) logSourceError(name string, err error) {
	if e.Log == nil {
		return
	}
	e.Log.LogError(fmt.Sprintf("%s: %v", name, err))
}
