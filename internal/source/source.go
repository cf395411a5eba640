// Package source produces ordered sequences of lines from one logical
// input: a static file, standard input, or a growing file being followed.
//
// Lines arrive in batches. A static source yields its whole content as a
// single batch and then io.EOF; a follow source yields one batch per poll
// cycle and never ends on its own. The engine resets its context state at
// every batch boundary, which is what keeps context lines from leaking
// across follow-mode read cycles.
package source

import (
	"bufio"
	"context"
	"io"
)

// Line is a single line of input: content with the newline stripped, plus
// its 1-based ordinal within the source.
type Line struct {
	Text   string
	Number int
}

// Batch is one discrete set of lines made visible by a single read cycle.
type Batch []Line

// Source is the single capability shared by all input kinds.
//
// Next blocks until a non-empty batch is available, the source is
// exhausted (io.EOF), or ctx is canceled (ctx.Err()). Implementations are
// not safe for concurrent use; each source belongs to exactly one engine
// run.
type Source interface {
	Next(ctx context.Context) (Batch, error)
}

// maxLineSize bounds a single input line; longer lines are a read error.
const maxLineSize = 1024 * 1024

// ReaderSource adapts an io.Reader (an opened file or stdin) into a
// Source that yields exactly one batch.
type ReaderSource struct {
	r    io.Reader
	done bool
}

// NewReaderSource wraps r. The reader is consumed on the first Next call;
// closing it remains the caller's responsibility.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// Next reads the entire reader into one batch. Subsequent calls return
// io.EOF.
func (s *ReaderSource) Next(ctx context.Context) (Batch, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var batch Batch
	num := 0
	for scanner.Scan() {
		num++
		batch = append(batch, Line{Text: scanner.Text(), Number: num})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}
