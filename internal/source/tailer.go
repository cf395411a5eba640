package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
)

// ErrRetriesExhausted is returned by Tailer.Next when the file could not
// be recovered within the retry budget after repeated transient failures.
var ErrRetriesExhausted = errors.New("follow retries exhausted")

// State identifies where the tailer is in its polling cycle.
type State int

const (
	// StateSeeking locates the current end of file and records identity
	StateSeeking State = iota
	// StateIdle waits for the file to grow past the recorded offset
	StateIdle
	// StateReading extracts complete new lines beyond the offset
	StateReading
	// StateRecovering backs off after a rotation, truncation, or read error
	StateRecovering
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateSeeking:
		return "seeking"
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Retry policy for transient follow errors: capped exponential backoff
// starting at the poll interval, doubling per attempt up to maxBackoff,
// giving up after maxRetries consecutive failures.
const (
	maxRetries = 5
	maxBackoff = 2 * time.Second
)

// SleepFunc is the injectable wait used between polls and during backoff.
// It must return early with ctx.Err() when ctx is canceled. Tests replace
// it to simulate file growth without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Tailer follows a single growing regular file, starting at its current
// end. It yields one Batch per successful read cycle and holds back a
// trailing partial line until a later write completes it. Rotation and
// truncation cause a re-seek to the new end of file; content appended
// while the tailer was down is not replayed.
type Tailer struct {
	fs    afero.Fs
	path  string
	poll  time.Duration
	sleep SleepFunc

	state   State
	offset  int64
	info    os.FileInfo
	partial []byte
	lineNum int
	retries int
}

// NewTailer creates a tailer for path on fs, polling at the given
// interval.
func NewTailer(fs afero.Fs, path string, poll time.Duration) *Tailer {
	return &Tailer{
		fs:    fs,
		path:  path,
		poll:  poll,
		sleep: defaultSleep,
		state: StateSeeking,
	}
}

// SetSleep replaces the wait strategy. Call before the first Next.
func (t *Tailer) SetSleep(fn SleepFunc) {
	t.sleep = fn
}

// State reports the current state, for diagnostics and tests.
func (t *Tailer) State() State {
	return t.state
}

// Next runs the polling state machine until a non-empty batch of complete
// lines is available. It never returns io.EOF; termination comes from ctx
// cancellation or from ErrRetriesExhausted.
func (t *Tailer) Next(ctx context.Context) (Batch, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch t.state {
		case StateSeeking:
			if err := t.seek(); err != nil {
				t.state = StateRecovering
				continue
			}
			t.retries = 0
			t.state = StateIdle

		case StateIdle:
			grown, err := t.checkGrowth()
			if err != nil {
				t.state = StateRecovering
				continue
			}
			if grown {
				t.state = StateReading
				continue
			}
			if err := t.sleep(ctx, t.poll); err != nil {
				return nil, err
			}

		case StateReading:
			batch, err := t.read()
			if err != nil {
				t.state = StateRecovering
				continue
			}
			t.retries = 0
			t.state = StateIdle
			if len(batch) > 0 {
				return batch, nil
			}

		case StateRecovering:
			t.retries++
			if t.retries > maxRetries {
				return nil, fmt.Errorf("%w: %s unreadable after %d attempts", ErrRetriesExhausted, t.path, maxRetries)
			}
			if err := t.sleep(ctx, t.backoff()); err != nil {
				return nil, err
			}
			t.state = StateSeeking
		}
	}
}

// backoff doubles the poll interval per consecutive retry, capped.
func (t *Tailer) backoff() time.Duration {
	d := t.poll << (t.retries - 1)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// seek records the file's current end and identity. Any lines already in
// the file are deliberately skipped: a follow source emits new lines only.
func (t *Tailer) seek() error {
	info, err := t.fs.Stat(t.path)
	if err != nil {
		return err
	}
	t.info = info
	t.offset = info.Size()
	t.partial = nil
	return nil
}

// checkGrowth stats the file and classifies the delta against the
// recorded offset. Identity change (rotation) and shrinkage (truncation)
// are surfaced as errors so the caller re-enters recovery.
func (t *Tailer) checkGrowth() (bool, error) {
	info, err := t.fs.Stat(t.path)
	if err != nil {
		return false, err
	}
	if !sameFile(t.info, info) {
		return false, fmt.Errorf("file identity changed: %s", t.path)
	}
	if info.Size() < t.offset {
		return false, fmt.Errorf("file truncated: %s", t.path)
	}
	return info.Size() > t.offset, nil
}

// read extracts all complete lines past the offset. A trailing segment
// without a newline is carried over to the next cycle.
func (t *Tailer) read() (Batch, error) {
	f, err := t.fs.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	t.partial = nil

	var batch Batch
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := buf[:idx]
		buf = buf[idx+1:]
		line = bytes.TrimSuffix(line, []byte("\r"))
		t.lineNum++
		batch = append(batch, Line{Text: string(line), Number: t.lineNum})
	}
	if len(buf) > 0 {
		t.partial = append([]byte(nil), buf...)
	}
	return batch, nil
}

// sameFile compares file identities. On real filesystems this is an
// inode/device comparison; in-memory filesystems expose no Sys data, so
// truncation detection via size is the only rotation signal there.
func sameFile(a, b os.FileInfo) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Sys() == nil || b.Sys() == nil {
		return a.Name() == b.Name()
	}
	return os.SameFile(a, b)
}
