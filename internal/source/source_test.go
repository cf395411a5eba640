package source

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestReaderSource_SingleBatch(t *testing.T) {
	src := NewReaderSource(strings.NewReader("one\ntwo\nthree"))

	batch, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("len(batch) = %d, want 3", len(batch))
	}
	if batch[0].Text != "one" || batch[0].Number != 1 {
		t.Errorf("batch[0] = %+v, want {one 1}", batch[0])
	}
	if batch[2].Text != "three" || batch[2].Number != 3 {
		t.Errorf("batch[2] = %+v, want {three 3}", batch[2])
	}

	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Errorf("second Next() error = %v, want io.EOF", err)
	}
}

func TestReaderSource_EmptyInput(t *testing.T) {
	src := NewReaderSource(strings.NewReader(""))
	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Errorf("Next() on empty input = %v, want io.EOF", err)
	}
}

func TestReaderSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewReaderSource(strings.NewReader("data\n"))
	if _, err := src.Next(ctx); err != context.Canceled {
		t.Errorf("Next() with canceled ctx = %v, want context.Canceled", err)
	}
}
