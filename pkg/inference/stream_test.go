package inference

import (
	"context"
	"errors"
	"testing"
)

func TestChunkStreamNextAndExhaustion(t *testing.T) {
	chunks := make(chan ProviderInferenceResponseChunk, 2)
	errs := make(chan error, 1)
	chunks <- ProviderInferenceResponseChunk{Text: &TextChunk{Text: "hel"}}
	chunks <- ProviderInferenceResponseChunk{Text: &TextChunk{Text: "lo"}}
	close(chunks)

	s := NewChunkStream(chunks, errs)
	ctx := context.Background()

	first, ok := s.Next(ctx)
	if !ok || first.Text.Text != "hel" {
		t.Fatalf("first chunk = %+v, ok=%v", first, ok)
	}
	second, ok := s.Next(ctx)
	if !ok || second.Text.Text != "lo" {
		t.Fatalf("second chunk = %+v, ok=%v", second, ok)
	}
	_, ok = s.Next(ctx)
	if ok {
		t.Fatal("expected exhaustion after two chunks")
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, want nil on clean exhaustion", err)
	}
}

func TestChunkStreamTerminalError(t *testing.T) {
	chunks := make(chan ProviderInferenceResponseChunk)
	errs := make(chan error, 1)
	close(chunks)
	errs <- errors.New("connection reset")

	s := NewChunkStream(chunks, errs)
	_, ok := s.Next(context.Background())
	if ok {
		t.Fatal("expected immediate exhaustion on closed channel")
	}
	if err := s.Err(); err == nil {
		t.Error("expected terminal error to be surfaced")
	}
}

func TestChunkStreamContextCancellation(t *testing.T) {
	chunks := make(chan ProviderInferenceResponseChunk)
	errs := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewChunkStream(chunks, errs)
	_, ok := s.Next(ctx)
	if ok {
		t.Fatal("expected Next to return immediately on cancelled context")
	}
}
