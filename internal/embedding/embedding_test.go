package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/vincentnw/studypal/internal/chunker"
)

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)
	calls   atomic.Int64
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return make([]float32, 4), nil
}

func TestEmbedAllPreservesOrder(t *testing.T) {
	// Encode the input text's first byte into the vector so the output
	// order can be checked against the input order.
	m := &mockEmbedder{
		embedFn: func(_ context.Context, text string) ([]float32, error) {
			return []float32{float32(text[0])}, nil
		},
	}

	chunks := chunker.Split("abc", 1)
	got, err := EmbedAll(context.Background(), m, chunks, 4)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("result count = %d, want 3", len(got))
	}
	for i, ec := range got {
		if ec.Index != i {
			t.Errorf("result %d has chunk index %d", i, ec.Index)
		}
		if want := float32(chunks[i].Text[0]); ec.Vector[0] != want {
			t.Errorf("result %d vector = %v, want [%v]", i, ec.Vector, want)
		}
	}
}

func TestEmbedAllFailsWholeBatch(t *testing.T) {
	boom := errors.New("rate limited")
	m := &mockEmbedder{
		embedFn: func(_ context.Context, text string) ([]float32, error) {
			if text == "b" {
				return nil, boom
			}
			return []float32{1}, nil
		},
	}

	got, err := EmbedAll(context.Background(), m, chunker.Split("abc", 1), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if got != nil {
		t.Errorf("results = %v, want nil on batch failure", got)
	}
}

func TestEmbedAllEmptyInput(t *testing.T) {
	m := &mockEmbedder{}
	got, err := EmbedAll(context.Background(), m, nil, 4)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if got != nil {
		t.Errorf("results = %v, want nil", got)
	}
	if n := m.calls.Load(); n != 0 {
		t.Errorf("embedder called %d times for empty input", n)
	}
}

func TestEmbedAllSequentialDefault(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64
	m := &mockEmbedder{
		embedFn: func(_ context.Context, _ string) ([]float32, error) {
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				max := maxInFlight.Load()
				if cur <= max || maxInFlight.CompareAndSwap(max, cur) {
					break
				}
			}
			return []float32{1}, nil
		},
	}

	if _, err := EmbedAll(context.Background(), m, chunker.Split("abcdef", 1), 0); err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("max in-flight calls = %d, want 1 for concurrency <= 0", maxInFlight.Load())
	}
}
