package composer

import (
	"testing"

	"github.com/vincentnw/studypal/internal/vectorstore"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name    string
		chunk   string
		related []string
		want    string
	}{
		{"no related", "alpha", nil, "alpha"},
		{"related appended in order", "alpha", []string{"beta", "gamma"}, "alpha\nbeta\ngamma"},
		{
			// The store may return the chunk itself as its own nearest
			// neighbour; the duplicate is kept.
			"self match kept",
			"alpha",
			[]string{"alpha", "beta"},
			"alpha\nalpha\nbeta",
		},
		{"empty chunk", "", []string{"beta"}, "\nbeta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compose(tt.chunk, tt.related); got != tt.want {
				t.Errorf("Compose = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTexts(t *testing.T) {
	records := []vectorstore.ScoredRecord{
		{Record: vectorstore.Record{ID: "b", Text: "second best"}, Score: 0.8},
		{Record: vectorstore.Record{ID: "a", Text: "best"}, Score: 0.9},
	}
	got := Texts(records)
	if len(got) != 2 || got[0] != "second best" || got[1] != "best" {
		t.Errorf("Texts = %v, want ranking order preserved as given", got)
	}

	if got := Texts(nil); got != nil {
		t.Errorf("Texts(nil) = %v, want nil", got)
	}
}
