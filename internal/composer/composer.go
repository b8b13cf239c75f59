// Package composer assembles the enriched generation context for a chunk
// from its own text and the texts retrieved from the vector store.
package composer

import (
	"strings"

	"github.com/vincentnw/studypal/internal/vectorstore"
)

// Compose builds the enriched context: the chunk's own text followed by each
// related text, newline-separated, in retrieval order. No deduplication is
// performed; the chunk may appear again among its own nearest neighbours.
func Compose(chunkText string, related []string) string {
	parts := make([]string, 0, len(related)+1)
	parts = append(parts, chunkText)
	parts = append(parts, related...)
	return strings.Join(parts, "\n")
}

// Texts extracts the stored chunk texts from scored query results, keeping
// the ranking order.
func Texts(records []vectorstore.ScoredRecord) []string {
	if len(records) == 0 {
		return nil
	}
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	return texts
}
