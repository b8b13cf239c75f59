// Package vectorstore defines the gateway to vector storage and similarity
// search backends.
package vectorstore

import "context"

// Record is one stored vector: an id, the embedding values, and the original
// chunk text carried as metadata.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
}

// ScoredRecord is a Record with a similarity score attached (higher is more
// similar).
type ScoredRecord struct {
	Record
	Score float32
}

// Store is the interface for vector storage backends.
//
// Every operation is scoped to a namespace so concurrent requests never
// observe each other's in-flight vectors. Callers create a fresh namespace
// per request and delete their own ids when done.
type Store interface {
	// Upsert writes records into the namespace. Writing an existing id
	// overwrites it.
	Upsert(ctx context.Context, namespace string, records []Record) error

	// Query returns up to topK records most similar to vector, best first.
	// Fewer than topK matches, or an empty namespace, yields a shorter (or
	// empty) result, never an error.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]ScoredRecord, error)

	// Delete removes the given ids from the namespace. Missing ids are not
	// an error.
	Delete(ctx context.Context, namespace string, ids []string) error
}
