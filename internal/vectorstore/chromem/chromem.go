// Package chromem implements the vector store gateway on top of the
// in-process chromem-go database. Each namespace maps to one collection.
package chromem

import (
	"context"
	"fmt"
	"runtime"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/vincentnw/studypal/internal/vectorstore"
)

// Store is a chromem-go backed vector store.
type Store struct {
	db *chromemgo.DB
}

var _ vectorstore.Store = (*Store)(nil)

// New creates a Store. With an empty path the database lives in memory;
// otherwise it persists under path.
func New(path string) (*Store, error) {
	if path == "" {
		return &Store{db: chromemgo.NewDB()}, nil
	}
	db, err := chromemgo.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Upsert(ctx context.Context, namespace string, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	col, err := s.db.GetOrCreateCollection(namespace, nil, nil)
	if err != nil {
		return fmt.Errorf("getting collection %s: %w", namespace, err)
	}

	docs := make([]chromemgo.Document, len(records))
	for i, r := range records {
		docs[i] = chromemgo.Document{
			ID:        r.ID,
			Content:   r.Text,
			Embedding: r.Embedding,
		}
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding documents to %s: %w", namespace, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]vectorstore.ScoredRecord, error) {
	col := s.db.GetCollection(namespace, nil)
	if col == nil {
		return nil, nil
	}

	// chromem rejects queries asking for more results than stored documents.
	n := topK
	if count := col.Count(); count < n {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := col.QueryWithOptions(ctx, chromemgo.QueryOptions{
		QueryEmbedding: vector,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", namespace, err)
	}

	scored := make([]vectorstore.ScoredRecord, len(results))
	for i, res := range results {
		scored[i] = vectorstore.ScoredRecord{
			Record: vectorstore.Record{
				ID:        res.ID,
				Text:      res.Content,
				Embedding: res.Embedding,
			},
			Score: res.Similarity,
		}
	}
	return scored, nil
}

func (s *Store) Delete(ctx context.Context, namespace string, ids []string) error {
	col := s.db.GetCollection(namespace, nil)
	if col == nil {
		return nil
	}
	if len(ids) > 0 {
		if err := col.Delete(ctx, nil, nil, ids...); err != nil {
			return fmt.Errorf("deleting from collection %s: %w", namespace, err)
		}
	}
	// Request-scoped namespaces are one-shot; drop the collection itself once
	// its last vector is gone.
	if col.Count() == 0 {
		if err := s.db.DeleteCollection(namespace); err != nil {
			return fmt.Errorf("dropping collection %s: %w", namespace, err)
		}
	}
	return nil
}
