package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Store is the vector store for one named collection. It owns the Embedder
// used to produce every stored vector, so all embeddings in the collection
// come from a single provider configuration. Switching providers requires a
// new Store (and a Reset to drop vectors from the old one).
//
// Store is safe for concurrent use. Reset swaps the collection handle under
// a write lock, so every operation resolves either the old or the new handle.
// An operation that resolved the old handle before a concurrent reset landed
// may still fail at the repository once the old collection is gone; callers
// see that as an ordinary error and retry against the fresh collection.
type Store struct {
	repo     Repository
	embedder Embedder
	name     string
	logger   *slog.Logger

	mu          sync.RWMutex
	collection  int64
	unavailable bool
}

// NewStore opens (or creates) the named collection and binds it to the given
// embedder.
func NewStore(ctx context.Context, repo Repository, embedder Embedder, name string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	id, err := repo.GetOrCreateCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", name, err)
	}

	return &Store{
		repo:       repo,
		embedder:   embedder,
		name:       name,
		logger:     logger,
		collection: id,
	}, nil
}

// handle returns the current collection id, or ErrStoreUnavailable after a
// failed reset.
func (s *Store) handle() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return 0, ErrStoreUnavailable
	}
	return s.collection, nil
}

// Upsert embeds each document and stores (id, text, embedding), overwriting
// existing entries with the same id. The two slices must be non-empty and of
// equal length, with no empty ids; a failed embed aborts the whole call so
// the id/vector pairing never goes out of sync.
func (s *Store) Upsert(ctx context.Context, documents, ids []string) error {
	if len(documents) == 0 || len(ids) == 0 {
		return fmt.Errorf("ingest: documents and ids must be non-empty")
	}
	if len(documents) != len(ids) {
		return fmt.Errorf("ingest: got %d documents and %d ids", len(documents), len(ids))
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("ingest: empty id at position %d", i)
		}
	}

	coll, err := s.handle()
	if err != nil {
		return err
	}

	vectors, err := s.embedder.Embed(ctx, documents)
	if err != nil {
		return fmt.Errorf("ingest: embed documents: %w", err)
	}
	if len(vectors) != len(documents) {
		return fmt.Errorf("ingest: embedder returned %d vectors for %d documents", len(vectors), len(documents))
	}

	for i := range documents {
		if err := s.repo.UpsertDocument(ctx, coll, ids[i], documents[i], vectors[i]); err != nil {
			return fmt.Errorf("ingest: store document %q: %w", ids[i], err)
		}
	}

	s.logger.Debug("documents upserted", "count", len(documents))
	return nil
}

// Query embeds text and returns the k nearest stored documents by L2
// distance, nearest first. An empty collection yields an empty result, not
// an error.
func (s *Store) Query(ctx context.Context, text string, k int) ([]Document, error) {
	if k < 1 {
		k = 1
	}

	coll, err := s.handle()
	if err != nil {
		return nil, err
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query: embed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("query: embedder returned %d vectors for one text", len(vectors))
	}

	docs, err := s.repo.SearchNearest(ctx, coll, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("query: search: %w", err)
	}

	return docs, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	coll, err := s.handle()
	if err != nil {
		return 0, err
	}
	return s.repo.CountDocuments(ctx, coll)
}

// Reset discards the collection and recreates it empty, bound to the same
// embedder. Deletion is atomic on the database side, so a delete failure
// leaves the old collection intact. If recreation fails after a successful
// delete, the store is marked unavailable and every operation fails fast
// with ErrStoreUnavailable until a later Reset succeeds.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.unavailable {
		if err := s.repo.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("reset: delete collection: %w", err)
		}
		// The old handle is gone. Until recreation succeeds there is nothing
		// to serve reads or writes.
		s.unavailable = true
	}

	id, err := s.repo.GetOrCreateCollection(ctx, s.name)
	if err != nil {
		s.logger.Error("collection recreation failed, store unavailable", "collection", s.name, "error", err)
		return fmt.Errorf("reset: recreate collection: %w", err)
	}

	s.collection = id
	s.unavailable = false
	s.logger.Info("collection reset", "collection", s.name)
	return nil
}
