package rag

import (
	"context"
	"strings"
)

// DefaultTopK is how many documents a query retrieves for context. Policy
// default; adjust here, not at call sites.
const DefaultTopK = 3

// NoContextSentinel replaces the context block when nothing relevant is
// stored, so the prompt never carries an ambiguous empty block.
const NoContextSentinel = "No relevant context found."

// Retriever turns a query into a single ranked context block.
type Retriever struct {
	store *Store
	topK  int
}

func NewRetriever(store *Store) *Retriever {
	return &Retriever{store: store, topK: DefaultTopK}
}

// Retrieve returns the texts of the nearest documents joined into one context
// block, nearest first. Zero stored documents yields NoContextSentinel.
func (r *Retriever) Retrieve(ctx context.Context, query string) (string, error) {
	docs, err := r.store.Query(ctx, query, r.topK)
	if err != nil {
		return "", err
	}
	if docs == nil {
		return "", ErrNoDocuments
	}
	if len(docs) == 0 {
		return NoContextSentinel, nil
	}

	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Content)
	}
	return strings.Join(texts, "\n\n"), nil
}
