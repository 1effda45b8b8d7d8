package rag

import (
	"context"
	"iter"
)

// Embedder converts texts into fixed-dimension vectors, one per input and in
// input order. The same configured Embedder must serve both document
// ingestion and query embedding; two differently configured instances would
// silently degrade retrieval quality.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator talks to the language model. GenerateStream yields incremental
// text fragments as they arrive; Generate issues a single non-streaming call
// for the same prompt.
type Generator interface {
	GenerateStream(ctx context.Context, prompt string) iter.Seq2[string, error]
	Generate(ctx context.Context, prompt string) (string, error)
}
