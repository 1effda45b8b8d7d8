package rag

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
)

// Service composes the ingestion and query pipelines: documents flow through
// the embedder into the store, queries flow retrieve -> assemble -> generate.
type Service struct {
	store     *Store
	retriever *Retriever
	streamer  *Streamer
	logger    *slog.Logger
}

func NewService(store *Store, retriever *Retriever, streamer *Streamer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		retriever: retriever,
		streamer:  streamer,
		logger:    logger,
	}
}

// Ingest embeds and upserts the given documents under the given ids.
func (s *Service) Ingest(ctx context.Context, documents, ids []string) error {
	if err := s.store.Upsert(ctx, documents, ids); err != nil {
		return err
	}
	s.logger.Info("documents ingested", "count", len(documents))
	return nil
}

// Reset destroys the collection and recreates it empty.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.logger.Info("knowledge base reset")
	return nil
}

// DocumentCount reports how many documents the collection currently holds.
func (s *Service) DocumentCount(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// Query runs the full query pipeline and returns the answer fragment stream.
// Failures before generation starts (retrieval, quota, unavailable store)
// are returned as the error; failures after the stream begins arrive as the
// terminal error element of the sequence.
func (s *Service) Query(ctx context.Context, query string, history []ConversationTurn) (iter.Seq2[string, error], error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, errors.New("query is required")
	}

	contextText, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	prompt := AssemblePrompt(q, contextText, history)
	return s.streamer.Generate(ctx, prompt), nil
}
