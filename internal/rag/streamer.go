package rag

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
)

// Streamer produces the answer fragment stream for an assembled prompt,
// falling back to a single non-streaming call when streaming breaks.
type Streamer struct {
	generator Generator
	logger    *slog.Logger
}

func NewStreamer(generator Generator, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{generator: generator, logger: logger}
}

// Generate yields answer fragments in arrival order. Every call opens a
// fresh model call; the returned sequence is single-use.
//
// If the streaming call cannot be established or fails mid-stream, one
// non-streaming call is issued for the same prompt and its whole text is
// yielded as a single final fragment. If that fallback also fails, the
// sequence terminates with a non-nil error, so consumers can tell "stream
// ended" apart from "stream failed". Breaking out of the loop stops
// iteration and abandons the underlying call.
func (s *Streamer) Generate(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var streamErr error
		delivered := 0

		for fragment, err := range s.generator.GenerateStream(ctx, prompt) {
			if err != nil {
				streamErr = err
				break
			}
			if fragment == "" {
				continue
			}
			delivered++
			if !yield(fragment, nil) {
				return
			}
		}
		if streamErr == nil {
			return
		}

		s.logger.Warn("streaming failed, falling back to non-streaming",
			"fragments_delivered", delivered, "error", streamErr)

		text, err := s.generator.Generate(ctx, prompt)
		if err != nil {
			yield("", fmt.Errorf("generation failed: streaming: %v; fallback: %w", streamErr, err))
			return
		}
		yield(text, nil)
	}
}
