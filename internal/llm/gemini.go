package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/josinaldojr/landing-rag/internal/rag"
)

const (
	embeddingModel = "models/gemini-embedding-001"
	ragChatModel   = "gemini-2.5-pro"
	embedDim       = 768
)

var errNoAPIKey = errors.New("gemini client not configured: missing GEMINI_API_KEY or GOOGLE_API_KEY")

// GeminiClient implements rag.Embedder and rag.Generator on top of the
// Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient builds a client for the given API key. An empty key does
// not fail here: the process must still come up and serve /health, so every
// model call returns an error instead.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return &GeminiClient{}, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: c}, nil
}

func (g *GeminiClient) ready() error {
	if g.client == nil {
		return errNoAPIKey
	}
	return nil
}

// Embed returns one 768-dimension vector per input text, in input order.
// The same model and task configuration is used for documents and queries,
// so both land in the same embedding space.
func (g *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		clean := normalizeWhitespace(text)
		if clean == "" {
			return nil, fmt.Errorf("empty text for embedding")
		}

		resp, err := g.client.Models.EmbedContent(
			ctx,
			embeddingModel,
			genai.Text(clean),
			&genai.EmbedContentConfig{
				TaskType:             "RETRIEVAL_DOCUMENT",
				OutputDimensionality: genai.Ptr(int32(embedDim)),
			},
		)
		if err != nil {
			return nil, classify(fmt.Errorf("gemini embed error: %w", err))
		}

		if len(resp.Embeddings) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		values := resp.Embeddings[0].Values
		if len(values) != embedDim {
			return nil, fmt.Errorf("unexpected embedding size %d (expected %d)", len(values), embedDim)
		}

		vec := make([]float32, embedDim)
		for i, v := range values {
			vec[i] = float32(v)
		}
		out = append(out, vec)
	}

	return out, nil
}

// GenerateStream opens a streaming generation call and yields each text
// fragment as it arrives. A transport or model failure is yielded as the
// terminal error element.
func (g *GeminiClient) GenerateStream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := g.ready(); err != nil {
			yield("", err)
			return
		}

		for chunk, err := range g.client.Models.GenerateContentStream(ctx, ragChatModel, genai.Text(prompt), nil) {
			if err != nil {
				yield("", classify(fmt.Errorf("gemini stream error: %w", err)))
				return
			}
			text := chunk.Text()
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// Generate issues a single non-streaming generation call and returns the
// whole answer text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}

	resp, err := g.client.Models.GenerateContent(ctx, ragChatModel, genai.Text(prompt), nil)
	if err != nil {
		return "", classify(fmt.Errorf("gemini generateContent error: %w", err))
	}
	if resp == nil {
		return "", fmt.Errorf("empty response from gemini")
	}

	txt := strings.TrimSpace(resp.Text())
	if txt == "" {
		return "", fmt.Errorf("model returned empty text")
	}

	return txt, nil
}

// classify tags quota failures with rag.ErrQuotaExceeded so the HTTP layer
// can map them to 429.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", rag.ErrQuotaExceeded, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") {
		return fmt.Errorf("%w: %w", rag.ErrQuotaExceeded, err)
	}

	return err
}

func normalizeWhitespace(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			if !space {
				b.WriteRune(' ')
				space = true
			}
		} else {
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}

var _ rag.Embedder = (*GeminiClient)(nil)
var _ rag.Generator = (*GeminiClient)(nil)
