package http

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/josinaldojr/landing-rag/internal/rag"
)

// RAGService is the slice of the pipeline the HTTP layer needs.
type RAGService interface {
	Ingest(ctx context.Context, documents, ids []string) error
	Reset(ctx context.Context) error
	Query(ctx context.Context, query string, history []rag.ConversationTurn) (iter.Seq2[string, error], error)
}

type Handler struct {
	service   RAGService
	apiKeySet bool
	logger    *slog.Logger
}

func NewHandler(service RAGService, apiKeySet bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, apiKeySet: apiKeySet, logger: logger}
}

// Health never fails; it reports whether model credentials were found.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	apiKey := "missing"
	if h.apiKeySet {
		apiKey = "set"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"api_key": apiKey,
		"service": "rag_service",
	})
}

type ingestRequest struct {
	Documents []string `json:"documents"`
	IDs       []string `json:"ids"`
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body is required")
		return
	}
	if len(req.Documents) == 0 || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "Missing documents or ids")
		return
	}

	if err := h.service.Ingest(r.Context(), req.Documents, req.IDs); err != nil {
		h.logger.Error("ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to ingest documents")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Documents ingested successfully"})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		h.logger.Error("reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Knowledge base reset successfully"})
}

type queryRequest struct {
	Query   string                 `json:"query"`
	History []rag.ConversationTurn `json:"history"`
}

// Query streams the answer as server-sent events. Failures before the first
// fragment map to JSON error responses (404 no documents, 429 quota, 500
// otherwise); failures after streaming starts arrive as one final
// "[ERROR]: ..." event.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	fragments, err := h.service.Query(r.Context(), req.Query, req.History)
	if err != nil {
		h.logger.Error("query failed", "error", err)
		h.writeQueryError(w, err)
		return
	}

	// Pull the first element before committing to an event stream. A
	// generation failure with nothing delivered yet is still a pre-stream
	// failure and gets a proper status code; only after the first fragment
	// is the 200 locked in.
	next, stop := iter.Pull2(fragments)
	defer stop()

	fragment, fragErr, ok := next()
	if ok && fragErr != nil {
		h.logger.Error("query failed", "error", fragErr)
		h.writeQueryError(w, fragErr)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		h.logger.Error("sse unsupported", "error", err)
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	for ok {
		if fragErr != nil {
			h.logger.Error("stream failed", "error", fragErr)
			_ = sse.WriteError(fragErr.Error())
			return
		}
		if err := sse.WriteData(fragment); err != nil {
			// Client is gone; stop producing fragments.
			h.logger.Warn("client write failed", "error", err)
			return
		}
		fragment, fragErr, ok = next()
	}
}

func (h *Handler) writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case rag.IsQuota(err):
		writeError(w, http.StatusTooManyRequests, "Quota exceeded. Please try again later.")
	case errors.Is(err, rag.ErrNoDocuments):
		writeError(w, http.StatusNotFound, "No documents found")
	default:
		writeError(w, http.StatusInternalServerError, "Internal RAG service error.")
	}
}
