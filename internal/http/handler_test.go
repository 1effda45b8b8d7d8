package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josinaldojr/landing-rag/internal/rag"
)

// fakeService scripts the pipeline behavior seen by the handler.
type fakeService struct {
	ingestErr error
	resetErr  error

	queryErr    error
	fragments   []string
	streamErr   error // yielded after fragments when non-nil
	lastQuery   string
	lastHistory []rag.ConversationTurn
	lastDocs    []string
	lastIDs     []string
}

func (f *fakeService) Ingest(_ context.Context, documents, ids []string) error {
	f.lastDocs, f.lastIDs = documents, ids
	return f.ingestErr
}

func (f *fakeService) Reset(context.Context) error { return f.resetErr }

func (f *fakeService) Query(_ context.Context, query string, history []rag.ConversationTurn) (iter.Seq2[string, error], error) {
	f.lastQuery, f.lastHistory = query, history
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return func(yield func(string, error) bool) {
		for _, fr := range f.fragments {
			if !yield(fr, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield("", f.streamErr)
		}
	}, nil
}

func testHandler(svc *fakeService, apiKeySet bool) *Handler {
	return NewHandler(svc, apiKeySet, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealth(t *testing.T) {
	h := testHandler(&fakeService{}, true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "set", body["api_key"])
	assert.Equal(t, "rag_service", body["service"])
}

func TestHealthMissingAPIKey(t *testing.T) {
	h := testHandler(&fakeService{}, false)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"api_key":"missing"`)
}

func TestIngest(t *testing.T) {
	svc := &fakeService{}
	h := testHandler(svc, true)

	body := `{"documents":["Paris is the capital of France."],"ids":["doc1"]}`
	rec := httptest.NewRecorder()
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Documents ingested successfully")
	assert.Equal(t, []string{"Paris is the capital of France."}, svc.lastDocs)
	assert.Equal(t, []string{"doc1"}, svc.lastIDs)
}

func TestIngestBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing documents", `{"ids":["a"]}`},
		{"missing ids", `{"documents":["text"]}`},
		{"both empty", `{"documents":[],"ids":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(&fakeService{}, true)
			rec := httptest.NewRecorder()
			h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestIngestServiceFailure(t *testing.T) {
	h := testHandler(&fakeService{ingestErr: errors.New("embed blew up")}, true)

	body := `{"documents":["text"],"ids":["a"]}`
	rec := httptest.NewRecorder()
	h.Ingest(rec, httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to ingest documents")
}

func TestReset(t *testing.T) {
	h := testHandler(&fakeService{}, true)

	rec := httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Knowledge base reset successfully")
}

func TestResetFailure(t *testing.T) {
	h := testHandler(&fakeService{resetErr: rag.ErrStoreUnavailable}, true)

	rec := httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestQueryStreamsSSE(t *testing.T) {
	svc := &fakeService{fragments: []string{"Paris", " is the capital."}}
	h := testHandler(svc, true)

	body := `{"query":"What is the capital of France?"}`
	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "data: Paris\n\ndata:  is the capital.\n\n", rec.Body.String())
	assert.Equal(t, "What is the capital of France?", svc.lastQuery)
}

func TestQueryPassesHistory(t *testing.T) {
	svc := &fakeService{fragments: []string{"ok"}}
	h := testHandler(svc, true)

	body := `{"query":"q","history":[{"role":"user","content":"hi"}]}`
	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))

	require.Len(t, svc.lastHistory, 1)
	assert.Equal(t, "user", svc.lastHistory[0].Role)
	assert.Equal(t, "hi", svc.lastHistory[0].Content)
}

func TestQueryMidStreamErrorEvent(t *testing.T) {
	svc := &fakeService{
		fragments: []string{"partial"},
		streamErr: errors.New("stream died"),
	}
	h := testHandler(svc, true)

	body := `{"query":"q"}`
	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))

	// Status already committed as 200; the failure rides in-band.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data: partial\n\ndata: [ERROR]: stream died\n\n", rec.Body.String())
}

func TestQueryGenerationFailureBeforeFirstFragment(t *testing.T) {
	// Streaming and its fallback can both fail before producing any text,
	// e.g. quota exhausted on both calls. Nothing has been delivered, so
	// the client gets a JSON error status, not an event stream.
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"quota", rag.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"generic", errors.New("model unreachable"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(&fakeService{streamErr: tt.err}, true)
			rec := httptest.NewRecorder()
			h.Query(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"q"}`)))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotContains(t, rec.Body.String(), "data:")
		})
	}
}

func TestQueryPreStreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"quota", rag.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"no documents", rag.ErrNoDocuments, http.StatusNotFound},
		{"store unavailable", rag.ErrStoreUnavailable, http.StatusInternalServerError},
		{"generic", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHandler(&fakeService{queryErr: tt.err}, true)
			rec := httptest.NewRecorder()
			h.Query(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"q"}`)))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestQueryRequiresQueryField(t *testing.T) {
	for _, body := range []string{"{", `{}`, `{"query":"  "}`} {
		h := testHandler(&fakeService{}, true)
		rec := httptest.NewRecorder()
		h.Query(rec, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestRouterWiring(t *testing.T) {
	h := testHandler(&fakeService{fragments: []string{"hi"}}, true)
	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Method guard: GET on a POST-only route.
	resp2, err := http.Get(srv.URL + "/query")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}
