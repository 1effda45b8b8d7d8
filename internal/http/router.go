package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/ingest", h.Ingest).Methods(http.MethodPost)
	r.HandleFunc("/reset", h.Reset).Methods(http.MethodPost)
	r.HandleFunc("/query", h.Query).Methods(http.MethodPost)

	return r
}
