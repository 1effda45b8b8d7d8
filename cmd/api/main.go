package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/josinaldojr/landing-rag/internal/config"
	"github.com/josinaldojr/landing-rag/internal/db"
	apphttp "github.com/josinaldojr/landing-rag/internal/http"
	"github.com/josinaldojr/landing-rag/internal/llm"
	"github.com/josinaldojr/landing-rag/internal/rag"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if cfg.APIKeySet() {
		log.Printf("API key detected: %s", cfg.MaskedAPIKey())
	} else {
		log.Printf("WARNING: no API key found (GEMINI_API_KEY or GOOGLE_API_KEY), model calls will fail")
	}

	pool := db.NewPool(cfg.DatabaseURL)
	defer pool.Close()

	repo := rag.NewPgRepository(pool)

	geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("failed to init Gemini client: %v", err)
	}

	store, err := rag.NewStore(ctx, repo, geminiClient, cfg.CollectionName, logger)
	if err != nil {
		log.Fatalf("failed to open collection: %v", err)
	}

	ragService := rag.NewService(
		store,
		rag.NewRetriever(store),
		rag.NewStreamer(geminiClient, logger),
		logger,
	)

	h := apphttp.NewHandler(ragService, cfg.APIKeySet(), logger)
	router := apphttp.NewRouter(h)

	handler := corsMiddleware(router)

	addr := ":" + cfg.Port
	log.Printf("RAG service listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin == "http://localhost:3000" || origin == "http://127.0.0.1:3000" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
