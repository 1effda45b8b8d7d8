package rag

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Repository persists collections of documents and their embeddings.
type Repository interface {
	// GetOrCreateCollection returns the id of the named collection, creating
	// it when absent.
	GetOrCreateCollection(ctx context.Context, name string) (int64, error)

	// DeleteCollection removes the collection and all of its documents.
	DeleteCollection(ctx context.Context, collectionID int64) error

	// UpsertDocument stores (docID, content, embedding), overwriting any
	// existing entry with the same docID in the collection.
	UpsertDocument(ctx context.Context, collectionID int64, docID, content string, embedding []float32) error

	// SearchNearest returns up to limit documents ordered by ascending L2
	// distance to the query embedding. The metric is fixed: pgvector's <->
	// operator. Implementations must return a non-nil (possibly empty)
	// slice; nil signals a malformed result set.
	SearchNearest(ctx context.Context, collectionID int64, embedding []float32, limit int) ([]Document, error)

	// CountDocuments returns the number of documents in the collection.
	CountDocuments(ctx context.Context, collectionID int64) (int64, error)
}

type PgRepository struct {
	db *pgxpool.Pool
}

func NewPgRepository(db *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) GetOrCreateCollection(ctx context.Context, name string) (int64, error) {
	var id int64

	// ON CONFLICT DO UPDATE instead of DO NOTHING so RETURNING always yields
	// the row, whether it existed or not.
	err := r.db.QueryRow(ctx, `
		INSERT INTO rag_collection (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get or create collection %q: %w", name, err)
	}

	return id, nil
}

func (r *PgRepository) DeleteCollection(ctx context.Context, collectionID int64) error {
	// rag_document rows go with it via ON DELETE CASCADE.
	_, err := r.db.Exec(ctx, `
		DELETE FROM rag_collection WHERE id = $1
	`, collectionID)
	if err != nil {
		return fmt.Errorf("delete collection %d: %w", collectionID, err)
	}
	return nil
}

func (r *PgRepository) UpsertDocument(ctx context.Context, collectionID int64, docID, content string, embedding []float32) error {
	vec := pgvector.NewVector(embedding)

	_, err := r.db.Exec(ctx, `
		INSERT INTO rag_document (collection_id, doc_id, content, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection_id, doc_id)
		DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding, updated_at = now()
	`, collectionID, docID, content, vec)
	if err != nil {
		return fmt.Errorf("upsert document %q: %w", docID, err)
	}

	return nil
}

func (r *PgRepository) SearchNearest(ctx context.Context, collectionID int64, embedding []float32, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 1
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx, `
		SELECT doc_id, content
		FROM rag_document
		WHERE collection_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`, collectionID, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search nearest: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0, limit)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Content); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

func (r *PgRepository) CountDocuments(ctx context.Context, collectionID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM rag_document WHERE collection_id = $1
	`, collectionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}
