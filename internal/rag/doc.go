// Package rag implements the retrieval-augmented generation pipeline:
// documents are embedded and stored in a vector collection, queries retrieve
// the nearest documents as context, and an assembled prompt is streamed
// through the language model back to the caller.
//
// Ingestion: documents, ids -> Embedder -> Store.Upsert.
// Query: text -> Retriever -> AssemblePrompt -> Streamer -> fragment stream.
package rag
