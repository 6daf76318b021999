// Package vectorstore provides embedding storage and similarity search for
// the knowledge base. The store owns embedding generation: callers hand it
// raw text and opaque chunk metadata keyed by chunk ID.
package vectorstore

import "context"

// Metadata is the per-chunk metadata carried through the store unchanged.
type Metadata struct {
	DocID       string `json:"doc_id"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	FileType    string `json:"file_type"`
	Ordinal     int    `json:"ordinal"`
	Fingerprint string `json:"fingerprint"`
}

// Filter selects records in Get. A zero Filter matches everything.
type Filter struct {
	DocID string
}

// GetResult holds parallel id/metadata arrays from Get.
type GetResult struct {
	IDs   []string
	Metas []Metadata
}

// QueryResult holds parallel result arrays from Query, ranked by the
// store's relevance order (increasing distance).
type QueryResult struct {
	IDs       []string
	Texts     []string
	Metas     []Metadata
	Distances []float64
}

// Embedder generates embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the vector-store collaborator contract.
//
// The current implementation is SQLite with brute-force cosine search; an
// ANN-backed implementation can replace it behind this interface.
type Store interface {
	// Add embeds and inserts chunks. ids, texts, and metas are parallel.
	Add(ctx context.Context, ids, texts []string, metas []Metadata) error

	// Get returns ids and metadatas of records matching the filter.
	Get(ctx context.Context, filter Filter) (GetResult, error)

	// Delete removes the records with the given ids. Missing ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Query embeds text and returns the k nearest records by distance.
	Query(ctx context.Context, text string, k int) (QueryResult, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
