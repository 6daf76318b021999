package index

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/kalambet/minuted/internal/vectorstore"
)

var (
	// ErrNotFound is returned when the given path is not an existing file
	// or directory.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedType is returned for extensions outside the recognized set.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Document summarizes an indexed file. DocID depends only on the absolute
// path, never on content, so the same file keeps its identity across edits
// while the fingerprint tracks staleness.
type Document struct {
	DocID       string `json:"doc_id"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	FileType    string `json:"file_type"`
	Fingerprint string `json:"fingerprint"`
	ChunkCount  int    `json:"chunk_count"`
}

// Passage is one retrieved chunk with its similarity distance (lower is
// closer).
type Passage struct {
	Text     string               `json:"text"`
	Source   vectorstore.Metadata `json:"source"`
	Distance float64              `json:"distance"`
}

// Stats describes the current knowledge-base contents.
type Stats struct {
	TotalChunks    int `json:"total_chunks"`
	TotalDocuments int `json:"total_documents"`
}

// DocID derives the document identifier from an absolute path. It is a pure
// function of the path: re-indexing edited content keeps the same DocID.
func DocID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(sum[:])[:16]
}

// ChunkID derives the chunk identifier from its document and ordinal.
func ChunkID(docID string, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, ordinal)
}
