// Package index reconciles files on disk with the vector store: chunking,
// change detection via content fingerprints, and retrieval.
package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kalambet/minuted/internal/extract"
	"github.com/kalambet/minuted/internal/segment"
	"github.com/kalambet/minuted/internal/vectorstore"
)

// Indexer maintains the knowledge base. The vector store is injected once
// at construction; Indexer holds no other state besides per-document locks.
type Indexer struct {
	store  vectorstore.Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Indexer backed by the given store.
func New(store vectorstore.Store) *Indexer {
	return &Indexer{
		store:  store,
		logger: slog.Default(),
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockDoc serializes indexing per document identity. The store's
// read-check-delete-insert sequence is not transactional, so concurrent
// IndexFile calls on the same path must not interleave.
func (ix *Indexer) lockDoc(docID string) *sync.Mutex {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	l, ok := ix.locks[docID]
	if !ok {
		l = &sync.Mutex{}
		ix.locks[docID] = l
	}
	return l
}

// IndexFile chunks and stores a single file. Re-indexing an unchanged file
// is a no-op; a changed fingerprint replaces the document's entire chunk
// set. A file that extracts to no text yields a Document with ChunkCount 0.
func (ix *Indexer) IndexFile(ctx context.Context, path string, maxSize, overlap int) (Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Document{}, fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, absPath)
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	if !extract.Supported(absPath) {
		return Document{}, fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedType, ext, strings.Join(extract.Extensions(), ", "))
	}

	fingerprint, err := extract.Fingerprint(absPath)
	if err != nil {
		return Document{}, fmt.Errorf("fingerprinting %s: %w", absPath, err)
	}

	docID := DocID(absPath)
	doc := Document{
		DocID:       docID,
		Filename:    filepath.Base(absPath),
		Path:        absPath,
		FileType:    ext,
		Fingerprint: fingerprint,
	}

	lock := ix.lockDoc(docID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := ix.store.Get(ctx, vectorstore.Filter{DocID: docID})
	if err != nil {
		return Document{}, fmt.Errorf("fetching existing chunks for %s: %w", docID, err)
	}

	if len(existing.IDs) > 0 {
		for _, meta := range existing.Metas {
			if meta.Fingerprint == fingerprint {
				ix.logger.Info("file unchanged, skipping re-index", "path", absPath, "doc_id", docID)
				doc.ChunkCount = len(existing.IDs)
				return doc, nil
			}
		}
		// Chunk boundaries are not stable across edits, so the prior set is
		// replaced wholesale rather than diffed.
		if err := ix.store.Delete(ctx, existing.IDs); err != nil {
			return Document{}, fmt.Errorf("removing stale chunks for %s: %w", docID, err)
		}
		ix.logger.Info("removed stale chunks", "path", absPath, "count", len(existing.IDs))
	}

	text, err := extract.Text(absPath)
	if err != nil {
		return Document{}, fmt.Errorf("extracting %s: %w", absPath, err)
	}
	if strings.TrimSpace(text) == "" {
		ix.logger.Warn("no text extracted", "path", absPath)
		return doc, nil
	}

	chunks, err := segment.Split(text, maxSize, overlap)
	if err != nil {
		return Document{}, fmt.Errorf("chunking %s: %w", absPath, err)
	}
	if len(chunks) == 0 {
		return doc, nil
	}

	ids := make([]string, len(chunks))
	metas := make([]vectorstore.Metadata, len(chunks))
	for i := range chunks {
		ids[i] = ChunkID(docID, i)
		metas[i] = vectorstore.Metadata{
			DocID:       docID,
			Filename:    doc.Filename,
			Path:        absPath,
			FileType:    ext,
			Ordinal:     i,
			Fingerprint: fingerprint,
		}
	}

	if err := ix.store.Add(ctx, ids, chunks, metas); err != nil {
		return Document{}, fmt.Errorf("storing chunks for %s: %w", absPath, err)
	}

	ix.logger.Info("indexed file", "path", absPath, "doc_id", docID, "chunks", len(chunks))
	doc.ChunkCount = len(chunks)
	return doc, nil
}

// IndexDirectory indexes every recognized file under root. A failing file
// is logged and skipped; one bad member never aborts the batch.
func (ix *Indexer) IndexDirectory(ctx context.Context, root string, recursive bool, maxSize, overlap int) ([]Document, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: directory %s", ErrNotFound, absRoot)
	}

	var paths []string
	if recursive {
		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				ix.logger.Warn("skipping unreadable entry", "path", path, "error", err)
				return nil
			}
			if !d.IsDir() && extract.Supported(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", absRoot, err)
		}
	} else {
		entries, err := os.ReadDir(absRoot)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", absRoot, err)
		}
		for _, e := range entries {
			if !e.IsDir() && extract.Supported(e.Name()) {
				paths = append(paths, filepath.Join(absRoot, e.Name()))
			}
		}
	}

	var docs []Document
	for _, path := range paths {
		doc, err := ix.IndexFile(ctx, path, maxSize, overlap)
		if err != nil {
			ix.logger.Error("failed to index file", "path", path, "error", err)
			continue
		}
		docs = append(docs, doc)
	}

	ix.logger.Info("indexed directory", "root", absRoot, "files", len(docs))
	return docs, nil
}

// Search returns up to n passages ranked by the store's relevance order.
// An empty store returns an empty result, never an error.
func (ix *Indexer) Search(ctx context.Context, query string, n int) ([]Passage, error) {
	count, err := ix.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}

	res, err := ix.store.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("querying store: %w", err)
	}

	passages := make([]Passage, len(res.Texts))
	for i := range res.Texts {
		passages[i] = Passage{
			Text:     res.Texts[i],
			Source:   res.Metas[i],
			Distance: res.Distances[i],
		}
	}
	return passages, nil
}

// RemoveDocument deletes every chunk of the document, reporting whether any
// existed.
func (ix *Indexer) RemoveDocument(ctx context.Context, docID string) (bool, error) {
	lock := ix.lockDoc(docID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := ix.store.Get(ctx, vectorstore.Filter{DocID: docID})
	if err != nil {
		return false, fmt.Errorf("fetching chunks for %s: %w", docID, err)
	}
	if len(existing.IDs) == 0 {
		return false, nil
	}
	if err := ix.store.Delete(ctx, existing.IDs); err != nil {
		return false, fmt.Errorf("deleting chunks for %s: %w", docID, err)
	}
	ix.logger.Info("removed document", "doc_id", docID, "chunks", len(existing.IDs))
	return true, nil
}

// ListDocuments returns one summary per indexed document. The first chunk
// seen for a DocID provides the fields; all chunks of a document carry the
// same ones.
func (ix *Indexer) ListDocuments(ctx context.Context) ([]Document, error) {
	all, err := ix.store.Get(ctx, vectorstore.Filter{})
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	byID := make(map[string]int)
	var docs []Document
	for _, meta := range all.Metas {
		if meta.DocID == "" {
			continue
		}
		if i, ok := byID[meta.DocID]; ok {
			docs[i].ChunkCount++
			continue
		}
		byID[meta.DocID] = len(docs)
		docs = append(docs, Document{
			DocID:       meta.DocID,
			Filename:    meta.Filename,
			Path:        meta.Path,
			FileType:    meta.FileType,
			Fingerprint: meta.Fingerprint,
			ChunkCount:  1,
		})
	}
	return docs, nil
}

// Stats reports knowledge-base totals.
func (ix *Indexer) Stats(ctx context.Context) (Stats, error) {
	count, err := ix.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting chunks: %w", err)
	}
	docs, err := ix.ListDocuments(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalChunks: count, TotalDocuments: len(docs)}, nil
}
