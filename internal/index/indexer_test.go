package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/minuted/internal/vectorstore"
)

// fakeStore is an in-memory vectorstore.Store that ranks query results by
// naive substring overlap. Good enough to observe the adapter's behavior.
type fakeStore struct {
	ids   []string
	texts map[string]string
	metas map[string]vectorstore.Metadata
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		texts: make(map[string]string),
		metas: make(map[string]vectorstore.Metadata),
	}
}

func (f *fakeStore) Add(_ context.Context, ids, texts []string, metas []vectorstore.Metadata) error {
	for i, id := range ids {
		f.ids = append(f.ids, id)
		f.texts[id] = texts[i]
		f.metas[id] = metas[i]
	}
	return nil
}

func (f *fakeStore) Get(_ context.Context, filter vectorstore.Filter) (vectorstore.GetResult, error) {
	var res vectorstore.GetResult
	for _, id := range f.ids {
		meta := f.metas[id]
		if filter.DocID != "" && meta.DocID != filter.DocID {
			continue
		}
		res.IDs = append(res.IDs, id)
		res.Metas = append(res.Metas, meta)
	}
	return res, nil
}

func (f *fakeStore) Delete(_ context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.ids[:0]
	for _, id := range f.ids {
		if drop[id] {
			delete(f.texts, id)
			delete(f.metas, id)
			continue
		}
		kept = append(kept, id)
	}
	f.ids = kept
	return nil
}

func (f *fakeStore) Query(_ context.Context, text string, k int) (vectorstore.QueryResult, error) {
	var res vectorstore.QueryResult
	for _, id := range f.ids {
		if len(res.IDs) >= k {
			break
		}
		dist := 1.0
		if strings.Contains(strings.ToLower(f.texts[id]), strings.ToLower(text)) {
			dist = 0.1
		}
		res.IDs = append(res.IDs, id)
		res.Texts = append(res.Texts, f.texts[id])
		res.Metas = append(res.Metas, f.metas[id])
		res.Distances = append(res.Distances, dist)
	}
	return res, nil
}

func (f *fakeStore) Count(_ context.Context) (int, error) {
	return len(f.ids), nil
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestIndexFile_NotFound(t *testing.T) {
	ix := New(newFakeStore())
	_, err := ix.IndexFile(context.Background(), filepath.Join(t.TempDir(), "missing.md"), 500, 50)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestIndexFile_UnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "image.png", "binary")

	ix := New(newFakeStore())
	_, err := ix.IndexFile(context.Background(), path, 500, 50)
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("err = %v, want unsupported type", err)
	}
}

func TestIndexFile_Basic(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "notes.md", "Alpha paragraph.\n\nBeta paragraph.")

	store := newFakeStore()
	ix := New(store)
	doc, err := ix.IndexFile(context.Background(), path, 500, 50)
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if doc.ChunkCount != 1 {
		t.Errorf("ChunkCount = %d, want 1", doc.ChunkCount)
	}
	if doc.DocID == "" || doc.Fingerprint == "" {
		t.Errorf("incomplete document: %+v", doc)
	}
	if doc.FileType != ".md" {
		t.Errorf("FileType = %q, want .md", doc.FileType)
	}
	if got := store.ids[0]; got != ChunkID(doc.DocID, 0) {
		t.Errorf("chunk id = %q, want %q", got, ChunkID(doc.DocID, 0))
	}
}

func TestIndexFile_UnchangedIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "notes.md", "Stable content here.")

	store := newFakeStore()
	ix := New(store)
	ctx := context.Background()

	first, err := ix.IndexFile(ctx, path, 500, 50)
	if err != nil {
		t.Fatalf("first IndexFile: %v", err)
	}
	idsBefore := append([]string(nil), store.ids...)

	second, err := ix.IndexFile(ctx, path, 500, 50)
	if err != nil {
		t.Fatalf("second IndexFile: %v", err)
	}
	if second.ChunkCount != first.ChunkCount {
		t.Errorf("ChunkCount changed: %d -> %d", first.ChunkCount, second.ChunkCount)
	}
	if len(store.ids) != len(idsBefore) {
		t.Fatalf("chunk count in store changed: %d -> %d", len(idsBefore), len(store.ids))
	}
	for i := range idsBefore {
		if store.ids[i] != idsBefore[i] {
			t.Errorf("chunk id %d changed: %q -> %q", i, idsBefore[i], store.ids[i])
		}
	}
}

func TestIndexFile_ChangedContentReplacesChunkSet(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "notes.md", "Original content.")

	store := newFakeStore()
	ix := New(store)
	ctx := context.Background()

	first, err := ix.IndexFile(ctx, path, 500, 50)
	if err != nil {
		t.Fatalf("first IndexFile: %v", err)
	}

	writeDoc(t, dir, "notes.md", "Completely rewritten content with more words in it.")
	second, err := ix.IndexFile(ctx, path, 500, 50)
	if err != nil {
		t.Fatalf("second IndexFile: %v", err)
	}

	if second.DocID != first.DocID {
		t.Errorf("DocID changed across edit: %q -> %q", first.DocID, second.DocID)
	}
	if second.Fingerprint == first.Fingerprint {
		t.Errorf("fingerprint did not change")
	}
	for _, meta := range store.metas {
		if meta.Fingerprint != second.Fingerprint {
			t.Errorf("stale chunk survived with fingerprint %q", meta.Fingerprint)
		}
	}
}

func TestIndexFile_EmptyExtraction(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "blank.txt", "   \n\n  ")

	store := newFakeStore()
	ix := New(store)
	doc, err := ix.IndexFile(context.Background(), path, 500, 50)
	if err != nil {
		t.Fatalf("whitespace-only file should not error: %v", err)
	}
	if doc.ChunkCount != 0 {
		t.Errorf("ChunkCount = %d, want 0", doc.ChunkCount)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("store has %d chunks, want 0", n)
	}
}

func TestIndexDirectory_BestEffort(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.md", "Readable content.")
	writeDoc(t, dir, "skip.xyz", "not recognized")
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeDoc(t, sub, "nested.txt", "Nested content.")

	ix := New(newFakeStore())
	docs, err := ix.IndexDirectory(context.Background(), dir, true, 500, 50)
	if err != nil {
		t.Fatalf("IndexDirectory: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	flat, err := ix.IndexDirectory(context.Background(), dir, false, 500, 50)
	if err != nil {
		t.Fatalf("IndexDirectory flat: %v", err)
	}
	if len(flat) != 1 {
		t.Errorf("non-recursive got %d documents, want 1", len(flat))
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	ix := New(newFakeStore())
	passages, err := ix.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("got %d passages, want 0", len(passages))
	}
}

func TestSearch_ClampsToStoreCount(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "one.md", "Single chunk of text.")

	store := newFakeStore()
	ix := New(store)
	if _, err := ix.IndexFile(context.Background(), path, 500, 50); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	passages, err := ix.Search(context.Background(), "chunk", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(passages) != 1 {
		t.Errorf("got %d passages, want 1", len(passages))
	}
}

func TestRemoveDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "doc.md", "Some content.")

	store := newFakeStore()
	ix := New(store)
	ctx := context.Background()
	doc, err := ix.IndexFile(ctx, path, 500, 50)
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	removed, err := ix.RemoveDocument(ctx, doc.DocID)
	if err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}

	removed, err = ix.RemoveDocument(ctx, doc.DocID)
	if err != nil {
		t.Fatalf("RemoveDocument again: %v", err)
	}
	if removed {
		t.Error("second removal reported true, want false")
	}
}

func TestListDocuments_Dedup(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.md", "First paragraph.\n\n"+strings.Repeat("word ", 200))
	b := writeDoc(t, dir, "b.md", "Other document.")

	ix := New(newFakeStore())
	ctx := context.Background()
	if _, err := ix.IndexFile(ctx, a, 100, 0); err != nil {
		t.Fatalf("IndexFile a: %v", err)
	}
	if _, err := ix.IndexFile(ctx, b, 100, 0); err != nil {
		t.Fatalf("IndexFile b: %v", err)
	}

	docs, err := ix.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	total := 0
	for _, d := range docs {
		total += d.ChunkCount
	}
	stats, err := ix.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalChunks != total {
		t.Errorf("stats chunks = %d, documents sum = %d", stats.TotalChunks, total)
	}
	if stats.TotalDocuments != 2 {
		t.Errorf("stats documents = %d, want 2", stats.TotalDocuments)
	}
}

func TestDocID_Deterministic(t *testing.T) {
	if DocID("/kb/a.md") != DocID("/kb/a.md") {
		t.Error("DocID not deterministic")
	}
	if DocID("/kb/a.md") == DocID("/kb/b.md") {
		t.Error("distinct paths share a DocID")
	}
	if len(DocID("/kb/a.md")) != 16 {
		t.Errorf("DocID length = %d, want 16", len(DocID("/kb/a.md")))
	}
	if ChunkID("abc", 3) != "abc_chunk_3" {
		t.Errorf("ChunkID = %q", ChunkID("abc", 3))
	}
}
