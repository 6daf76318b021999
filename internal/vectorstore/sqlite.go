package vectorstore

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Compile-time check that SQLite implements Store.
var _ Store = (*SQLite)(nil)

const embedConcurrency = 4

// SQLite stores chunk embeddings in the kb_chunks table and answers
// similarity queries with a brute-force cosine scan. Fine for a local
// knowledge base; swap in an ANN-backed Store when the chunk count makes
// query latency noticeable.
type SQLite struct {
	db       *sql.DB
	embedder Embedder
}

// NewSQLite wraps an existing *sql.DB for vector operations. The kb_chunks
// table must already exist (created via storage migrations).
func NewSQLite(db *sql.DB, embedder Embedder) *SQLite {
	return &SQLite{db: db, embedder: embedder}
}

// Add embeds every text (bounded concurrency) and inserts the records in a
// single transaction.
func (s *SQLite) Add(ctx context.Context, ids, texts []string, metas []Metadata) error {
	if len(ids) != len(texts) || len(ids) != len(metas) {
		return fmt.Errorf("mismatched lengths: %d ids, %d texts, %d metadatas", len(ids), len(texts), len(metas))
	}
	if len(ids) == 0 {
		return nil
	}

	embeddings := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gCtx, text)
			if err != nil {
				return fmt.Errorf("embedding chunk %s: %w", ids[i], err)
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO kb_chunks (id, doc_id, text_chunk, metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i := range ids {
		metaJSON, err := json.Marshal(metas[i])
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshalling metadata for %s: %w", ids[i], err)
		}
		blob := encodeFloat32s(embeddings[i])
		if _, err := stmt.Exec(ids[i], metas[i].DocID, texts[i], string(metaJSON), blob, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting chunk %s: %w", ids[i], err)
		}
	}

	return tx.Commit()
}

// Get returns ids and metadatas matching the filter, ordered by insertion.
func (s *SQLite) Get(ctx context.Context, filter Filter) (GetResult, error) {
	query := `SELECT id, metadata FROM kb_chunks`
	var args []any
	if filter.DocID != "" {
		query += ` WHERE doc_id = ?`
		args = append(args, filter.DocID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return GetResult{}, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var res GetResult
	for rows.Next() {
		var id, metaJSON string
		if err := rows.Scan(&id, &metaJSON); err != nil {
			return GetResult{}, fmt.Errorf("scanning row: %w", err)
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return GetResult{}, fmt.Errorf("unmarshalling metadata for %s: %w", id, err)
		}
		res.IDs = append(res.IDs, id)
		res.Metas = append(res.Metas, meta)
	}
	return res, rows.Err()
}

// Delete removes the records with the given ids in a single statement.
func (s *SQLite) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `DELETE FROM kb_chunks WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// idDistance holds id and distance during the scan phase of Query.
type idDistance struct {
	ID       string
	Distance float64
}

// Query embeds the query text and scans all embeddings, keeping the k
// closest records in a max-heap. Results come back ordered by increasing
// distance (1 - cosine similarity).
func (s *SQLite) Query(ctx context.Context, text string, k int) (QueryResult, error) {
	if k <= 0 {
		return QueryResult{}, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return QueryResult{}, fmt.Errorf("embedding query: %w", err)
	}
	queryNorm := norm(vec)
	if queryNorm == 0 {
		return QueryResult{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM kb_chunks`)
	if err != nil {
		return QueryResult{}, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	h := &distanceHeap{}
	heap.Init(h)

	// Reusable buffer avoids per-row allocations during the scan.
	var buf []float32

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return QueryResult{}, fmt.Errorf("scanning row: %w", err)
		}
		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return QueryResult{}, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}

		dist := 1 - cosine(vec, buf, queryNorm)
		if h.Len() < k {
			heap.Push(h, idDistance{ID: id, Distance: dist})
		} else if dist < (*h)[0].Distance {
			(*h)[0] = idDistance{ID: id, Distance: dist}
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("iterating rows: %w", err)
	}
	if h.Len() == 0 {
		return QueryResult{}, nil
	}

	// Drain the max-heap back-to-front to get increasing distance order.
	ranked := make([]idDistance, h.Len())
	for i := len(ranked) - 1; i >= 0; i-- {
		ranked[i] = heap.Pop(h).(idDistance)
	}

	args := make([]any, len(ranked))
	distances := make(map[string]float64, len(ranked))
	for i, r := range ranked {
		args[i] = r.ID
		distances[r.ID] = r.Distance
	}
	fullQuery := `SELECT id, text_chunk, metadata FROM kb_chunks
		WHERE id IN (?` + strings.Repeat(",?", len(ranked)-1) + `)`

	fullRows, err := s.db.QueryContext(ctx, fullQuery, args...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("fetching top-k chunks: %w", err)
	}
	defer fullRows.Close()

	byID := make(map[string]struct {
		text string
		meta Metadata
	}, len(ranked))
	for fullRows.Next() {
		var id, chunk, metaJSON string
		if err := fullRows.Scan(&id, &chunk, &metaJSON); err != nil {
			return QueryResult{}, fmt.Errorf("scanning full chunk: %w", err)
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return QueryResult{}, fmt.Errorf("unmarshalling metadata for %s: %w", id, err)
		}
		byID[id] = struct {
			text string
			meta Metadata
		}{chunk, meta}
	}
	if err := fullRows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("iterating full chunks: %w", err)
	}

	// Assemble in ranked order (the IN query does not preserve it).
	var res QueryResult
	for _, r := range ranked {
		full, ok := byID[r.ID]
		if !ok {
			continue
		}
		res.IDs = append(res.IDs, r.ID)
		res.Texts = append(res.Texts, full.text)
		res.Metas = append(res.Metas, full.meta)
		res.Distances = append(res.Distances, r.Distance)
	}
	return res, nil
}

// Count returns the number of records in kb_chunks.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kb_chunks`).Scan(&count)
	return count, err
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing its backing array when large enough.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine computes dot(a,b) / (aNorm * |b|). aNorm is precomputed.
func cosine(a, b []float32, aNorm float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return dot / (aNorm * bNorm)
}

// distanceHeap is a max-heap of idDistance ordered by Distance, used to
// keep the k smallest distances during the scan phase of Query.
type distanceHeap []idDistance

func (h distanceHeap) Len() int           { return len(h) }
func (h distanceHeap) Less(i, j int) bool { return h[i].Distance > h[j].Distance }
func (h distanceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *distanceHeap) Push(x any)        { *h = append(*h, x.(idDistance)) }
func (h *distanceHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
