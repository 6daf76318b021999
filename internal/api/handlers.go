// Package api exposes the indexing and question-answering pipeline over
// HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/minuted/internal/index"
	"github.com/kalambet/minuted/internal/questions"
	"github.com/kalambet/minuted/internal/rag"
	"github.com/kalambet/minuted/internal/storage"
)

const maxBodySize = 10 << 20 // 10MB

// Deps holds the wired pipeline components for the HTTP handlers.
type Deps struct {
	Indexer  *index.Indexer
	Answerer *rag.Answerer
	History  *storage.Store
	Token    string

	// Defaults applied when a request omits chunking parameters.
	ChunkSize int
	Overlap   int
}

// NewHandler builds the HTTP API. All routes except /health require the
// bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/index", handleIndex(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Delete("/documents/{docID}", handleDeleteDocument(deps))
		r.Get("/stats", handleStats(deps))
		r.Post("/search", handleSearch(deps))
		r.Post("/questions", handleQuestions())
		r.Post("/ask", handleAsk(deps))
		r.Post("/transcript", handleTranscript(deps))
		r.Get("/answers", handleListAnswers(deps))
	})

	return r
}

type indexRequest struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	ChunkSize int    `json:"chunk_size"`
	Overlap   *int   `json:"overlap"`
}

func handleIndex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req indexRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Path == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "path is required")
			return
		}
		chunkSize, overlap := deps.ChunkSize, deps.Overlap
		if req.ChunkSize > 0 {
			chunkSize = req.ChunkSize
		}
		if req.Overlap != nil {
			overlap = *req.Overlap
		}

		info, err := os.Stat(req.Path)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found_error", "path not found: %s", req.Path)
			return
		}

		if info.IsDir() {
			docs, err := deps.Indexer.IndexDirectory(r.Context(), req.Path, req.Recursive, chunkSize, overlap)
			if err != nil {
				writeIndexError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
			return
		}

		doc, err := deps.Indexer.IndexFile(r.Context(), req.Path, chunkSize, overlap)
		if err != nil {
			writeIndexError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": []index.Document{doc}})
	}
}

func writeIndexError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, index.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
	case errors.Is(err, index.ErrUnsupportedType):
		httpError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "indexing failed: %v", err)
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := deps.Indexer.ListDocuments(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing documents: %v", err)
			return
		}
		if docs == nil {
			docs = []index.Document{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	}
}

func handleDeleteDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID := chi.URLParam(r, "docID")
		removed, err := deps.Indexer.RemoveDocument(r.Context(), docID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "removing document: %v", err)
			return
		}
		if !removed {
			httpError(w, http.StatusNotFound, "not_found_error", "document %s not found", docID)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deleted": docID})
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Indexer.Stats(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reading stats: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

type searchRequest struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}
		if req.NResults <= 0 {
			req.NResults = 5
		}

		passages, err := deps.Indexer.Search(r.Context(), req.Query, req.NResults)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}
		if passages == nil {
			passages = []index.Passage{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": passages})
	}
}

type questionsRequest struct {
	Transcript string `json:"transcript"`
}

func handleQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		detected := questions.Detect(req.Transcript)
		if detected == nil {
			detected = []questions.Detected{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": detected})
	}
}

type askRequest struct {
	Question       string   `json:"question"`
	MeetingContext string   `json:"meeting_context"`
	Attachments    []string `json:"attachments"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		answer, err := deps.Answerer.Answer(r.Context(), req.Question, req.MeetingContext, req.Attachments)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "answering failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, answer)
	}
}

type transcriptRequest struct {
	Transcript     string `json:"transcript"`
	MeetingContext string `json:"meeting_context"`
}

func handleTranscript(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transcriptRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Transcript == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "transcript is required")
			return
		}

		results, err := deps.Answerer.ProcessTranscript(r.Context(), req.Transcript, req.MeetingContext)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "processing transcript: %v", err)
			return
		}
		if results == nil {
			results = []rag.QuestionAnswer{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"answers": results})
	}
}

func handleListAnswers(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit: %q", raw)
				return
			}
			limit = n
		}

		answers, err := deps.History.ListAnswers(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing answers: %v", err)
			return
		}

		type answerView struct {
			ID         string          `json:"id"`
			Question   string          `json:"question"`
			Answer     string          `json:"answer"`
			Sources    json.RawMessage `json:"sources"`
			Confidence float64         `json:"confidence"`
			CreatedAt  string          `json:"created_at"`
		}
		views := make([]answerView, len(answers))
		for i, a := range answers {
			views[i] = answerView{
				ID:         a.ID,
				Question:   a.Question,
				Answer:     a.Answer,
				Sources:    json.RawMessage(a.Sources),
				Confidence: a.Confidence,
				CreatedAt:  a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"answers": views})
	}
}

// decodeBody decodes the JSON request body into v, writing a 400 and
// returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
