// Package engine abstracts the local inference backend used for answer
// generation and embeddings.
package engine

import "context"

// Message represents a chat message in the backend API format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Engine is the LLM collaborator contract. The default implementation
// talks to a local Ollama instance.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's
	// response.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// Embed returns the embedding vector for text using the given model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of all locally available models.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available locally.
	HasModel(ctx context.Context, name string) bool

	// PullModel downloads a model, reporting progress through the optional
	// callback.
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

// PullProgress is one progress update during a model download.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
}

// Embedder binds an Engine to a fixed embedding model, satisfying the
// vector store's embedder contract.
type Embedder struct {
	engine Engine
	model  string
}

// NewEmbedder creates an Embedder using the given Engine and model name.
func NewEmbedder(e Engine, model string) *Embedder {
	return &Embedder{engine: e, model: model}
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.engine.Embed(ctx, e.model, text)
}
