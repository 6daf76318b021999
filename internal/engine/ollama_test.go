package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeOllama(t *testing.T, handler http.HandlerFunc) *Ollama {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllama(srv.URL)
}

func TestChat(t *testing.T) {
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Stream {
			t.Error("stream = true, want false")
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(chatResponse{Message: Message{Role: "assistant", Content: "hello back"}})
	})

	got, err := c.Chat(context.Background(), "test-model", []Message{{Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "hello back" {
		t.Errorf("response = %q", got)
	}
}

func TestChat_ServerError(t *testing.T) {
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	if _, err := c.Chat(context.Background(), "m", nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestEmbed(t *testing.T) {
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %q, want /api/embed", r.URL.Path)
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2, 0.3}}})
	})

	vec, err := c.Embed(context.Background(), "embed-model", "some text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("vector length = %d, want 3", len(vec))
	}
}

func TestEmbed_EmptyResponse(t *testing.T) {
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	})
	if _, err := c.Embed(context.Background(), "m", "text"); err == nil {
		t.Fatal("expected error for empty embeddings")
	}
}

func TestPullModel(t *testing.T) {
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pull" {
			t.Errorf("path = %q, want /api/pull", r.URL.Path)
		}
		var req pullRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Name != "mistral-nemo" {
			t.Errorf("name = %q", req.Name)
		}
		if !req.Stream {
			t.Error("stream = false, want true")
		}
		enc := json.NewEncoder(w)
		enc.Encode(PullProgress{Status: "pulling manifest"})
		enc.Encode(PullProgress{Status: "downloading", Total: 100, Completed: 50})
		enc.Encode(PullProgress{Status: "success", Total: 100, Completed: 100})
	})

	var got []PullProgress
	err := c.PullModel(context.Background(), "mistral-nemo", func(p PullProgress) {
		got = append(got, p)
	})
	if err != nil {
		t.Fatalf("PullModel: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("progress updates = %d, want 3", len(got))
	}
	if got[2].Status != "success" || got[2].Completed != 100 {
		t.Errorf("final update = %+v", got[2])
	}
}

func TestPullModel_ServerError(t *testing.T) {
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	})
	if err := c.PullModel(context.Background(), "nope", nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestHasModel(t *testing.T) {
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"nomic-embed-text:latest"},{"name":"mistral-nemo"}]}`))
	})

	ctx := context.Background()
	if !c.HasModel(ctx, "nomic-embed-text") {
		t.Error("tagged model not matched by base name")
	}
	if !c.HasModel(ctx, "mistral-nemo") {
		t.Error("exact model not matched")
	}
	if c.HasModel(ctx, "phi3.5") {
		t.Error("missing model reported present")
	}
}

func TestIsRunning(t *testing.T) {
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	})
	if !c.IsRunning(context.Background()) {
		t.Error("IsRunning = false for healthy server")
	}

	down := NewOllama("http://127.0.0.1:1")
	if down.IsRunning(context.Background()) {
		t.Error("IsRunning = true for unreachable server")
	}
}

func TestEmbedderBindsModel(t *testing.T) {
	var gotModel string
	c := newFakeOllama(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}}})
	})

	emb := NewEmbedder(c, "nomic-embed-text")
	if _, err := emb.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotModel != "nomic-embed-text" {
		t.Errorf("model = %q, want nomic-embed-text", gotModel)
	}
}
