package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/minuted/internal/engine"
	"github.com/kalambet/minuted/internal/index"
	"github.com/kalambet/minuted/internal/storage"
	"github.com/kalambet/minuted/internal/vectorstore"
)

type stubSearcher struct {
	passages []index.Passage
	err      error
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]index.Passage, error) {
	return s.passages, s.err
}

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Chat(_ context.Context, _ string, messages []engine.Message) (string, error) {
	for _, m := range messages {
		g.prompts = append(g.prompts, m.Content)
	}
	return g.reply, g.err
}

type memorySink struct {
	saved []storage.Answer
}

func (m *memorySink) SaveAnswer(a storage.Answer) error {
	m.saved = append(m.saved, a)
	return nil
}

func passage(filename, text string, distance float64) index.Passage {
	return index.Passage{
		Text:     text,
		Source:   vectorstore.Metadata{Filename: filename},
		Distance: distance,
	}
}

func TestAnswer_AssemblesPromptAndSources(t *testing.T) {
	searcher := &stubSearcher{passages: []index.Passage{
		passage("roadmap.md", "Q2 deadline is June 30.", 0.1),
	}}
	gen := &stubGenerator{reply: "The deadline is June 30."}
	sink := &memorySink{}
	a := NewAnswerer(searcher, gen, "test-model", sink, 5)

	ans, err := a.Answer(context.Background(), "What is the deadline?", "We discussed Q2.", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if ans.Answer != "The deadline is June 30." {
		t.Errorf("Answer = %q", ans.Answer)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Filename != "roadmap.md" {
		t.Errorf("Sources = %+v", ans.Sources)
	}
	if ans.Confidence < 0.85 {
		t.Errorf("Confidence = %f, want high for close passage", ans.Confidence)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	for _, want := range []string{"Meeting Context", "Knowledge Base", "June 30", "What is the deadline?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if len(sink.saved) != 1 {
		t.Fatalf("got %d persisted answers, want 1", len(sink.saved))
	}
	if sink.saved[0].ID == "" {
		t.Error("persisted answer has empty ID")
	}
}

func TestAnswer_EmptyStoreStillAnswers(t *testing.T) {
	gen := &stubGenerator{reply: "The information is not available."}
	a := NewAnswerer(&stubSearcher{}, gen, "m", nil, 5)

	ans, err := a.Answer(context.Background(), "What is the budget?", "", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("Sources = %+v, want none", ans.Sources)
	}
	if ans.Confidence != 0.3 {
		t.Errorf("Confidence = %f, want 0.3 floor", ans.Confidence)
	}
	if strings.Contains(gen.prompts[0], "Knowledge Base") {
		t.Error("Knowledge Base section present with no retrieval")
	}
}

func TestAnswer_GeneratorFailurePropagates(t *testing.T) {
	a := NewAnswerer(&stubSearcher{}, &stubGenerator{err: errors.New("backend down")}, "m", nil, 5)
	if _, err := a.Answer(context.Background(), "Q?", "", nil); err == nil {
		t.Fatal("expected error from failing generator")
	}
}

func TestAnswer_SearcherFailurePropagates(t *testing.T) {
	a := NewAnswerer(&stubSearcher{err: errors.New("store unreachable")}, &stubGenerator{}, "m", nil, 5)
	if _, err := a.Answer(context.Background(), "Q?", "", nil); err == nil {
		t.Fatal("expected error from failing searcher")
	}
}

func TestProcessTranscript(t *testing.T) {
	gen := &stubGenerator{reply: "Answered."}
	a := NewAnswerer(&stubSearcher{}, gen, "m", nil, 5)

	transcript := "We met today. What is the plan? Everyone agreed. When do we ship?"
	results, err := a.ProcessTranscript(context.Background(), transcript, "")
	if err != nil {
		t.Fatalf("ProcessTranscript: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if r.Answer == nil {
			t.Errorf("result %d has nil answer", i)
		}
	}
	if results[0].Question.Text != "What is the plan?" {
		t.Errorf("first question = %q", results[0].Question.Text)
	}
	// The transcript itself becomes the meeting context.
	if !strings.Contains(gen.prompts[0], "We met today.") {
		t.Error("meeting context missing from prompt")
	}
}

func TestProcessTranscript_GenerationFailureDoesNotAbort(t *testing.T) {
	a := NewAnswerer(&stubSearcher{}, &stubGenerator{err: errors.New("down")}, "m", nil, 5)
	results, err := a.ProcessTranscript(context.Background(), "What is the plan? When do we ship?", "")
	if err != nil {
		t.Fatalf("ProcessTranscript: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if r.Answer != nil {
			t.Errorf("result %d has non-nil answer despite failure", i)
		}
	}
}

func TestProcessTranscript_NoQuestions(t *testing.T) {
	a := NewAnswerer(&stubSearcher{}, &stubGenerator{}, "m", nil, 5)
	results, err := a.ProcessTranscript(context.Background(), "All statements here. Nothing else.", "")
	if err != nil {
		t.Fatalf("ProcessTranscript: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestReadFilesAsContext(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.md")
	if err := os.WriteFile(good, []byte("Useful notes."), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("   "), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	unknown := filepath.Join(dir, "image.png")
	if err := os.WriteFile(unknown, []byte("png"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	missing := filepath.Join(dir, "missing.md")

	files := ReadFilesAsContext([]string{missing, good, empty, unknown})
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1: %+v", len(files), files)
	}
	if files[0].Filename != "good.md" || files[0].Text != "Useful notes." {
		t.Errorf("file = %+v", files[0])
	}
}
