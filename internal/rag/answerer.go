package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/minuted/internal/engine"
	"github.com/kalambet/minuted/internal/index"
	"github.com/kalambet/minuted/internal/questions"
	"github.com/kalambet/minuted/internal/storage"
)

const (
	defaultTopK   = 5
	previewLength = 120
)

// Searcher retrieves passages from the knowledge base.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]index.Passage, error)
}

// Generator produces a completion from chat messages.
type Generator interface {
	Chat(ctx context.Context, model string, messages []engine.Message) (string, error)
}

// AnswerSink persists generated answers. Optional.
type AnswerSink interface {
	SaveAnswer(storage.Answer) error
}

// Answerer composes retrieval, prompt assembly, and generation into the
// question-answering pipeline.
type Answerer struct {
	searcher Searcher
	gen      Generator
	model    string
	history  AnswerSink // nil disables answer persistence
	topK     int
	logger   *slog.Logger
}

// NewAnswerer wires the pipeline. topK <= 0 defaults to 5; history may be
// nil when persistence is not wanted.
func NewAnswerer(searcher Searcher, gen Generator, model string, history AnswerSink, topK int) *Answerer {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Answerer{
		searcher: searcher,
		gen:      gen,
		model:    model,
		history:  history,
		topK:     topK,
		logger:   slog.Default(),
	}
}

// Answer retrieves passages for the question, assembles the prompt with
// meeting and attachment context, and generates an answer.
func (a *Answerer) Answer(ctx context.Context, question, meetingContext string, attachments []string) (Answer, error) {
	passages, err := a.searcher.Search(ctx, question, a.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving context: %w", err)
	}

	ragCtx := Context{
		Question:       question,
		MeetingContext: meetingContext,
		Retrieved:      passages,
	}

	files := ReadFilesAsContext(attachments)
	prompt := BuildPrompt(
		ragCtx.Question,
		ragCtx.MeetingContext,
		FormatPassages(ragCtx.Retrieved),
		FormatFileContexts(files),
	)

	text, err := a.gen.Chat(ctx, a.model, []engine.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	answer := Answer{
		Question:   question,
		Answer:     text,
		Sources:    toSources(passages),
		Confidence: confidence(passages),
	}

	if a.history != nil {
		if err := a.saveAnswer(answer); err != nil {
			a.logger.Warn("failed to persist answer", "error", err)
		}
	}

	a.logger.Info("answered question",
		"question", truncate(question, 50),
		"sources", len(answer.Sources),
		"confidence", answer.Confidence,
	)
	return answer, nil
}

// ProcessTranscript detects questions in the transcript and answers each in
// order. A failing generation is recorded with a nil Answer; it never
// aborts the remaining questions.
func (a *Answerer) ProcessTranscript(ctx context.Context, transcript, meetingContext string) ([]QuestionAnswer, error) {
	detected := questions.Detect(transcript)
	if len(detected) == 0 {
		return nil, nil
	}
	if meetingContext == "" {
		meetingContext = transcript
	}

	results := make([]QuestionAnswer, 0, len(detected))
	for _, q := range detected {
		answer, err := a.Answer(ctx, q.Text, meetingContext, nil)
		if err != nil {
			a.logger.Error("failed to answer question", "question", truncate(q.Text, 50), "error", err)
			results = append(results, QuestionAnswer{Question: q})
			continue
		}
		results = append(results, QuestionAnswer{Question: q, Answer: &answer})
	}
	return results, nil
}

func (a *Answerer) saveAnswer(ans Answer) error {
	sources, err := json.Marshal(ans.Sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}
	return a.history.SaveAnswer(storage.Answer{
		ID:         uuid.New().String(),
		Question:   ans.Question,
		Answer:     ans.Answer,
		Sources:    string(sources),
		Confidence: ans.Confidence,
		CreatedAt:  time.Now().UTC(),
	})
}

func toSources(passages []index.Passage) []Source {
	sources := make([]Source, len(passages))
	for i, p := range passages {
		sources[i] = Source{
			Filename:    p.Source.Filename,
			TextPreview: truncate(p.Text, previewLength),
			Distance:    p.Distance,
		}
	}
	return sources
}

// confidence derives a coarse answer confidence from retrieval distances:
// the closer the supporting passages, the higher the score. No retrieved
// support floors it at 0.3.
func confidence(passages []index.Passage) float64 {
	if len(passages) == 0 {
		return 0.3
	}
	var sum float64
	for _, p := range passages {
		sum += p.Distance
	}
	c := 1 - sum/float64(len(passages))
	if c < 0.3 {
		return 0.3
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
