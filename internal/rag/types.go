// Package rag assembles bounded prompts from transcript context, retrieved
// passages, and attached-file excerpts, and orchestrates answer generation
// for detected questions.
package rag

import (
	"github.com/kalambet/minuted/internal/index"
	"github.com/kalambet/minuted/internal/questions"
)

// Context is the assembled input for one answer generation.
type Context struct {
	Question       string          `json:"question"`
	MeetingContext string          `json:"meeting_context"`
	Retrieved      []index.Passage `json:"retrieved_chunks"`
}

// Source identifies one retrieved passage backing an answer.
type Source struct {
	Filename    string  `json:"filename"`
	TextPreview string  `json:"text_preview"`
	Distance    float64 `json:"distance"`
}

// Answer is a generated answer with its supporting sources.
type Answer struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// QuestionAnswer pairs a detected question with its generated answer.
// Answer is nil when generation failed for that question.
type QuestionAnswer struct {
	Question questions.Detected `json:"question"`
	Answer   *Answer            `json:"answer,omitempty"`
}

// FileContext is the extracted text of one attached file.
type FileContext struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}
