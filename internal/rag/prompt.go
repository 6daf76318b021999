package rag

import (
	"fmt"
	"strings"

	"github.com/kalambet/minuted/internal/index"
)

const promptPreamble = "You are a helpful meeting assistant. " +
	"You answer questions raised during meetings using the context supplied below."

const promptInstruction = "Answer the question using only the information in the supplied context. " +
	"If the context does not contain the answer, say that the information is not available."

// BuildPrompt assembles the generation prompt. Each of the three context
// sections appears only when its text is non-blank, always in the order
// meeting, knowledge, file. With no context at all the prompt degrades to
// preamble plus question.
func BuildPrompt(question, meetingContext, knowledgeContext, fileContext string) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)
	sb.WriteString("\n")

	writeSection := func(label, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		sb.WriteString("\n## ")
		sb.WriteString(label)
		sb.WriteString("\n")
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	writeSection("Meeting Context", meetingContext)
	writeSection("Knowledge Base", knowledgeContext)
	writeSection("Attached File Context", fileContext)

	sb.WriteString("\n## Question\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString(promptInstruction)
	return sb.String()
}

// FormatPassages renders retrieved passages as a knowledge-context block,
// one source header per passage, preserving retrieval order.
func FormatPassages(passages []index.Passage) string {
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Source %d: %s]\n%s", i+1, p.Source.Filename, p.Text)
	}
	return sb.String()
}

// FormatFileContexts renders attached-file excerpts as a context block.
func FormatFileContexts(files []FileContext) string {
	var sb strings.Builder
	for i, f := range files {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Attached: %s]\n%s", f.Filename, f.Text)
	}
	return sb.String()
}
