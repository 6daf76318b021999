package questions

import (
	"regexp"
	"strings"
)

// threshold is the minimum Score for a sentence to qualify as a question.
const threshold = 0.5

// Detected is a question found in a transcript. The offsets index the
// original transcript: transcript[StartOffset:EndOffset] == Text.
type Detected struct {
	Text        string  `json:"text"`
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
	Confidence  float64 `json:"confidence"`
}

// sentenceBoundary marks sentence ends: ., !, ? or newline followed by
// whitespace. The boundary character stays with the preceding sentence.
var sentenceBoundary = regexp.MustCompile(`([.!?\n])\s+`)

// Detect splits the transcript into candidate sentences, scores each, and
// returns the questions in transcript order. Duplicate question text
// (case-insensitive) is reported once, at its first occurrence. Offsets are
// located by forward-only search, so repeated identical sentences resolve
// to successive positions.
func Detect(transcript string) []Detected {
	if strings.TrimSpace(transcript) == "" {
		return nil
	}

	marked := sentenceBoundary.ReplaceAllString(transcript, "$1\x00")
	sentences := strings.Split(marked, "\x00")

	var detected []Detected
	seen := make(map[string]bool)
	searchPos := 0

	for _, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}

		start := searchPos
		if idx := strings.Index(transcript[searchPos:], trimmed); idx >= 0 {
			start = searchPos + idx
		}
		end := start + len(trimmed)
		searchPos = end

		confidence := Score(trimmed)
		if confidence < threshold {
			continue
		}

		normalized := strings.ToLower(trimmed)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		detected = append(detected, Detected{
			Text:        trimmed,
			StartOffset: start,
			EndOffset:   end,
			Confidence:  confidence,
		})
	}
	return detected
}
