// Package segment splits document text into bounded, overlapping chunks
// suitable for embedding and retrieval. Splitting prefers paragraph
// boundaries, falling back to sentences and finally single words when a
// unit alone exceeds the chunk size.
package segment

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidChunkSize is returned when maxSize is zero or negative.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap is returned when overlap is negative.
	ErrInvalidOverlap = errors.New("overlap must be non-negative")
)

var (
	paragraphSep = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd  = regexp.MustCompile(`([.!?])\s+`)
)

// Split divides text into ordered chunks of at most maxSize characters.
// Consecutive chunks share the last overlap characters of the preceding
// chunk. An overlap >= maxSize is clamped to maxSize/2 rather than
// rejected. Empty or whitespace-only input yields no chunks.
//
// A single word longer than maxSize is emitted as its own oversized
// chunk; words are never split mid-token.
func Split(text string, maxSize, overlap int) ([]string, error) {
	if maxSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 {
		return nil, ErrInvalidOverlap
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if overlap >= maxSize {
		overlap = maxSize / 2
	}

	var chunks []string
	var current string

	for _, paragraph := range paragraphSep.Split(text, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if len(current)+len(paragraph)+1 <= maxSize {
			if current != "" {
				current += "\n\n" + paragraph
			} else {
				current = paragraph
			}
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
			// Seed the next chunk with the tail of the emitted one so
			// context spanning the boundary is retrievable from both.
			if overlap > 0 && len(current) > overlap {
				current = current[len(current)-overlap:] + "\n\n" + paragraph
			} else {
				current = paragraph
			}
			continue
		}

		// The paragraph alone exceeds maxSize: pack at sentence granularity.
		chunks, current = packSentences(chunks, current, paragraph, maxSize)
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks, nil
}

// packSentences greedily packs the sentences of an oversized paragraph,
// dropping to word granularity for any sentence that alone exceeds maxSize.
func packSentences(chunks []string, current, paragraph string, maxSize int) ([]string, string) {
	for _, sentence := range splitSentences(paragraph) {
		if len(current)+len(sentence)+1 <= maxSize {
			if current != "" {
				current += " " + sentence
			} else {
				current = sentence
			}
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}

		if len(sentence) > maxSize {
			current = ""
			chunks, current = packWords(chunks, current, sentence, maxSize)
		} else {
			current = sentence
		}
	}
	return chunks, current
}

// packWords packs whitespace tokens greedily. A lone word longer than
// maxSize is emitted unsplit.
func packWords(chunks []string, current, sentence string, maxSize int) ([]string, string) {
	for _, word := range strings.Fields(sentence) {
		if len(current)+len(word)+1 <= maxSize {
			if current != "" {
				current += " " + word
			} else {
				current = word
			}
			continue
		}
		if current != "" {
			chunks = append(chunks, current)
		}
		current = word
	}
	return chunks, current
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace, keeping the punctuation attached to the sentence.
func splitSentences(paragraph string) []string {
	marked := sentenceEnd.ReplaceAllString(paragraph, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
