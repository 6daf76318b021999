package segment

import (
	"errors"
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	for _, input := range []string{"", "   \n  ", "\n\n\n"} {
		chunks, err := Split(input, 500, 50)
		if err != nil {
			t.Fatalf("Split(%q): %v", input, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%q) = %v, want empty", input, chunks)
		}
	}
}

func TestSplit_InvalidArguments(t *testing.T) {
	if _, err := Split("text", 0, 0); !errors.Is(err, ErrInvalidChunkSize) {
		t.Errorf("maxSize=0: err = %v, want ErrInvalidChunkSize", err)
	}
	if _, err := Split("text", -5, 0); !errors.Is(err, ErrInvalidChunkSize) {
		t.Errorf("maxSize=-5: err = %v, want ErrInvalidChunkSize", err)
	}
	if _, err := Split("text", 10, -1); !errors.Is(err, ErrInvalidOverlap) {
		t.Errorf("overlap=-1: err = %v, want ErrInvalidOverlap", err)
	}
}

func TestSplit_OverlapClampedNotRejected(t *testing.T) {
	chunks, err := Split("short", 10, 15)
	if err != nil {
		t.Fatalf("overlap > maxSize should be clamped, got error: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("chunks = %v, want [short]", chunks)
	}
}

func TestSplit_SingleParagraphFits(t *testing.T) {
	chunks, err := Split("Hello world.", 500, 50)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "Hello world." {
		t.Errorf("chunks = %v, want [Hello world.]", chunks)
	}
}

func TestSplit_ParagraphBoundaries(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks, err := Split(text, 50, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 50 {
			t.Errorf("chunk %d has length %d, want <= 50", i, len(c))
		}
	}
}

func TestSplit_Overlap(t *testing.T) {
	text := "aaaa aaaa aaaa aaaa.\n\nbbbb bbbb bbbb bbbb.\n\ncccc cccc cccc cccc."
	chunks, err := Split(text, 25, 10)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	// Each chunk after the first starts with the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-10:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not start with overlap %q: %q", i, tail, chunks[i])
		}
	}
}

func TestSplit_OversizedParagraphFallsBackToSentences(t *testing.T) {
	text := "This is sentence one. This is sentence two. This is sentence three."
	chunks, err := Split(text, 30, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %v", len(chunks), chunks)
	}
	if chunks[0] != "This is sentence one." {
		t.Errorf("chunks[0] = %q", chunks[0])
	}
}

func TestSplit_OversizedSentenceFallsBackToWords(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	chunks, err := Split(text, 15, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, c := range chunks {
		if len(c) > 15 {
			t.Errorf("chunk %d has length %d, want <= 15: %q", i, len(c), c)
		}
	}
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q missing from output", word)
		}
	}
}

func TestSplit_OversizedWordEmittedUnsplit(t *testing.T) {
	long := strings.Repeat("x", 40)
	chunks, err := Split("tiny "+long+" tiny", 10, 0)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	found := false
	for _, c := range chunks {
		if c == long {
			found = true
		}
	}
	if !found {
		t.Errorf("oversized word not emitted unsplit: %v", chunks)
	}
}

func TestSplit_NothingDropped(t *testing.T) {
	text := "The roadmap covers Q2.\n\nDelivery is planned for June. " +
		"Testing begins in May and continues through launch.\n\nBudget review pending."
	chunks, err := Split(text, 40, 5)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q missing from chunks", word)
		}
	}
	// Original order preserved.
	iRoadmap := strings.Index(joined, "roadmap")
	iJune := strings.Index(joined, "June")
	iBudget := strings.Index(joined, "Budget")
	if !(iRoadmap < iJune && iJune < iBudget) {
		t.Errorf("order not preserved: roadmap=%d june=%d budget=%d", iRoadmap, iJune, iBudget)
	}
}
