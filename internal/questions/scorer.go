// Package questions detects likely questions in meeting transcripts using
// deterministic heuristics: punctuation, interrogative openers, and embedded
// question phrases.
package questions

import (
	"regexp"
	"strings"
)

// interrogativeStarters matches sentences opening with an interrogative
// word, auxiliary verb, or negated contraction.
var interrogativeStarters = regexp.MustCompile(
	`^\s*(?i:who|what|when|where|why|how|which|whom|whose|` +
		`is|are|was|were|do|does|did|can|could|will|would|` +
		`shall|should|may|might|have|has|had|isn't|aren't|` +
		`wasn't|weren't|don't|doesn't|didn't|can't|couldn't|` +
		`won't|wouldn't|shouldn't|haven't|hasn't|hadn't)\b`)

// embeddedQuestionPhrases matches indirect question markers anywhere in a
// sentence, e.g. "I wonder if" or "can anyone tell me".
var embeddedQuestionPhrases = regexp.MustCompile(
	`(?i:I\s+wonder|do\s+you\s+know|can\s+(?:you|anyone|somebody)\s+(?:tell|explain|clarify)|` +
		`does\s+anyone\s+know|any\s+idea|any\s+thoughts\s+on|what\s+do\s+you\s+think)`)

// Score rates how likely a sentence is a question, in [0, 1]. The signals
// are additive and order-independent: trailing question mark 0.7,
// interrogative opener 0.3, embedded question phrase 0.2, capped at 1.
func Score(sentence string) float64 {
	if strings.TrimSpace(sentence) == "" {
		return 0
	}

	score := 0.0
	if strings.HasSuffix(strings.TrimSpace(sentence), "?") {
		score += 0.7
	}
	if interrogativeStarters.MatchString(sentence) {
		score += 0.3
	}
	if embeddedQuestionPhrases.MatchString(sentence) {
		score += 0.2
	}

	if score > 1 {
		return 1
	}
	return score
}
