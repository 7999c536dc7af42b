package ingestion

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/merchantdesk/core"
)

// Tags returns the domain vocabulary mentioned in text.
func Tags(text string) []string {
	return core.MentionedTerms(text, core.SemanticTags)
}

// Confidence estimates how useful a chunk is as grounding material, in [0,1].
// Longer chunks score higher, as do chunks with figures (rates, fees, phone
// numbers) and chunks mentioning domain vocabulary.
func Confidence(text string, tags []string) float32 {
	text = strings.TrimSpace(text)
	length := utf8.RuneCountInString(text)
	if length == 0 {
		return 0
	}

	score := float32(0.4)
	switch {
	case length >= 200:
		score += 0.2
	case length >= 80:
		score += 0.1
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		score += 0.1
	}
	score += 0.1 * float32(min(len(tags), 3))

	if length < 40 {
		score = min(score, 0.3)
	}
	return min(score, 1)
}
