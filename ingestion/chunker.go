package ingestion

import (
	"regexp"
	"strings"
)

const (
	// DefaultSentencesPerChunk is the number of sentences grouped into one chunk.
	DefaultSentencesPerChunk = 5
	// DefaultOverlapSentences is the number of sentences repeated between neighboring chunks.
	DefaultOverlapSentences = 1
)

var sentenceRE = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// SentenceChunker splits text into sentence windows with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

// NewSentenceChunker creates a chunker. Non-positive sizes use the defaults
// and the overlap is kept below the window size.
func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = DefaultSentencesPerChunk
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

// Split returns the chunk texts of text in order.
func (c *SentenceChunker) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	for i := 0; i < len(sentences); {
		end := min(i+c.sentencesPerChunk, len(sentences))
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks
}

// splitSentences keeps trailing text that has no terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	consumed := 0
	for _, loc := range sentenceRE.FindAllStringIndex(text, -1) {
		if s := strings.Join(strings.Fields(text[loc[0]:loc[1]]), " "); s != "" && !isPunctuation(s) {
			sentences = append(sentences, s)
		}
		consumed = loc[1]
	}
	if tail := strings.Join(strings.Fields(text[consumed:]), " "); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isPunctuation(s string) bool {
	return strings.Trim(s, ".!? ") == ""
}
