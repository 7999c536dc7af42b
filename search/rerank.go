package search

import (
	"math"
	"slices"
	"unicode/utf8"

	"github.com/poiesic/merchantdesk/core"
)

const (
	// tagBoost multiplies the score once per chunk tag the query mentions.
	tagBoost = 1.1
	// lengthSaturation is the content length at which the length factor peaks.
	lengthSaturation = 1000
)

// Reranker reorders vector evidence for a query.
type Reranker interface {
	// Rerank returns at most topK records, best first, with scores in [0,1].
	// A topK of zero or less keeps every record.
	Rerank(query string, evidence []core.Evidence, topK int) []core.Evidence
}

// HeuristicReranker boosts matches whose semantic tags the query mentions,
// weighted by stored confidence and content length.
type HeuristicReranker struct{}

var _ Reranker = HeuristicReranker{}

// Rerank implements Reranker.
func (HeuristicReranker) Rerank(query string, evidence []core.Evidence, topK int) []core.Evidence {
	type scored struct {
		evidence core.Evidence
		score    float64
	}
	ranked := make([]scored, len(evidence))
	for i, e := range evidence {
		ranked[i] = scored{evidence: e, score: AdjustedScore(query, e)}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return 0
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	result := make([]core.Evidence, len(ranked))
	for i, r := range ranked {
		result[i] = r.evidence
		result[i].Score = float32(math.Min(r.score, 1.0))
	}
	return result
}

// AdjustedScore is raw × 1.1^(tags in query) × confidence × length factor.
// The raw score is the similarity score when present, else Score.
func AdjustedScore(query string, e core.Evidence) float64 {
	raw := float64(e.Metadata.SimilarityScore)
	if raw == 0 {
		raw = float64(e.Score)
	}

	matched := 0
	for _, tag := range e.Metadata.Tags {
		if core.ContainsTerm(query, tag) {
			matched++
		}
	}

	confidence := float64(e.Metadata.Confidence)
	if confidence <= 0 {
		confidence = 1.0
	}

	length := utf8.RuneCountInString(e.Content)
	if length > lengthSaturation {
		length = lengthSaturation
	}
	lengthFactor := 0.8 + 0.2*float64(length)/lengthSaturation

	return raw * math.Pow(tagBoost, float64(matched)) * confidence * lengthFactor
}
