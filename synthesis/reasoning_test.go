package synthesis

import (
	"testing"

	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasoning(t *testing.T) {
	t.Run("documents", func(t *testing.T) {
		found := search.Found{Stage: search.StageContent, Evidence: []core.Evidence{
			docEvidence(1, "A", "a", 0.9),
			docEvidence(1, "A", "a2", 0.9),
			docEvidence(2, "B", "b", 0.75),
		}}
		assert.Equal(t, "Used 2 documents found via internal document search; top relevance score 0.90.", Reasoning(found))
	})

	t.Run("single vector match", func(t *testing.T) {
		found := search.Found{Stage: search.StageVector, Evidence: []core.Evidence{docEvidence(1, "A", "a", 0.8123)}}
		assert.Equal(t, "Used 1 document found via semantic search; top relevance score 0.81.", Reasoning(found))
	})

	t.Run("web", func(t *testing.T) {
		found := search.Found{Stage: search.StageWeb, Evidence: search.WebEvidence(core.WebResult{
			Citations: []core.WebCitation{{Title: "A", URL: "https://a"}, {Title: "B", URL: "https://b"}},
		}, 0.5)}
		reasoning := Reasoning(found)
		assert.Contains(t, reasoning, "Used 2 web results found via web search; top relevance score 0.50.")
		assert.Contains(t, reasoning, "No internal documents matched")
	})

	t.Run("narrow down", func(t *testing.T) {
		var evidence []core.Evidence
		for i := range 4 {
			evidence = append(evidence, docEvidence(core.ID(i+1), "Doc", "x", 0.9))
		}
		reasoning := Reasoning(search.Found{Stage: search.StageAlternatives, Evidence: evidence})
		assert.Equal(t, "Found 4 matching documents via an alternative search phrasing (top relevance score 0.90); asked you to narrow down the question.", reasoning)
	})
}

func TestSources(t *testing.T) {
	evidence := []core.Evidence{
		{Kind: core.EvidenceHeuristic, SourceID: "knowledge-reference", Content: "Q: a\nA: b", Score: 1},
		docEvidence(7, "Rate Card", "Interchange plus pricing", 0.9),
		docEvidence(7, "Rate Card", "second chunk", 0.9),
	}
	evidence = append(evidence, search.WebEvidence(core.WebResult{
		Citations: []core.WebCitation{{Title: "Guide", Description: "How it works", URL: "https://example.com/guide"}},
	}, 0.5)...)

	sources := Sources(evidence)
	require.Len(t, sources, 2)

	assert.Equal(t, core.Source{
		Name:           "Rate Card",
		URL:            "https://desk.example/documents/7/view",
		RelevanceScore: 0.9,
		Snippet:        "Interchange plus pricing",
		Type:           "document",
	}, sources[0])
	assert.Equal(t, "web", sources[1].Type)
	assert.Equal(t, "https://example.com/guide", sources[1].URL)
}

func TestEmptyReasoning(t *testing.T) {
	assert.Contains(t, emptyReasoning(search.Empty{WebAttempted: true}), "web search returned nothing")
	assert.Equal(t, "No internal documents matched the question.", emptyReasoning(search.Empty{WebAvailable: true}))
	assert.Contains(t, emptyReasoning(search.Empty{}), "web search is not available")
}
