package synthesis

import (
	"fmt"

	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/search"
)

const (
	sourceTypeDocument  = "document"
	sourceTypeWeb       = "web"
	sourceSnippetLength = 240
)

var stageLabels = map[search.Stage]string{
	search.StageHeuristic:    "the curated knowledge reference",
	search.StageContent:      "internal document search",
	search.StageAlternatives: "an alternative search phrasing",
	search.StageVector:       "semantic search",
	search.StageWeb:          "web search",
}

// Reasoning summarizes how many sources grounded the answer and how relevant
// the best one was.
func Reasoning(found search.Found) string {
	count := countSources(found.Evidence)
	top := topScore(found.Evidence)

	noun := "document"
	if found.Stage == search.StageWeb {
		noun = "web result"
	}
	if count != 1 {
		noun += "s"
	}

	label, ok := stageLabels[found.Stage]
	if !ok {
		label = string(found.Stage)
	}

	if NarrowDown(found.Evidence) {
		return fmt.Sprintf("Found %d matching %s via %s (top relevance score %.2f); asked you to narrow down the question.",
			count, noun, label, top)
	}
	reasoning := fmt.Sprintf("Used %d %s found via %s; top relevance score %.2f.", count, noun, label, top)
	if found.Stage == search.StageWeb {
		reasoning += " No internal documents matched, so the answer relies on external sources."
	}
	return reasoning
}

// emptyReasoning explains an answer produced without evidence.
func emptyReasoning(empty search.Empty) string {
	switch {
	case empty.WebAttempted:
		return "No internal documents matched and web search returned nothing."
	case !empty.WebAvailable:
		return "No internal documents matched the question and web search is not available."
	}
	return "No internal documents matched the question."
}

// Sources lists the citable sources behind evidence, once per source and in
// evidence order. Curated reference answers are not cited.
func Sources(evidence []core.Evidence) []core.Source {
	seen := make(map[string]bool)
	var sources []core.Source
	for _, e := range evidence {
		if e.Kind == core.EvidenceHeuristic || seen[e.SourceID] {
			continue
		}
		seen[e.SourceID] = true

		kind := sourceTypeDocument
		if e.Kind == core.EvidenceWeb {
			kind = sourceTypeWeb
		}
		sources = append(sources, core.Source{
			Name:           e.Metadata.Name,
			URL:            e.Link(),
			RelevanceScore: e.Score,
			Snippet:        core.Snippet(e.Content, sourceSnippetLength),
			Type:           kind,
		})
	}
	return sources
}

func countSources(evidence []core.Evidence) int {
	seen := make(map[string]bool)
	for _, e := range evidence {
		seen[e.SourceID] = true
	}
	return len(seen)
}

func topScore(evidence []core.Evidence) float32 {
	var top float32
	for _, e := range evidence {
		top = max(top, e.Score)
	}
	return top
}
