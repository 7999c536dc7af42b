// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "unicode/utf8"

// DefaultSnippetLength bounds Evidence.Content.
const DefaultSnippetLength = 1200

// ellipsis marks truncated snippet content.
const ellipsis = "..."

// EvidenceKind identifies which retrieval tier produced a piece of evidence.
type EvidenceKind string

const (
	EvidenceHeuristic EvidenceKind = "heuristic"
	EvidenceDocument  EvidenceKind = "document"
	EvidenceVector    EvidenceKind = "vector"
	EvidenceWeb       EvidenceKind = "web"
)

// Links holds retrievable locations for a piece of evidence.
// Web evidence only carries View, which is the external URL.
type Links struct {
	View     string `json:"view,omitempty"`
	Download string `json:"download,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

// EvidenceMetadata describes where a piece of evidence came from.
type EvidenceMetadata struct {
	Name       string
	Links      Links
	MediaType  string
	ChunkIndex int
	Tags       []string
	// Confidence is the stored content-quality estimate. Zero means unknown.
	Confidence float32
	// SimilarityScore is the raw index score before reranking (vector evidence only).
	SimilarityScore float32
}

// Evidence is a normalized candidate piece of grounding evidence.
// It is created fresh per search invocation and never persisted.
type Evidence struct {
	ID       string
	Kind     EvidenceKind
	Score    float32
	SourceID string
	Content  string
	Metadata EvidenceMetadata
}

// EvidenceKey is the identity used to deduplicate evidence.
type EvidenceKey struct {
	SourceID   string
	ChunkIndex int
}

// Key returns the deduplication identity of the evidence.
func (e *Evidence) Key() EvidenceKey {
	return EvidenceKey{SourceID: e.SourceID, ChunkIndex: e.Metadata.ChunkIndex}
}

// Link returns the primary citation link for the evidence.
func (e *Evidence) Link() string {
	return e.Metadata.Links.View
}

// Snippet truncates text to at most max runes, appending an ellipsis marker when cut.
func Snippet(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	cut := max - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + ellipsis
}
