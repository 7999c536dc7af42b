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


package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/merchantdesk/core"
)

const (
	// SourceID identifies evidence produced from the reference table.
	SourceID = "knowledge-reference"

	// DefaultMaxResults caps the number of matches returned.
	DefaultMaxResults = 3

	// minTokenLength is the shortest query token that counts toward relevance.
	minTokenLength = 3

	displayName = "Sales knowledge reference"
	mediaType   = "text/csv"
)

// Matcher scores reference table entries against a query with simple
// lexical and vocabulary heuristics.
type Matcher struct {
	path       string
	maxResults int
	logger     *slog.Logger

	once    sync.Once
	entries []Entry
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithMaxResults sets the match cap.
func WithMaxResults(n int) Option {
	return func(m *Matcher) error {
		if n <= 0 {
			return ErrInvalidMaxResults
		}
		m.maxResults = n
		return nil
	}
}

// WithLogger sets a custom logger for the matcher.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		m.logger = logger
		return nil
	}
}

// NewMatcher creates a matcher over the CSV table at path.
// The table is not read until the first Match call.
func NewMatcher(path string, opts ...Option) (*Matcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrTablePathRequired
	}
	m := &Matcher{
		path:       path,
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if m.logger == nil {
		m.logger = slog.Default().With("component", "knowledge-matcher")
	}
	return m, nil
}

// Entries returns the loaded reference table, loading it if necessary.
func (m *Matcher) Entries() []Entry {
	m.once.Do(m.load)
	return m.entries
}

func (m *Matcher) load() {
	f, err := os.Open(m.path)
	if err != nil {
		m.logger.Warn("reference table unavailable", "path", m.path, "err", err)
		return
	}
	defer f.Close()

	entries, skipped, err := ParseTable(f)
	if err != nil {
		m.logger.Warn("reference table read failed", "path", m.path, "err", err)
	}
	if skipped > 0 {
		m.logger.Debug("skipped malformed reference rows", "path", m.path, "skipped", skipped)
	}
	m.entries = entries
	m.logger.Debug("loaded reference table", "path", m.path, "entries", len(entries))
}

type scoredEntry struct {
	entry Entry
	score float32
}

// Match returns up to maxResults entries relevant to query, best first.
// It never fails; an unavailable table produces no matches.
func (m *Matcher) Match(ctx context.Context, query string) []core.Evidence {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	entries := m.Entries()
	if len(entries) == 0 {
		return nil
	}

	tokens := queryTokens(query)
	var candidates []scoredEntry
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil
		}
		if !isCandidate(query, tokens, entry.Question) {
			continue
		}
		candidates = append(candidates, scoredEntry{
			entry: entry,
			score: relevance(query, tokens, entry.Question),
		})
	}

	slices.SortStableFunc(candidates, func(a, b scoredEntry) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return 0
	})
	if len(candidates) > m.maxResults {
		candidates = candidates[:m.maxResults]
	}

	evidence := make([]core.Evidence, 0, len(candidates))
	for _, c := range candidates {
		evidence = append(evidence, toEvidence(c))
	}
	return evidence
}

// isCandidate ORs the five matching heuristics.
func isCandidate(query string, tokens []string, question string) bool {
	lowerQuestion := strings.ToLower(question)
	switch {
	case strings.Contains(lowerQuestion, strings.ToLower(query)):
		return true
	case tokenOverlap(tokens, lowerQuestion):
		return true
	case core.SharesTerm(query, question, core.Processors):
		return true
	case posMatch(query, question):
		return true
	case core.SharesTerm(query, question, core.IntegrationTerms):
		return true
	}
	return false
}

func tokenOverlap(tokens []string, lowerQuestion string) bool {
	for _, token := range tokens {
		if strings.Contains(lowerQuestion, token) {
			return true
		}
	}
	return false
}

// posMatch covers product-category co-occurrence plus restaurant questions
// about POS systems asked in food-service terms.
func posMatch(query, question string) bool {
	if core.SharesTerm(query, question, core.POSTerms) {
		return true
	}
	return len(core.MentionedTerms(query, core.FoodTerms)) > 0 &&
		core.ContainsTerm(question, "restaurant") &&
		core.ContainsTerm(question, "pos")
}

// relevance is the share of query tokens found inside some question token.
// A query whose words are exactly the question's scores 1 even when every
// word is too short to count as a token.
func relevance(query string, tokens []string, question string) float32 {
	questionTokens := core.Tokenize(question)
	if words := core.Tokenize(query); len(words) > 0 && slices.Equal(words, questionTokens) {
		return 1
	}
	if len(tokens) == 0 {
		return 0
	}
	found := 0
	for _, token := range tokens {
		for _, qt := range questionTokens {
			if strings.Contains(qt, token) {
				found++
				break
			}
		}
	}
	return float32(found) / float32(len(tokens))
}

func queryTokens(query string) []string {
	var tokens []string
	for _, token := range core.Tokenize(query) {
		if len([]rune(token)) >= minTokenLength {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func toEvidence(c scoredEntry) core.Evidence {
	content := fmt.Sprintf("Q: %s\nA: %s", c.entry.Question, c.entry.Answer)
	return core.Evidence{
		ID:       uuid.NewString(),
		Kind:     core.EvidenceHeuristic,
		Score:    c.score,
		SourceID: SourceID,
		Content:  core.Snippet(content, core.DefaultSnippetLength),
		Metadata: core.EvidenceMetadata{
			Name:       displayName,
			MediaType:  mediaType,
			ChunkIndex: c.entry.Row,
			Tags:       core.MentionedTerms(c.entry.Question, core.SemanticTags),
		},
	}
}
