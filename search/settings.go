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


package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/merchantdesk/core"
)

// Stage names one step of the retrieval cascade.
type Stage string

const (
	StageHeuristic    Stage = "heuristic_lookup"
	StageContent      Stage = "content_search"
	StageAlternatives Stage = "alternative_query_retry"
	StageVector       Stage = "vector_fallback"
	StageWeb          Stage = "web_fallback"
)

// DefaultOrder is the cascade order used when none is configured.
var DefaultOrder = []Stage{StageHeuristic, StageContent, StageAlternatives, StageVector, StageWeb}

// EmptyPolicy decides whether the web stage may run without asking the user.
type EmptyPolicy string

const (
	// PolicyAuto escalates to web search automatically.
	PolicyAuto EmptyPolicy = "auto"
	// PolicyAsk escalates only when the request carries the user's consent.
	PolicyAsk EmptyPolicy = "ask"
)

// Settings tunes the retrieval cascade.
type Settings struct {
	// SimilarityThreshold is the hard cutoff for vector matches; scores at or below it are dropped.
	SimilarityThreshold float32
	// TopK caps vector evidence after reranking.
	TopK int
	// Namespaces are searched concurrently by the vector stage.
	Namespaces []string
	// Order lists the cascade stages in the order they run.
	Order []Stage
	// EmptyPolicy controls web escalation.
	EmptyPolicy EmptyPolicy
	// MaxAlternatives caps the query expander output.
	MaxAlternatives int
	// DocumentScore is the fixed score of internal document matches.
	DocumentScore float32
	// WebResultScore is the fixed score of web citations.
	WebResultScore float32
	// LinkBase prefixes document view, download and preview links.
	LinkBase string
	// ContentLimit caps chunk matches per content search term.
	ContentLimit int
	// MaxConcurrency bounds the per-namespace vector fan-out.
	MaxConcurrency int
}

// DefaultSettings returns the settings used in production.
func DefaultSettings() Settings {
	return Settings{
		SimilarityThreshold: 0.7,
		TopK:                5,
		Namespaces:          []string{core.DefaultNamespace},
		Order:               slices.Clone(DefaultOrder),
		EmptyPolicy:         PolicyAuto,
		MaxAlternatives:     5,
		DocumentScore:       0.9,
		WebResultScore:      0.5,
		LinkBase:            "",
		ContentLimit:        10,
		MaxConcurrency:      4,
	}
}

// Validate checks that settings are usable.
func (s Settings) Validate() error {
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold >= 1 {
		return fmt.Errorf("%w: similarity threshold must be in [0,1), got %v", ErrInvalidSettings, s.SimilarityThreshold)
	}
	if s.TopK < 1 {
		return fmt.Errorf("%w: top k must be at least 1, got %d", ErrInvalidSettings, s.TopK)
	}
	if len(s.Namespaces) == 0 {
		return fmt.Errorf("%w: at least one namespace is required", ErrInvalidSettings)
	}
	for _, ns := range s.Namespaces {
		if strings.TrimSpace(ns) == "" {
			return fmt.Errorf("%w: namespace must not be blank", ErrInvalidSettings)
		}
	}
	if len(s.Order) == 0 {
		return fmt.Errorf("%w: stage order must not be empty", ErrInvalidSettings)
	}
	seen := make(map[Stage]bool, len(s.Order))
	for _, stage := range s.Order {
		if !slices.Contains(DefaultOrder, stage) {
			return fmt.Errorf("%w: unknown stage %q", ErrInvalidSettings, stage)
		}
		if seen[stage] {
			return fmt.Errorf("%w: stage %q listed twice", ErrInvalidSettings, stage)
		}
		seen[stage] = true
	}
	if s.EmptyPolicy != PolicyAuto && s.EmptyPolicy != PolicyAsk {
		return fmt.Errorf("%w: unknown empty policy %q", ErrInvalidSettings, s.EmptyPolicy)
	}
	if s.MaxAlternatives < 1 {
		return fmt.Errorf("%w: max alternatives must be at least 1, got %d", ErrInvalidSettings, s.MaxAlternatives)
	}
	if s.DocumentScore < 0 || s.DocumentScore > 1 {
		return fmt.Errorf("%w: document score must be in [0,1], got %v", ErrInvalidSettings, s.DocumentScore)
	}
	if s.WebResultScore < 0 || s.WebResultScore > 1 {
		return fmt.Errorf("%w: web result score must be in [0,1], got %v", ErrInvalidSettings, s.WebResultScore)
	}
	if s.ContentLimit < 1 {
		return fmt.Errorf("%w: content limit must be at least 1, got %d", ErrInvalidSettings, s.ContentLimit)
	}
	if s.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max concurrency must be at least 1, got %d", ErrInvalidSettings, s.MaxConcurrency)
	}
	return nil
}
