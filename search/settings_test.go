package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.InDelta(t, 0.7, s.SimilarityThreshold, 1e-6)
	assert.Equal(t, DefaultOrder, s.Order)
	assert.Equal(t, PolicyAuto, s.EmptyPolicy)

	// Order is a copy.
	s.Order[0] = StageWeb
	assert.Equal(t, StageHeuristic, DefaultOrder[0])
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"threshold too high", func(s *Settings) { s.SimilarityThreshold = 1 }},
		{"negative threshold", func(s *Settings) { s.SimilarityThreshold = -0.1 }},
		{"zero top k", func(s *Settings) { s.TopK = 0 }},
		{"no namespaces", func(s *Settings) { s.Namespaces = nil }},
		{"blank namespace", func(s *Settings) { s.Namespaces = []string{" "} }},
		{"empty order", func(s *Settings) { s.Order = nil }},
		{"unknown stage", func(s *Settings) { s.Order = []Stage{"crawl"} }},
		{"duplicate stage", func(s *Settings) { s.Order = []Stage{StageContent, StageContent} }},
		{"unknown policy", func(s *Settings) { s.EmptyPolicy = "never" }},
		{"zero alternatives", func(s *Settings) { s.MaxAlternatives = 0 }},
		{"document score", func(s *Settings) { s.DocumentScore = 1.5 }},
		{"web score", func(s *Settings) { s.WebResultScore = -1 }},
		{"content limit", func(s *Settings) { s.ContentLimit = 0 }},
		{"concurrency", func(s *Settings) { s.MaxConcurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
		})
	}

	t.Run("reordered subset is valid", func(t *testing.T) {
		s := DefaultSettings()
		s.Order = []Stage{StageVector, StageContent}
		assert.NoError(t, s.Validate())
	})
}
