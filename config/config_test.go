package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/merchantdesk/search"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "merchantdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "OPENAI_API_KEY", cfg.AI.APIKeyEnv)
	assert.Equal(t, "auto", cfg.Search.EmptyPolicy)
	assert.True(t, cfg.WebSearchEnabled())
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  corpus_dir: /var/lib/merchantdesk/corpus
ai:
  completion_model: gpt-4o-mini
  api_key_env: DESK_KEY
search:
  top_k: 3
  namespaces: [default, policies]
  empty_policy: ask
  link_base: https://desk.example
ingestion:
  sentences_per_chunk: 8
reference_table: reference.csv
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/merchantdesk/corpus", cfg.Storage.CorpusDir)
	assert.Empty(t, cfg.Storage.AuditLogPath)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.CompletionModel)
	assert.Equal(t, "embeddinggemma", cfg.AI.EmbeddingModel)
	assert.Equal(t, "DESK_KEY", cfg.AI.APIKeyEnv)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, []string{"default", "policies"}, cfg.Search.Namespaces)
	assert.InDelta(t, 0.7, cfg.SimilarityThreshold(), 1e-6)
	assert.Equal(t, 8, cfg.Ingestion.SentencesPerChunk)
	assert.Equal(t, 1, cfg.OverlapSentences())
	assert.Equal(t, "reference.csv", cfg.ReferenceTable)
}

func TestLoad_ExplicitZeroes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want func(t *testing.T, cfg *AppConfig)
	}{
		{
			name: "zero values are kept",
			body: "ai:\n  temperature: 0\nsearch:\n  similarity_threshold: 0\ningestion:\n  overlap_sentences: 0\n",
			want: func(t *testing.T, cfg *AppConfig) {
				assert.Zero(t, cfg.Temperature())
				assert.Zero(t, cfg.SimilarityThreshold())
				assert.Zero(t, cfg.OverlapSentences())
			},
		},
		{
			name: "absent values take defaults",
			body: "search:\n  top_k: 3\n",
			want: func(t *testing.T, cfg *AppConfig) {
				assert.InDelta(t, 0.2, cfg.Temperature(), 1e-9)
				assert.InDelta(t, 0.7, cfg.SimilarityThreshold(), 1e-6)
				assert.Equal(t, 1, cfg.OverlapSentences())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			require.NoError(t, err)
			tt.want(t, cfg)
		})
	}
}

func TestToSearchSettings_ZeroThreshold(t *testing.T) {
	cfg, err := Load(writeConfig(t, "search:\n  similarity_threshold: 0\n"))
	require.NoError(t, err)
	settings, err := cfg.ToSearchSettings()
	require.NoError(t, err)
	assert.Zero(t, settings.SimilarityThreshold)

	aiCfg, err := Default().ToAIConfig()
	require.NoError(t, err)
	assert.InDelta(t, Default().Temperature(), aiCfg.Temperature, 1e-9)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "search: [unterminated")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrParseConfig)
}

func TestToSearchSettings(t *testing.T) {
	path := writeConfig(t, `
search:
  empty_policy: ask
  link_base: https://desk.example
  web_search: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.WebSearchEnabled())

	settings, err := cfg.ToSearchSettings()
	require.NoError(t, err)
	assert.Equal(t, search.PolicyAsk, settings.EmptyPolicy)
	assert.Equal(t, "https://desk.example", settings.LinkBase)
	assert.NotContains(t, settings.Order, search.StageWeb)
	assert.Equal(t, search.StageHeuristic, settings.Order[0])
}

func TestToSearchSettings_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Search.Order = []string{"heuristic_lookup", "made_up_stage"}
	_, err := cfg.ToSearchSettings()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, search.ErrInvalidSettings)
}

func TestToAIConfig_ReadsKeyFromEnv(t *testing.T) {
	t.Setenv("DESK_TEST_KEY", "sk-test")
	cfg := Default()
	cfg.AI.APIKeyEnv = "DESK_TEST_KEY"
	cfg.AI.EmbeddingHost = "http://localhost:8080"

	aiCfg, err := cfg.ToAIConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", aiCfg.APIToken)
	assert.Equal(t, "http://localhost:8080/v1", aiCfg.EmbeddingHost)
}

func TestToAIConfig_Invalid(t *testing.T) {
	cfg := Default()
	temperature := 5.0
	cfg.AI.Temperature = &temperature
	_, err := cfg.ToAIConfig()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "merchantdesk.yaml")
	cfg := Default()
	cfg.Search.LinkBase = "https://desk.example"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
