// Package config loads the merchantdesk YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/merchantdesk/ai"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/ingestion"
	"github.com/poiesic/merchantdesk/search"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "merchantdesk.yaml"

// StorageConfig locates the on-disk stores.
type StorageConfig struct {
	// CorpusDir is the badger directory holding documents and chunks. Empty means in-memory.
	CorpusDir string `yaml:"corpus_dir"`
	// AuditLogPath is the sqlite file for web-search escalations. Empty means in-memory.
	AuditLogPath string `yaml:"audit_log_path"`
}

// AIConfig configures the OpenAI-compatible embedding and completion services.
type AIConfig struct {
	EmbeddingHost   string  `yaml:"embedding_host"`
	CompletionHost  string  `yaml:"completion_host"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	CompletionModel string  `yaml:"completion_model"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	// Temperature is a pointer so an explicit 0 survives defaulting.
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// SearchConfig tunes the retrieval cascade.
type SearchConfig struct {
	// SimilarityThreshold is a pointer so an explicit 0 survives defaulting.
	SimilarityThreshold *float32 `yaml:"similarity_threshold,omitempty"`
	TopK                int      `yaml:"top_k"`
	Namespaces          []string `yaml:"namespaces"`
	Order               []string `yaml:"order"`
	EmptyPolicy         string   `yaml:"empty_policy"`
	MaxAlternatives     int      `yaml:"max_alternatives"`
	LinkBase            string   `yaml:"link_base"`
	ContentLimit        int      `yaml:"content_limit"`
	MaxConcurrency      int      `yaml:"max_concurrency"`
	// WebSearch disables the external fallback entirely when false.
	WebSearch *bool `yaml:"web_search,omitempty"`
	// MaxWebResults caps citations fetched per escalation.
	MaxWebResults int `yaml:"max_web_results"`
}

// IngestionConfig controls chunking and embedding of new documents.
type IngestionConfig struct {
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
	// OverlapSentences is a pointer so 0 can turn overlap off.
	OverlapSentences *int   `yaml:"overlap_sentences,omitempty"`
	PoolSize         int    `yaml:"pool_size"`
	Namespace        string `yaml:"namespace"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	Search    SearchConfig    `yaml:"search"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	// ReferenceTable is the path of the curated knowledge CSV. Optional.
	ReferenceTable string `yaml:"reference_table"`
}

// Default returns the configuration used when no file exists.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseConfig, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyDefaults(cfg *AppConfig) {
	aiDefaults := ai.DefaultConfig()
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = aiDefaults.EmbeddingHost
	}
	if cfg.AI.CompletionHost == "" {
		cfg.AI.CompletionHost = aiDefaults.CompletionHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = aiDefaults.EmbeddingModel
	}
	if cfg.AI.CompletionModel == "" {
		cfg.AI.CompletionModel = aiDefaults.CompletionModel
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.AI.Temperature == nil {
		temperature := aiDefaults.Temperature
		cfg.AI.Temperature = &temperature
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = aiDefaults.MaxTokens
	}

	settings := search.DefaultSettings()
	if cfg.Search.SimilarityThreshold == nil {
		threshold := settings.SimilarityThreshold
		cfg.Search.SimilarityThreshold = &threshold
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = settings.TopK
	}
	if len(cfg.Search.Namespaces) == 0 {
		cfg.Search.Namespaces = slices.Clone(settings.Namespaces)
	}
	if len(cfg.Search.Order) == 0 {
		for _, stage := range settings.Order {
			cfg.Search.Order = append(cfg.Search.Order, string(stage))
		}
	}
	if cfg.Search.EmptyPolicy == "" {
		cfg.Search.EmptyPolicy = string(settings.EmptyPolicy)
	}
	if cfg.Search.MaxAlternatives == 0 {
		cfg.Search.MaxAlternatives = settings.MaxAlternatives
	}
	if cfg.Search.ContentLimit == 0 {
		cfg.Search.ContentLimit = settings.ContentLimit
	}
	if cfg.Search.MaxConcurrency == 0 {
		cfg.Search.MaxConcurrency = settings.MaxConcurrency
	}
	if cfg.Search.WebSearch == nil {
		enabled := true
		cfg.Search.WebSearch = &enabled
	}
	if cfg.Search.MaxWebResults == 0 {
		cfg.Search.MaxWebResults = 5
	}

	if cfg.Ingestion.SentencesPerChunk == 0 {
		cfg.Ingestion.SentencesPerChunk = ingestion.DefaultSentencesPerChunk
	}
	if cfg.Ingestion.OverlapSentences == nil {
		overlap := ingestion.DefaultOverlapSentences
		cfg.Ingestion.OverlapSentences = &overlap
	}
	if cfg.Ingestion.PoolSize == 0 {
		cfg.Ingestion.PoolSize = 4
	}
	if cfg.Ingestion.Namespace == "" {
		cfg.Ingestion.Namespace = core.DefaultNamespace
	}
}

// WebSearchEnabled reports whether the external fallback may run at all.
func (c *AppConfig) WebSearchEnabled() bool {
	return c.Search.WebSearch == nil || *c.Search.WebSearch
}

// Temperature returns the completion temperature, falling back to the
// default when unset.
func (c *AppConfig) Temperature() float64 {
	return valueOr(c.AI.Temperature, ai.DefaultConfig().Temperature)
}

// SimilarityThreshold returns the minimum vector similarity, falling back to
// the default when unset.
func (c *AppConfig) SimilarityThreshold() float32 {
	return valueOr(c.Search.SimilarityThreshold, search.DefaultSettings().SimilarityThreshold)
}

// OverlapSentences returns how many sentences consecutive chunks share.
func (c *AppConfig) OverlapSentences() int {
	return valueOr(c.Ingestion.OverlapSentences, ingestion.DefaultOverlapSentences)
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// ToAIConfig builds a validated ai.Config, reading the API key from the configured env var.
func (c *AppConfig) ToAIConfig() (*ai.Config, error) {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithCompletionHost(c.AI.CompletionHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithCompletionModel(c.AI.CompletionModel),
		ai.WithAPIToken(os.Getenv(c.AI.APIKeyEnv)),
		ai.WithTemperature(c.Temperature()),
		ai.WithMaxTokens(c.AI.MaxTokens),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ToSearchSettings builds validated search.Settings.
func (c *AppConfig) ToSearchSettings() (search.Settings, error) {
	settings := search.DefaultSettings()
	settings.SimilarityThreshold = c.SimilarityThreshold()
	settings.TopK = c.Search.TopK
	settings.Namespaces = slices.Clone(c.Search.Namespaces)
	settings.Order = settings.Order[:0]
	for _, stage := range c.Search.Order {
		settings.Order = append(settings.Order, search.Stage(stage))
	}
	settings.EmptyPolicy = search.EmptyPolicy(c.Search.EmptyPolicy)
	settings.MaxAlternatives = c.Search.MaxAlternatives
	settings.LinkBase = c.Search.LinkBase
	settings.ContentLimit = c.Search.ContentLimit
	settings.MaxConcurrency = c.Search.MaxConcurrency
	if !c.WebSearchEnabled() {
		settings.Order = slices.DeleteFunc(settings.Order, func(s search.Stage) bool {
			return s == search.StageWeb
		})
	}
	if err := settings.Validate(); err != nil {
		return search.Settings{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return settings, nil
}
