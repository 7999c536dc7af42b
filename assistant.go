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


package merchantdesk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/merchantdesk/ai"
	"github.com/poiesic/merchantdesk/ai/openai"
	"github.com/poiesic/merchantdesk/config"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/ingestion"
	"github.com/poiesic/merchantdesk/knowledge"
	"github.com/poiesic/merchantdesk/reembed"
	"github.com/poiesic/merchantdesk/search"
	"github.com/poiesic/merchantdesk/storage"
	"github.com/poiesic/merchantdesk/storage/badger"
	"github.com/poiesic/merchantdesk/storage/sqlite"
	"github.com/poiesic/merchantdesk/synthesis"
	"github.com/poiesic/merchantdesk/websearch"
)

// ErrConfigRequired is returned when NewAssistant gets a nil configuration.
var ErrConfigRequired = errors.New("configuration required")

// Assistant answers merchant-services questions from the document corpus,
// falling back to web search, and owns every store the pipeline touches.
type Assistant struct {
	backend      *badger.Backend
	documents    storage.DocumentRepository
	chunks       storage.ChunkRepository
	auditLog     storage.WebSearchLogRepository
	provider     ai.AIProvider
	orchestrator *search.Orchestrator
	synthesizer  *synthesis.Synthesizer
	pipeline     *ingestion.Pipeline
	logger       *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	provider ai.AIProvider
	searcher websearch.Searcher
	logger   *slog.Logger
}

// WithProvider uses provider instead of creating an OpenAI-compatible one from config.
func WithProvider(provider ai.AIProvider) AssistantOption {
	return func(o *assistantOptions) {
		o.provider = provider
	}
}

// WithWebSearcher uses searcher for web escalations instead of DuckDuckGo.
func WithWebSearcher(searcher websearch.Searcher) AssistantOption {
	return func(o *assistantOptions) {
		o.searcher = searcher
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) AssistantOption {
	return func(o *assistantOptions) {
		o.logger = logger
	}
}

// NewAssistant opens the stores named in cfg and wires the retrieval cascade.
// An empty corpus directory or audit log path selects an in-memory store.
func NewAssistant(cfg *config.AppConfig, opts ...AssistantOption) (*Assistant, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	options := &assistantOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	settings, err := cfg.ToSearchSettings()
	if err != nil {
		return nil, err
	}

	a := &Assistant{logger: logger.With("component", "assistant")}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if cfg.Storage.CorpusDir == "" {
		a.documents, a.chunks, a.backend, err = badger.NewMemoryRepositories()
	} else {
		a.documents, a.chunks, a.backend, err = badger.NewRepositories(cfg.Storage.CorpusDir)
	}
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}

	auditPath := cfg.Storage.AuditLogPath
	if auditPath == "" {
		auditPath = sqlite.MemoryPath
	}
	if a.auditLog, err = sqlite.NewWebSearchLog(auditPath); err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	a.provider = options.provider
	if a.provider == nil {
		aiCfg, err := cfg.ToAIConfig()
		if err != nil {
			return nil, err
		}
		if a.provider, err = openai.NewProvider(aiCfg); err != nil {
			return nil, err
		}
	}

	searchOpts := []search.Option{search.WithLogger(logger)}
	if cfg.ReferenceTable != "" {
		matcher, err := knowledge.NewMatcher(cfg.ReferenceTable, knowledge.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		searchOpts = append(searchOpts, search.WithHeuristics(matcher))
	}

	content, err := search.NewContentSearcher(a.documents, a.chunks, settings, logger)
	if err != nil {
		return nil, err
	}
	retriever := search.NewVectorRetriever(a.chunks, a.provider.Embedder(), a.documents, search.HeuristicReranker{}, settings, logger)
	searchOpts = append(searchOpts,
		search.WithContentSearcher(content),
		search.WithExpander(search.NewQueryExpander(settings.MaxAlternatives)),
		search.WithRetriever(retriever),
	)

	if cfg.WebSearchEnabled() {
		searcher := options.searcher
		if searcher == nil {
			if searcher, err = websearch.NewDuckDuckGo(cfg.Search.MaxWebResults, ""); err != nil {
				return nil, err
			}
		}
		fallback, err := search.NewWebFallback(searcher, a.auditLog, logger)
		if err != nil {
			return nil, err
		}
		searchOpts = append(searchOpts, search.WithWebFallback(fallback))
	}

	if a.orchestrator, err = search.NewOrchestrator(settings, searchOpts...); err != nil {
		return nil, err
	}

	a.synthesizer, err = synthesis.NewSynthesizer(a.provider.Completer(),
		synthesis.WithTemperature(cfg.Temperature()),
		synthesis.WithMaxTokens(cfg.AI.MaxTokens),
		synthesis.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	a.pipeline, err = ingestion.NewPipeline(a.documents, a.chunks, a.provider.Embedder(),
		ingestion.WithPoolSize(cfg.Ingestion.PoolSize),
		ingestion.WithChunking(cfg.Ingestion.SentencesPerChunk, cfg.OverlapSentences()),
		ingestion.WithNamespace(cfg.Ingestion.Namespace),
		ingestion.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// AskRequest is one question from a user, with the conversation so far.
type AskRequest struct {
	UserID   string
	Messages []core.Message
	// AllowExternalSearch carries the user's consent to web search.
	AllowExternalSearch bool
}

// Ask answers the latest user message in req.
func (a *Assistant) Ask(ctx context.Context, req AskRequest) (*core.Answer, error) {
	return a.AskWithMonitor(ctx, req, nil)
}

// AskWithMonitor answers req, reporting cascade progress to monitor.
func (a *Assistant) AskWithMonitor(ctx context.Context, req AskRequest, monitor search.SearchMonitor) (*core.Answer, error) {
	query, err := core.ValidateMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	outcome := a.orchestrator.SearchWithMonitor(ctx, search.Request{
		Query:               query,
		UserID:              req.UserID,
		AllowExternalSearch: req.AllowExternalSearch,
	}, monitor)
	return a.synthesizer.Synthesize(ctx, req.Messages, outcome)
}

// Ingest chunks and stores text as doc. Embedding continues in the background.
func (a *Assistant) Ingest(ctx context.Context, doc *core.Document, text string) (*core.Document, []*core.Chunk, error) {
	return a.pipeline.Ingest(ctx, doc, text)
}

// IngestFile stores the file at path, owned by ownerID.
func (a *Assistant) IngestFile(ctx context.Context, path, ownerID string) (*core.Document, []*core.Chunk, error) {
	return a.pipeline.IngestFile(ctx, path, ownerID)
}

// WaitForEmbeddings blocks until every pending embedding task has finished.
func (a *Assistant) WaitForEmbeddings() {
	a.pipeline.Wait()
}

// Reembed recomputes every chunk vector with the current embedder.
func (a *Assistant) Reembed(ctx context.Context, cfg *reembed.Config, progress io.Writer) (reembed.Result, error) {
	r, err := reembed.NewReembedder(a.chunks, a.provider.Embedder(), cfg, progress)
	if err != nil {
		return reembed.Result{}, err
	}
	return r.Run(ctx)
}

// Escalations lists web-search escalations, newest first.
func (a *Assistant) Escalations(ctx context.Context, pendingOnly bool, limit int) ([]*core.WebSearchLogEntry, error) {
	return a.auditLog.ListWebSearchLogs(ctx, pendingOnly, limit)
}

// MarkReviewed records that an admin has reviewed escalation id.
func (a *Assistant) MarkReviewed(ctx context.Context, id string) error {
	return a.auditLog.MarkReviewed(ctx, id)
}

// Documents returns the document store backing the corpus.
func (a *Assistant) Documents() storage.DocumentRepository {
	return a.documents
}

// Chunks returns the chunk store, which also serves similarity lookups.
func (a *Assistant) Chunks() storage.ChunkRepository {
	return a.chunks
}

// Settings returns the effective search settings after config defaults
// and the web search switch have been applied.
func (a *Assistant) Settings() search.Settings {
	return a.orchestrator.Settings()
}

// Close waits for pending embeddings and releases every store.
func (a *Assistant) Close() error {
	var errs []error
	if a.pipeline != nil {
		a.pipeline.Wait()
		a.pipeline.Release()
	}
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
		}
	}
	if a.auditLog != nil {
		if err := a.auditLog.Close(); err != nil {
			a.logger.Error("error closing audit log", "err", err)
			errs = append(errs, err)
		}
	}
	if a.chunks != nil {
		if err := a.chunks.Close(); err != nil {
			a.logger.Error("error closing chunk repository", "err", err)
			errs = append(errs, err)
		}
	}
	if a.documents != nil {
		if err := a.documents.Close(); err != nil {
			a.logger.Error("error closing document repository", "err", err)
			errs = append(errs, err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
