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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/merchantdesk/ai"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per call.
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks).
	ReportInterval int

	// Retry bounds retries of failed embedding calls.
	Retry RetryPolicy

	// Namespace restricts the pass to one similarity namespace. Empty means all.
	Namespace string

	// RefreshTags recomputes chunk tags and confidence from content.
	RefreshTags bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
	}
}

// Result summarizes a completed pass.
type Result struct {
	Chunks  int
	Elapsed time.Duration
}

// Reembedder regenerates the vectors of stored chunks.
type Reembedder struct {
	repo      storage.ChunkRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ChunkIterator
}

// NewReembedder creates a new reembedder.
// progress receives progress output (typically os.Stderr); nil discards it.
func NewReembedder(repo storage.ChunkRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.Retry, config.RefreshTags),
		iterator:  NewChunkIterator(repo, config.BatchSize, config.Namespace),
	}, nil
}

// Run reembeds every selected chunk, reporting progress as it goes.
// A failed batch stops the pass; chunks in earlier batches keep their new vectors.
func (r *Reembedder) Run(ctx context.Context) (Result, error) {
	chunks, err := r.iterator.Chunks(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list chunks: %w", err)
	}

	total := len(chunks)
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in database (0 chunks)\n")
		return Result{}, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n", total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, "chunks", total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = forEachBatch(ctx, chunks, r.iterator.batchSize, func(batch []*core.Chunk) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch at chunk %d: %w", processed, err)
		}
		processed += len(batch)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return Result{Chunks: processed, Elapsed: tracker.Elapsed()}, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		total, elapsed.Round(time.Millisecond), rate(total, elapsed))

	return Result{Chunks: total, Elapsed: elapsed}, nil
}
