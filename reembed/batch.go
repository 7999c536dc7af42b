package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/merchantdesk/ai"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/ingestion"
	"github.com/poiesic/merchantdesk/storage"
)

// ChunkUpdater is the part of storage.ChunkRepository batches write to.
type ChunkUpdater interface {
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)
}

var _ ChunkUpdater = (storage.ChunkRepository)(nil)

// BatchProcessor embeds batches of chunks and writes them back.
type BatchProcessor struct {
	repo        ChunkUpdater
	embedder    ai.Embedder
	retry       RetryPolicy
	refreshTags bool
}

// NewBatchProcessor creates a batch processor. With refreshTags set, tags
// and confidence are recomputed from the chunk content as well.
func NewBatchProcessor(repo ChunkUpdater, embedder ai.Embedder, retry RetryPolicy, refreshTags bool) *BatchProcessor {
	return &BatchProcessor{
		repo:        repo,
		embedder:    embedder,
		retry:       retry,
		refreshTags: refreshTags,
	}
}

// Process embeds chunks and updates them in storage.
// Vectors are normalized so cosine similarity stays comparable across models.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.retry)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.retry.MaxAttempts, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(chunks), len(embeddings))
	}

	for i, chunk := range chunks {
		chunk.Vector = NormalizeVector(embeddings[i])
		if bp.refreshTags {
			chunk.Tags = ingestion.Tags(chunk.Content)
			chunk.Confidence = ingestion.Confidence(chunk.Content, chunk.Tags)
		}
	}

	if _, err := bp.repo.UpdateChunks(ctx, chunks...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}
	return nil
}
