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

	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
)

// DefaultBatchSize is the default number of chunks handed to each batch.
const DefaultBatchSize = 100

// ChunkLister is the part of storage.ChunkRepository the iterator reads from.
type ChunkLister interface {
	ListChunks(ctx context.Context) ([]*core.Chunk, error)
}

var _ ChunkLister = (storage.ChunkRepository)(nil)

// ChunkIterator walks stored chunks in batches.
type ChunkIterator struct {
	repo      ChunkLister
	batchSize int
	namespace string
}

// NewChunkIterator creates an iterator. A non-positive batchSize uses
// DefaultBatchSize; an empty namespace selects every chunk.
func NewChunkIterator(repo ChunkLister, batchSize int, namespace string) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		repo:      repo,
		batchSize: batchSize,
		namespace: namespace,
	}
}

// Chunks returns the chunks the iterator will visit, in ID order.
func (it *ChunkIterator) Chunks(ctx context.Context) ([]*core.Chunk, error) {
	chunks, err := it.repo.ListChunks(ctx)
	if err != nil {
		return nil, err
	}
	if it.namespace == "" {
		return chunks, nil
	}
	selected := chunks[:0]
	for _, chunk := range chunks {
		if chunk.Namespace == it.namespace {
			selected = append(selected, chunk)
		}
	}
	return selected, nil
}

// ForEach calls fn with consecutive batches of chunks.
// Iteration stops on the first error from fn or when ctx is done.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.Chunk) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chunks, err := it.Chunks(ctx)
	if err != nil {
		return err
	}
	return forEachBatch(ctx, chunks, it.batchSize, fn)
}

func forEachBatch(ctx context.Context, chunks []*core.Chunk, batchSize int, fn func([]*core.Chunk) error) error {
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		if err := fn(chunks[i:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
