package badger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
// It doubles as the local similarity index used by vector retrieval.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	return &ChunkRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// ChunkID derives the content ID of the chunk at index within a document.
func ChunkID(documentID core.ID, index int) core.ID {
	return core.IDFromContent(fmt.Sprintf("%d:%d", documentID, index))
}

// AddChunks adds one or more chunks to storage.
// Chunks inherit the owner of their document so visibility follows the document.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			doc, err := readDocument(tx, chunk.DocumentId)
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%w: document %s", storage.ErrNotFound, chunk.DocumentId)
			}

			if chunk.Id == 0 {
				chunk.Id = ChunkID(chunk.DocumentId, chunk.Index)
			}
			if chunk.Namespace == "" {
				chunk.Namespace = core.DefaultNamespace
			}
			chunk.OwnerID = doc.OwnerID

			now := time.Now().UTC()
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = now
			}
			chunk.UpdatedAt = now

			// Replacing a chunk may move it between namespaces
			old, err := readChunk(tx, chunk.Id)
			if err != nil {
				return err
			}
			if old != nil {
				if err := deleteChunkIndices(tx, old); err != nil {
					return err
				}
			}

			if err := writeChunk(tx, chunk); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// UpdateChunks updates existing chunks.
func (r *ChunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			old, err := readChunk(tx, chunk.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: chunk %s", storage.ErrNotFound, chunk.Id)
			}

			if chunk.Namespace == "" {
				chunk.Namespace = core.DefaultNamespace
			}
			chunk.UpdatedAt = time.Now().UTC()

			if old.Namespace != chunk.Namespace || old.DocumentId != chunk.DocumentId || old.Index != chunk.Index {
				if err := deleteChunkIndices(tx, old); err != nil {
					return err
				}
			}
			if err := writeChunk(tx, chunk); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// GetChunks retrieves multiple chunks by their IDs.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, id)
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListChunks returns every stored chunk in ID order.
func (r *ChunkRepository) ListChunks(ctx context.Context) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, values, err := scanPrefix(tx, []byte(chunkPrefix+":"))
		if err != nil {
			return err
		}
		for _, value := range values {
			chunk, err := storage.UnmarshalChunk(value)
			if err != nil {
				return err
			}
			result = append(result, chunk)
		}
		return nil
	}, false)
	return result, err
}

// ChunksForDocument returns the chunks of a document ordered by index.
func (r *ChunkRepository) ChunksForDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = chunksByIndex(tx, makePartialChunkDocumentKey(documentID), func(*core.Chunk) bool { return true }, 0)
		return err
	}, false)
	return result, err
}

// SearchContent returns chunks visible to ownerID whose content contains any needle.
func (r *ChunkRepository) SearchContent(ctx context.Context, ownerID string, needles []string, limit int) ([]*core.Chunk, error) {
	lowered := make([]string, 0, len(needles))
	for _, needle := range needles {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle != "" {
			lowered = append(lowered, needle)
		}
	}
	if len(lowered) == 0 {
		return nil, fmt.Errorf("%w: no search needles", storage.ErrInvalidQuery)
	}

	match := func(chunk *core.Chunk) bool {
		if !visibleTo(chunk.OwnerID, ownerID) {
			return false
		}
		content := strings.ToLower(chunk.Content)
		for _, needle := range lowered {
			if strings.Contains(content, needle) {
				return true
			}
		}
		return false
	}

	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = chunksByIndex(tx, []byte(chunkDocumentPrefix+":"), match, limit)
		return err
	}, false)
	return result, err
}

// FindSimilar finds chunks in namespace visible to ownerID that are similar to the given vector.
func (r *ChunkRepository) FindSimilar(ctx context.Context, ownerID, namespace string, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error) {
	if namespace == "" {
		namespace = core.DefaultNamespace
	}

	var results []*core.SimilarityMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, ids, err := scanPrefix(tx, makePartialChunkNamespaceKey(namespace))
		if err != nil {
			return err
		}
		for _, raw := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := storage.UnmarshalID(raw)
			if err != nil {
				return err
			}
			chunk, err := readChunk(tx, id)
			if err != nil {
				return err
			}
			// Skip chunks still waiting on their embedding
			if chunk == nil || len(chunk.Vector) == 0 {
				continue
			}
			if !visibleTo(chunk.OwnerID, ownerID) {
				continue
			}

			similarity := cosineSimilarity(vector, chunk.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SimilarityMatch{
					Chunk: chunk,
					Score: similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// chunksByIndex walks the document index under prefix and returns matching chunks.
// A limit of zero or less returns every match.
func chunksByIndex(tx *badger.Txn, prefix []byte, match func(*core.Chunk) bool, limit int) ([]*core.Chunk, error) {
	_, ids, err := scanPrefix(tx, prefix)
	if err != nil {
		return nil, err
	}

	var result []*core.Chunk
	for _, raw := range ids {
		id, err := storage.UnmarshalID(raw)
		if err != nil {
			return nil, err
		}
		chunk, err := readChunk(tx, id)
		if err != nil {
			return nil, err
		}
		if chunk == nil || !match(chunk) {
			continue
		}
		result = append(result, chunk)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// writeChunk stores the chunk and its document and namespace index entries.
func writeChunk(tx *badger.Txn, chunk *core.Chunk) error {
	value, err := storage.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	if err := tx.Set(makeChunkKey(chunk.Id), value); err != nil {
		return err
	}
	idValue := storage.MarshalID(chunk.Id)
	if err := tx.Set(makeChunkDocumentKey(chunk.DocumentId, chunk.Index), idValue); err != nil {
		return err
	}
	return tx.Set(makeChunkNamespaceKey(chunk.Namespace, chunk.Id), idValue)
}

// deleteChunkIndices removes the index entries of a stored chunk.
func deleteChunkIndices(tx *badger.Txn, chunk *core.Chunk) error {
	if err := tx.Delete(makeChunkDocumentKey(chunk.DocumentId, chunk.Index)); err != nil {
		return err
	}
	return tx.Delete(makeChunkNamespaceKey(chunk.Namespace, chunk.Id))
}
