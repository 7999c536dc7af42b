package storage

import (
	"context"

	"github.com/poiesic/merchantdesk/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository is the corpus accessor for uploaded documents.
type DocumentRepository interface {
	Repository
	// AddDocuments adds one or more documents to storage.
	// For documents with Id=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Returns the documents with generated IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents and all of their chunks.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListDocuments returns the documents visible to ownerID: the owner's
	// own documents plus shared ones. An empty ownerID returns every document.
	ListDocuments(ctx context.Context, ownerID string) ([]*core.Document, error)
}

// ChunkRepository stores document chunks and serves content and vector lookups.
type ChunkRepository interface {
	Repository
	// AddChunks adds one or more chunks to storage.
	// Chunks with Id=0 get a content-derived ID from their document and index.
	// Returns ErrNotFound if a chunk references a document that doesn't exist.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// UpdateChunks updates existing chunks.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// ListChunks returns every stored chunk in ID order.
	ListChunks(ctx context.Context) ([]*core.Chunk, error)

	// ChunksForDocument returns the chunks of a document ordered by index.
	ChunksForDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// SearchContent returns chunks visible to ownerID whose content contains
	// any of the needles, compared case-insensitively. Results are ordered by
	// document and index, up to limit results.
	SearchContent(ctx context.Context, ownerID string, needles []string, limit int) ([]*core.Chunk, error)

	// FindSimilar finds chunks in namespace similar to the given vector,
	// limited to those visible to ownerID (own plus shared; empty sees all).
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, ownerID, namespace string, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error)
}

// WebSearchLogRepository is the append-only audit sink for web-search escalations.
type WebSearchLogRepository interface {
	// AppendWebSearchLog stores a new entry. Entries with an empty ID get a generated one.
	AppendWebSearchLog(ctx context.Context, entry *core.WebSearchLogEntry) error

	// ListWebSearchLogs returns entries newest first, up to limit.
	// When reviewNeededOnly is set only unreviewed entries are returned.
	ListWebSearchLogs(ctx context.Context, reviewNeededOnly bool, limit int) ([]*core.WebSearchLogEntry, error)

	// MarkReviewed clears the review-needed flag and stamps ReviewedAt.
	// Returns ErrNotFound if the entry doesn't exist.
	MarkReviewed(ctx context.Context, id string) error

	// Close releases the underlying database handle.
	Close() error
}
