package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/merchantdesk/ai"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
)

// Pipeline orchestrates the ingestion and processing of corpus documents.
// It stores chunks synchronously and embeds them on a worker pool.
type Pipeline struct {
	documentRepository storage.DocumentRepository
	chunkRepository    storage.ChunkRepository
	embeddingPool      *ants.Pool
	embeddingProc      processor
	chunker            *SentenceChunker
	namespace          string
	pending            sync.WaitGroup
	logger             *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithChunking sets the sentence window size and overlap.
// Default is DefaultSentencesPerChunk with DefaultOverlapSentences.
func WithChunking(sentencesPerChunk, overlapSentences int) Option {
	return func(p *Pipeline) error {
		p.chunker = NewSentenceChunker(sentencesPerChunk, overlapSentences)
		return nil
	}
}

// WithNamespace sets the similarity-index namespace of ingested chunks.
// Default is core.DefaultNamespace.
func WithNamespace(namespace string) Option {
	return func(p *Pipeline) error {
		namespace = strings.TrimSpace(namespace)
		if namespace == "" {
			namespace = core.DefaultNamespace
		}
		p.namespace = namespace
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documentRepository storage.DocumentRepository,
	chunkRepository storage.ChunkRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if documentRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documentRepository: documentRepository,
		chunkRepository:    chunkRepository,
		embeddingPool:      embeddingPool,
		chunker:            NewSentenceChunker(DefaultSentencesPerChunk, DefaultOverlapSentences),
		namespace:          core.DefaultNamespace,
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Processors are created after options so they get the final logger
	embeddingProc, err := newEmbeddingProcessor(chunkRepository, embedder, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	return p, nil
}

// Ingest stores doc and its chunked text, then embeds the chunks asynchronously.
// The returned document has its ID and timestamps populated.
func (p *Pipeline) Ingest(ctx context.Context, doc *core.Document, text string) (*core.Document, []*core.Chunk, error) {
	texts := p.chunker.Split(text)
	if len(texts) == 0 {
		return nil, nil, ErrEmptyContent
	}

	added, err := p.documentRepository.AddDocuments(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	stored := added[0]

	chunks := make([]*core.Chunk, len(texts))
	for i, content := range texts {
		tags := Tags(content)
		chunks[i] = &core.Chunk{
			DocumentId: stored.Id,
			Namespace:  p.namespace,
			Index:      i,
			Content:    content,
			Tags:       tags,
			Confidence: Confidence(content, tags),
		}
	}

	addedChunks, err := p.chunkRepository.AddChunks(ctx, chunks...)
	if err != nil {
		// A document without chunks is unsearchable; remove it so a retry starts clean
		if derr := p.documentRepository.DeleteDocuments(context.WithoutCancel(ctx), stored.Id); derr != nil {
			p.logger.Error("error removing document after chunk failure", "document", stored.Id, "err", derr)
			err = errors.Join(err, derr)
		}
		return nil, nil, fmt.Errorf("storing chunks of %q: %w", stored.Name, err)
	}
	p.logger.Info("document ingested", "document", stored.Id, "name", stored.Name, "chunks", len(addedChunks))

	ids := make([]core.ID, len(addedChunks))
	for i, chunk := range addedChunks {
		ids[i] = chunk.Id
	}

	p.pending.Add(1)
	err = p.embeddingPool.Submit(func() {
		defer p.pending.Done()
		if err := p.embeddingProc.process(context.Background(), ids...); err != nil {
			p.logger.Error("error processing embeddings", "document", stored.Id, "err", err)
		}
	})
	if err != nil {
		p.pending.Done()
		p.logger.Error("error submitting embedding work", "document", stored.Id, "err", err)
	}

	return stored, addedChunks, nil
}

// IngestFile ingests a plain-text or markdown file on behalf of ownerID.
// An empty ownerID shares the document with every user.
func (p *Pipeline) IngestFile(ctx context.Context, path, ownerID string) (*core.Document, []*core.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	filename := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = "text/plain"
	}
	doc := &core.Document{
		OwnerID:          ownerID,
		Name:             strings.TrimSuffix(filename, filepath.Ext(filename)),
		OriginalFilename: filename,
		MimeType:         mimeType,
	}
	return p.Ingest(ctx, doc, string(data))
}

// Wait blocks until all submitted embedding work has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
