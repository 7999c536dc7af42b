package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/merchantdesk/ai/mock"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
	"github.com/poiesic/merchantdesk/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rateCard = "Clearent offers interchange-plus pricing. The markup is 25 basis points per transaction. " +
	"There is no annual fee. Statements are mailed monthly. Chargebacks cost $15 each. " +
	"Next-day funding is available. Contact support for terminal replacement"

func setupTestRepositories(t *testing.T) (storage.DocumentRepository, storage.ChunkRepository) {
	t.Helper()
	docs, chunks, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunks.Close()
		docs.Close()
		backend.Close()
	})
	return docs, chunks
}

func newTestPipeline(t *testing.T, embedder *mock.MockEmbedder, opts ...Option) (*Pipeline, storage.DocumentRepository, storage.ChunkRepository) {
	t.Helper()
	docs, chunks := setupTestRepositories(t)
	p, err := NewPipeline(docs, chunks, embedder, append([]Option{WithPoolSize(2)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, docs, chunks
}

func TestNewPipeline_Validation(t *testing.T) {
	docs, chunks := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewPipeline(nil, chunks, embedder)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)
	_, err = NewPipeline(docs, nil, embedder)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)
	_, err = NewPipeline(docs, chunks, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestPipeline_Ingest(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()
	p, docs, chunks := newTestPipeline(t, embedder, WithChunking(3, 1), WithNamespace("policies"))

	doc, added, err := p.Ingest(ctx, &core.Document{Name: "Clearent Rate Card", OwnerID: "rep-1"}, rateCard)
	require.NoError(t, err)
	require.NotZero(t, doc.Id)
	require.Len(t, added, 3)

	p.Wait()

	stored, err := docs.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, "Clearent Rate Card", stored.Name)

	got, err := chunks.ChunksForDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Clearent offers interchange-plus pricing. The markup is 25 basis points per transaction. There is no annual fee.", got[0].Content)
	assert.True(t, strings.HasPrefix(got[1].Content, "There is no annual fee."), "windows overlap by one sentence")
	assert.Equal(t, "Chargebacks cost $15 each. Next-day funding is available. Contact support for terminal replacement", got[2].Content)

	for i, chunk := range got {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, "policies", chunk.Namespace)
		assert.Equal(t, "rep-1", chunk.OwnerID)
		assert.Equal(t, mock.DeterministicVector(chunk.Content, mock.Dimensions), chunk.Vector)
		assert.Greater(t, chunk.Confidence, float32(0))
	}
	assert.Contains(t, got[0].Tags, "clearent")
	assert.Contains(t, got[0].Tags, "pricing")
	assert.Contains(t, got[2].Tags, "terminal")
	assert.Equal(t, 1, embedder.CallCount())

	matches, err := chunks.FindSimilar(ctx, "", "policies", got[0].Vector, 0.99, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, got[0].Id, matches[0].Chunk.Id)
}

func TestPipeline_IngestEmptyContent(t *testing.T) {
	p, docs, _ := newTestPipeline(t, mock.NewMockEmbedder())

	_, _, err := p.Ingest(context.Background(), &core.Document{Name: "Blank"}, "   \n ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	all, err := docs.ListDocuments(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all, "nothing is stored for empty content")
}

// failingChunks rejects every write while reads go to the wrapped repository.
type failingChunks struct {
	storage.ChunkRepository
	err error
}

func (f *failingChunks) AddChunks(context.Context, ...*core.Chunk) ([]*core.Chunk, error) {
	return nil, f.err
}

func TestPipeline_IngestChunkFailureRemovesDocument(t *testing.T) {
	ctx := context.Background()
	docs, chunks := setupTestRepositories(t)
	storeErr := errors.New("disk full")
	embedder := mock.NewMockEmbedder()
	p, err := NewPipeline(docs, &failingChunks{ChunkRepository: chunks, err: storeErr}, embedder, WithPoolSize(1))
	require.NoError(t, err)
	t.Cleanup(p.Release)

	doc, added, err := p.Ingest(ctx, &core.Document{Name: "Clearent Rate Card"}, rateCard)
	require.ErrorIs(t, err, storeErr)
	assert.Nil(t, doc)
	assert.Nil(t, added)

	p.Wait()
	all, err := docs.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all, "no document is left behind without chunks")
	assert.Zero(t, embedder.CallCount())
}

func TestPipeline_IngestInvalidDocument(t *testing.T) {
	p, _, _ := newTestPipeline(t, mock.NewMockEmbedder())
	_, _, err := p.Ingest(context.Background(), &core.Document{}, rateCard)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestPipeline_EmbeddingFailureKeepsChunks(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	p, _, chunks := newTestPipeline(t, embedder)

	doc, _, err := p.Ingest(ctx, &core.Document{Name: "Rate Card"}, rateCard)
	require.NoError(t, err, "async failures do not fail ingestion")
	p.Wait()

	got, err := chunks.ChunksForDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, chunk := range got {
		assert.Empty(t, chunk.Vector)
	}

	// Content search still finds the chunks.
	found, err := chunks.SearchContent(ctx, "", []string{"annual fee"}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, found)
}

func TestPipeline_EmbeddingMismatch(t *testing.T) {
	docs, chunks := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}
	proc, err := newEmbeddingProcessor(chunks, embedder, nil)
	require.NoError(t, err)

	ctx := context.Background()
	added, err := docs.AddDocuments(ctx, &core.Document{Name: "Doc"})
	require.NoError(t, err)
	stored, err := chunks.AddChunks(ctx,
		&core.Chunk{DocumentId: added[0].Id, Index: 0, Content: "one"},
		&core.Chunk{DocumentId: added[0].Id, Index: 1, Content: "two"},
	)
	require.NoError(t, err)

	err = proc.process(ctx, stored[0].Id, stored[1].Id)
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestPipeline_IngestFile(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newTestPipeline(t, mock.NewMockEmbedder())

	path := filepath.Join(t.TempDir(), "equipment-guide.txt")
	require.NoError(t, os.WriteFile(path, []byte("The Clover Flex is a handheld POS terminal."), 0644))

	doc, added, err := p.IngestFile(ctx, path, "")
	require.NoError(t, err)
	p.Wait()

	assert.Equal(t, "equipment-guide", doc.Name)
	assert.Equal(t, "equipment-guide.txt", doc.OriginalFilename)
	assert.NotEmpty(t, doc.MimeType)
	assert.Empty(t, doc.OwnerID)
	require.Len(t, added, 1)

	_, _, err = p.IngestFile(ctx, filepath.Join(t.TempDir(), "missing.txt"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
