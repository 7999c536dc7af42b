package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/merchantdesk/ai"
	"github.com/poiesic/merchantdesk/core"
	"golang.org/x/sync/errgroup"
)

// candidateMultiplier widens the per-namespace fetch so reranking has room to reorder.
const candidateMultiplier = 3

// SimilarityIndex finds stored chunks close to a query vector.
// storage.ChunkRepository satisfies it.
type SimilarityIndex interface {
	FindSimilar(ctx context.Context, ownerID, namespace string, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error)
}

// DocumentLookup resolves document metadata for retrieved chunks.
// storage.DocumentRepository satisfies it.
type DocumentLookup interface {
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)
}

// VectorRetriever embeds a query, searches every namespace concurrently and
// reranks the merged matches.
type VectorRetriever struct {
	index     SimilarityIndex
	embedder  ai.Embedder
	documents DocumentLookup
	reranker  Reranker
	settings  Settings
	logger    *slog.Logger
}

// NewVectorRetriever creates a retriever. documents may be nil, in which case
// evidence carries generic document names. A nil reranker uses HeuristicReranker.
// A nil logger uses slog.Default().
func NewVectorRetriever(index SimilarityIndex, embedder ai.Embedder, documents DocumentLookup, reranker Reranker, settings Settings, logger *slog.Logger) *VectorRetriever {
	if reranker == nil {
		reranker = HeuristicReranker{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorRetriever{
		index:     index,
		embedder:  embedder,
		documents: documents,
		reranker:  reranker,
		settings:  settings,
		logger:    logger.With("component", "vector-retriever"),
	}
}

// Retrieve returns at most topK reranked matches visible to userID scoring above
// the similarity threshold. A namespace whose lookup fails is skipped; any other
// failure yields an empty result.
func (r *VectorRetriever) Retrieve(ctx context.Context, userID, query string, topK int, namespaces []string) []core.Evidence {
	if r.index == nil || r.embedder == nil {
		r.logger.Warn("vector retrieval unavailable", "index", r.index != nil, "embedder", r.embedder != nil)
		return nil
	}
	if len(namespaces) == 0 {
		namespaces = []string{core.DefaultNamespace}
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Warn("error generating embedding for query", "query", query, "err", err)
		return nil
	}

	perNamespace := make([][]*core.SimilarityMatch, len(namespaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.settings.MaxConcurrency, 1))
	for i, ns := range namespaces {
		g.Go(func() error {
			matches, err := r.index.FindSimilar(gctx, userID, ns, vector, r.settings.SimilarityThreshold, topK*candidateMultiplier)
			if err != nil {
				// A failed namespace contributes nothing; the others still merge
				r.logger.Warn("error querying for similar chunks", "namespace", ns, "err", err)
				return nil
			}
			perNamespace[i] = matches
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return nil
	}

	var merged []*core.SimilarityMatch
	for _, matches := range perNamespace {
		for _, m := range matches {
			// Hard cutoff: a score equal to the threshold is not a match
			if m == nil || m.Chunk == nil || m.Score <= r.settings.SimilarityThreshold {
				continue
			}
			merged = append(merged, m)
		}
	}
	if len(merged) == 0 {
		return nil
	}

	docs := r.lookupDocuments(ctx, merged)
	evidence := make([]core.Evidence, 0, len(merged))
	for _, m := range merged {
		e := chunkToEvidence(m.Chunk, docs[m.Chunk.DocumentId], r.settings.LinkBase)
		e.Kind = core.EvidenceVector
		e.Score = m.Score
		e.Metadata.SimilarityScore = m.Score
		evidence = append(evidence, e)
	}
	return r.reranker.Rerank(query, evidence, topK)
}

func (r *VectorRetriever) lookupDocuments(ctx context.Context, matches []*core.SimilarityMatch) map[core.ID]*core.Document {
	docs := make(map[core.ID]*core.Document)
	if r.documents == nil {
		return docs
	}
	var ids []core.ID
	seen := make(map[core.ID]bool)
	for _, m := range matches {
		if !seen[m.Chunk.DocumentId] {
			seen[m.Chunk.DocumentId] = true
			ids = append(ids, m.Chunk.DocumentId)
		}
	}
	found, err := r.documents.GetDocuments(ctx, ids...)
	if err != nil {
		r.logger.Warn("document lookup failed", "documents", len(ids), "err", err)
		return docs
	}
	for _, doc := range found {
		docs[doc.Id] = doc
	}
	return docs
}
