package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
)

// ContentSearcher matches search terms against the document corpus,
// first by chunk content and then by document metadata.
type ContentSearcher struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	settings  Settings
	logger    *slog.Logger
}

// NewContentSearcher creates a content searcher over the corpus.
// A nil logger uses slog.Default().
func NewContentSearcher(documents storage.DocumentRepository, chunks storage.ChunkRepository, settings Settings, logger *slog.Logger) (*ContentSearcher, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentSearcher{
		documents: documents,
		chunks:    chunks,
		settings:  settings,
		logger:    logger.With("component", "content-searcher"),
	}, nil
}

// Search returns evidence for the first term whose needles hit chunk content.
// When no term hits content, documents whose metadata matches any term are
// returned instead, once per document.
func (s *ContentSearcher) Search(ctx context.Context, userID string, terms []string) []core.Evidence {
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		chunks, err := s.chunks.SearchContent(ctx, userID, contentNeedles(term), s.settings.ContentLimit)
		if err != nil {
			s.logger.Warn("chunk content search failed", "term", term, "err", err)
			continue
		}
		if len(chunks) > 0 {
			return s.chunkEvidence(ctx, chunks)
		}
	}
	return s.metadataEvidence(ctx, userID, terms)
}

// contentNeedles widens term with every domain keyword it contains.
func contentNeedles(term string) []string {
	needles := []string{term}
	lower := strings.ToLower(term)
	for _, keyword := range core.ContentKeywords {
		if keyword != lower && strings.Contains(lower, keyword) {
			needles = append(needles, keyword)
		}
	}
	return needles
}

func (s *ContentSearcher) chunkEvidence(ctx context.Context, chunks []*core.Chunk) []core.Evidence {
	docs := make(map[core.ID]*core.Document)
	var ids []core.ID
	for _, chunk := range chunks {
		if _, ok := docs[chunk.DocumentId]; !ok {
			docs[chunk.DocumentId] = nil
			ids = append(ids, chunk.DocumentId)
		}
	}
	found, err := s.documents.GetDocuments(ctx, ids...)
	if err != nil {
		s.logger.Warn("document lookup failed", "documents", len(ids), "err", err)
	}
	for _, doc := range found {
		docs[doc.Id] = doc
	}

	evidence := make([]core.Evidence, 0, len(chunks))
	for _, chunk := range chunks {
		e := chunkToEvidence(chunk, docs[chunk.DocumentId], s.settings.LinkBase)
		e.Kind = core.EvidenceDocument
		e.Score = s.settings.DocumentScore
		evidence = append(evidence, e)
	}
	return evidence
}

func (s *ContentSearcher) metadataEvidence(ctx context.Context, userID string, terms []string) []core.Evidence {
	docs, err := s.documents.ListDocuments(ctx, userID)
	if err != nil {
		s.logger.Warn("document listing failed", "user", userID, "err", err)
		return nil
	}

	seen := make(map[core.ID]bool)
	var evidence []core.Evidence
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		for _, doc := range docs {
			if seen[doc.Id] || !metadataMatches(term, searchableText(doc)) {
				continue
			}
			seen[doc.Id] = true
			evidence = append(evidence, documentToEvidence(doc, s.settings))
		}
	}
	return evidence
}

// searchableText joins the document fields metadata matching looks at.
func searchableText(doc *core.Document) string {
	return strings.Join([]string{doc.Name, doc.OriginalFilename, doc.Description}, " ")
}

// metadataMatches ORs the processor, service and lexical match families.
func metadataMatches(term, searchable string) bool {
	if core.SharesTerm(term, searchable, core.Processors) {
		return true
	}
	if core.SharesTerm(term, searchable, core.ServiceTerms) {
		return true
	}
	if strings.Contains(strings.ToLower(searchable), strings.ToLower(strings.TrimSpace(term))) {
		return true
	}
	return sharesToken(searchable, term)
}

// DocumentLinks builds the view, download and preview links of a document.
func DocumentLinks(linkBase string, id core.ID) core.Links {
	base := fmt.Sprintf("%s/documents/%s", strings.TrimRight(linkBase, "/"), id)
	return core.Links{
		View:     base + "/view",
		Download: base + "/download",
		Preview:  base + "/preview",
	}
}

func displayName(doc *core.Document, id core.ID) string {
	switch {
	case doc == nil:
		return "Document " + id.String()
	case doc.Name != "":
		return doc.Name
	case doc.OriginalFilename != "":
		return doc.OriginalFilename
	}
	return "Document " + id.String()
}

// chunkToEvidence converts a stored chunk; callers set Kind and Score.
func chunkToEvidence(chunk *core.Chunk, doc *core.Document, linkBase string) core.Evidence {
	mediaType := ""
	if doc != nil {
		mediaType = doc.MimeType
	}
	return core.Evidence{
		ID:       uuid.NewString(),
		SourceID: chunk.DocumentId.String(),
		Content:  core.Snippet(chunk.Content, core.DefaultSnippetLength),
		Metadata: core.EvidenceMetadata{
			Name:       displayName(doc, chunk.DocumentId),
			Links:      DocumentLinks(linkBase, chunk.DocumentId),
			MediaType:  mediaType,
			ChunkIndex: chunk.Index,
			Tags:       chunk.Tags,
			Confidence: chunk.Confidence,
		},
	}
}

func documentToEvidence(doc *core.Document, settings Settings) core.Evidence {
	content := doc.Name
	if doc.Description != "" {
		content = doc.Name + "\n" + doc.Description
	}
	return core.Evidence{
		ID:       uuid.NewString(),
		Kind:     core.EvidenceDocument,
		Score:    settings.DocumentScore,
		SourceID: doc.Id.String(),
		Content:  core.Snippet(content, core.DefaultSnippetLength),
		Metadata: core.EvidenceMetadata{
			Name:      displayName(doc, doc.Id),
			Links:     DocumentLinks(settings.LinkBase, doc.Id),
			MediaType: doc.MimeType,
			Tags:      core.MentionedTerms(searchableText(doc), core.SemanticTags),
		},
	}
}
