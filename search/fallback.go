package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
	"github.com/poiesic/merchantdesk/websearch"
)

// EscalationReason is recorded on every web-search audit entry.
const EscalationReason = "no internal documents found with original query or alternative search terms"

// WebFallback escalates a query to open web search and records the
// escalation for admin review.
type WebFallback struct {
	searcher websearch.Searcher
	audit    storage.WebSearchLogRepository
	logger   *slog.Logger
}

// NewWebFallback creates a web fallback. audit may be nil, in which case
// escalations are only logged. A nil logger uses slog.Default().
func NewWebFallback(searcher websearch.Searcher, audit storage.WebSearchLogRepository, logger *slog.Logger) (*WebFallback, error) {
	if searcher == nil {
		return nil, ErrWebSearcherRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebFallback{
		searcher: searcher,
		audit:    audit,
		logger:   logger.With("component", "web-fallback"),
	}, nil
}

// Escalate searches the web for query. A result is only returned when it
// carries at least one citation; an audit entry is then appended. Audit
// failures are logged and do not affect the result.
func (f *WebFallback) Escalate(ctx context.Context, query, userID string) (core.WebResult, error) {
	result, err := f.searcher.Search(ctx, query)
	if err != nil {
		return core.WebResult{}, err
	}
	if len(result.Citations) == 0 {
		return core.WebResult{}, fmt.Errorf("%w: %q", ErrNoWebResults, query)
	}

	f.logger.Info("escalated to web search", "query", query, "user", userID, "citations", len(result.Citations))
	if f.audit == nil {
		return result, nil
	}
	entry := &core.WebSearchLogEntry{
		ID:           uuid.NewString(),
		Query:        query,
		Response:     result.Content,
		Reason:       EscalationReason,
		ReviewNeeded: true,
		UserID:       userID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := f.audit.AppendWebSearchLog(ctx, entry); err != nil {
		f.logger.Error("failed to record web search escalation", "query", query, "err", err)
	}
	return result, nil
}

// WebEvidence converts web citations into evidence with a fixed score.
func WebEvidence(result core.WebResult, score float32) []core.Evidence {
	evidence := make([]core.Evidence, 0, len(result.Citations))
	for _, c := range result.Citations {
		name := c.Title
		if name == "" {
			name = c.URL
		}
		content := c.Description
		if content == "" {
			content = name
		}
		evidence = append(evidence, core.Evidence{
			ID:       uuid.NewString(),
			Kind:     core.EvidenceWeb,
			Score:    score,
			SourceID: c.URL,
			Content:  core.Snippet(content, core.DefaultSnippetLength),
			Metadata: core.EvidenceMetadata{
				Name:      name,
				Links:     core.Links{View: c.URL},
				MediaType: "text/html",
			},
		})
	}
	return evidence
}
