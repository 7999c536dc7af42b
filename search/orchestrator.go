package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/merchantdesk/core"
)

// HeuristicMatcher looks a query up in curated reference material.
type HeuristicMatcher interface {
	Match(ctx context.Context, query string) []core.Evidence
}

// DocumentSearcher matches terms against the document corpus.
type DocumentSearcher interface {
	Search(ctx context.Context, userID string, terms []string) []core.Evidence
}

// Expander produces alternative phrasings of a query.
type Expander interface {
	Expand(query string) []string
}

// Retriever runs vector similarity retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, userID, query string, topK int, namespaces []string) []core.Evidence
}

// Escalator runs the last-resort web search.
type Escalator interface {
	Escalate(ctx context.Context, query, userID string) (core.WebResult, error)
}

var (
	_ HeuristicMatcher = HeuristicMatcherFunc(nil)
	_ DocumentSearcher = (*ContentSearcher)(nil)
	_ Expander         = (*QueryExpander)(nil)
	_ Retriever        = (*VectorRetriever)(nil)
	_ Escalator        = (*WebFallback)(nil)
)

// HeuristicMatcherFunc adapts a function to HeuristicMatcher.
type HeuristicMatcherFunc func(ctx context.Context, query string) []core.Evidence

// Match implements HeuristicMatcher.
func (f HeuristicMatcherFunc) Match(ctx context.Context, query string) []core.Evidence {
	return f(ctx, query)
}

// Request is one question put to the cascade.
type Request struct {
	Query  string
	UserID string
	// AllowExternalSearch records the user's consent to web search.
	// It only matters under PolicyAsk.
	AllowExternalSearch bool
}

// Outcome is the result of a cascade run: either Found or Empty.
type Outcome interface {
	isOutcome()
}

// Found carries the evidence of the first stage that produced any.
type Found struct {
	Stage    Stage
	Evidence []core.Evidence
}

// Empty means every stage that ran came back empty.
type Empty struct {
	// WebAttempted is true when the web stage ran.
	WebAttempted bool
	// WebAvailable is true when a web fallback is configured and the
	// cascade order includes the web stage, so consent could unlock it.
	WebAvailable bool
}

func (Found) isOutcome() {}
func (Empty) isOutcome() {}

// Orchestrator runs the retrieval stages in order and stops at the first
// stage that produces evidence. Missing components are skipped.
type Orchestrator struct {
	heuristics HeuristicMatcher
	content    DocumentSearcher
	expander   Expander
	retriever  Retriever
	web        Escalator
	settings   Settings
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithHeuristics sets the reference-table matcher.
func WithHeuristics(m HeuristicMatcher) Option {
	return func(o *Orchestrator) error {
		o.heuristics = m
		return nil
	}
}

// WithContentSearcher sets the corpus content searcher.
func WithContentSearcher(s DocumentSearcher) Option {
	return func(o *Orchestrator) error {
		o.content = s
		return nil
	}
}

// WithExpander sets the query expander used by the alternative retry stage.
func WithExpander(e Expander) Option {
	return func(o *Orchestrator) error {
		o.expander = e
		return nil
	}
}

// WithRetriever sets the vector retriever.
func WithRetriever(r Retriever) Option {
	return func(o *Orchestrator) error {
		o.retriever = r
		return nil
	}
}

// WithWebFallback sets the web escalation stage.
func WithWebFallback(e Escalator) Option {
	return func(o *Orchestrator) error {
		o.web = e
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator with validated settings.
func NewOrchestrator(settings Settings, opts ...Option) (*Orchestrator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		settings: settings,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	o.logger = o.logger.With("component", "search-orchestrator")
	return o, nil
}

// Settings returns the orchestrator's settings.
func (o *Orchestrator) Settings() Settings {
	return o.settings
}

// Search runs the cascade for req.
func (o *Orchestrator) Search(ctx context.Context, req Request) Outcome {
	return o.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor runs the cascade with monitoring.
// The monitor receives callbacks at each stage of the search process.
// Stage failures are logged and treated as empty stages.
func (o *Orchestrator) SearchWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) Outcome {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	req.Query = strings.TrimSpace(req.Query)
	monitor.Start(req)

	webAttempted := false
	for _, stage := range o.settings.Order {
		if ctx.Err() != nil {
			o.logger.Debug("search cancelled", "stage", stage, "err", ctx.Err())
			break
		}
		monitor.StageStarted(stage)

		var evidence []core.Evidence
		switch stage {
		case StageHeuristic:
			evidence = o.runHeuristics(ctx, req)
		case StageContent:
			evidence = o.runContent(ctx, req, req.Query)
		case StageAlternatives:
			evidence = o.runAlternatives(ctx, req, monitor)
		case StageVector:
			evidence = o.runVector(ctx, req)
		case StageWeb:
			var attempted bool
			evidence, attempted = o.runWeb(ctx, req, monitor)
			webAttempted = webAttempted || attempted
		}

		evidence = Dedupe(evidence)
		monitor.StageFinished(stage, evidence)
		if len(evidence) > 0 {
			o.logger.Debug("stage produced evidence", "stage", stage, "count", len(evidence))
			outcome := Found{Stage: stage, Evidence: evidence}
			monitor.Finish(outcome)
			return outcome
		}
	}

	outcome := Empty{WebAttempted: webAttempted, WebAvailable: o.webAvailable()}
	monitor.Finish(outcome)
	return outcome
}

func (o *Orchestrator) runHeuristics(ctx context.Context, req Request) []core.Evidence {
	if o.heuristics == nil {
		return nil
	}
	return o.heuristics.Match(ctx, req.Query)
}

func (o *Orchestrator) runContent(ctx context.Context, req Request, term string) []core.Evidence {
	if o.content == nil || term == "" {
		return nil
	}
	return o.content.Search(ctx, req.UserID, []string{term})
}

func (o *Orchestrator) runAlternatives(ctx context.Context, req Request, monitor SearchMonitor) []core.Evidence {
	if o.expander == nil || o.content == nil {
		return nil
	}
	for _, alt := range o.expander.Expand(req.Query) {
		if ctx.Err() != nil {
			return nil
		}
		evidence := o.runContent(ctx, req, alt)
		monitor.AlternativeTried(alt, len(evidence))
		if len(evidence) > 0 {
			return evidence
		}
	}
	return nil
}

func (o *Orchestrator) runVector(ctx context.Context, req Request) []core.Evidence {
	if o.retriever == nil {
		return nil
	}
	return o.retriever.Retrieve(ctx, req.UserID, req.Query, o.settings.TopK, o.settings.Namespaces)
}

// runWeb reports whether a web search was actually attempted.
func (o *Orchestrator) webAvailable() bool {
	return o.web != nil && slices.Contains(o.settings.Order, StageWeb)
}

func (o *Orchestrator) runWeb(ctx context.Context, req Request, monitor SearchMonitor) ([]core.Evidence, bool) {
	if o.web == nil {
		return nil, false
	}
	if o.settings.EmptyPolicy == PolicyAsk && !req.AllowExternalSearch {
		o.logger.Debug("web search needs user consent", "query", req.Query)
		return nil, false
	}

	result, err := o.web.Escalate(ctx, req.Query, req.UserID)
	monitor.Escalated(req.Query, result, err)
	if err != nil {
		o.logger.Warn("web search failed", "query", req.Query, "err", err)
		return nil, true
	}
	return WebEvidence(result, o.settings.WebResultScore), true
}

// Dedupe drops evidence whose (SourceID, ChunkIndex) was already seen,
// keeping the first occurrence.
func Dedupe(evidence []core.Evidence) []core.Evidence {
	if len(evidence) < 2 {
		return evidence
	}
	seen := make(map[core.EvidenceKey]bool, len(evidence))
	out := make([]core.Evidence, 0, len(evidence))
	for _, e := range evidence {
		key := e.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
