package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/merchantdesk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evidenceFrom(kind core.EvidenceKind, sources ...string) []core.Evidence {
	out := make([]core.Evidence, 0, len(sources))
	for _, s := range sources {
		out = append(out, core.Evidence{ID: s, Kind: kind, SourceID: s, Content: s, Score: 0.9})
	}
	return out
}

// stages fakes every cascade component and records which ones ran.
type stages struct {
	heuristic   []core.Evidence
	content     map[string][]core.Evidence
	alternates  []string
	vector      []core.Evidence
	web         core.WebResult
	webErr      error
	calls       []string
	contentArgs []string
	retrieveK   int
	retrieveNS  []string
	retrieveFor string
}

func (s *stages) Match(_ context.Context, _ string) []core.Evidence {
	s.calls = append(s.calls, "heuristic")
	return s.heuristic
}

func (s *stages) Search(_ context.Context, _ string, terms []string) []core.Evidence {
	s.calls = append(s.calls, "content")
	s.contentArgs = append(s.contentArgs, terms...)
	var out []core.Evidence
	for _, term := range terms {
		out = append(out, s.content[term]...)
	}
	return out
}

func (s *stages) Expand(_ string) []string {
	s.calls = append(s.calls, "expand")
	return s.alternates
}

func (s *stages) Retrieve(_ context.Context, userID, _ string, topK int, namespaces []string) []core.Evidence {
	s.calls = append(s.calls, "vector")
	s.retrieveFor = userID
	s.retrieveK = topK
	s.retrieveNS = namespaces
	return s.vector
}

func (s *stages) Escalate(_ context.Context, _, _ string) (core.WebResult, error) {
	s.calls = append(s.calls, "web")
	return s.web, s.webErr
}

func (s *stages) options() []Option {
	return []Option{
		WithHeuristics(s),
		WithContentSearcher(s),
		WithExpander(s),
		WithRetriever(s),
		WithWebFallback(s),
	}
}

func newTestOrchestrator(t *testing.T, s *stages, mutate func(*Settings)) *Orchestrator {
	t.Helper()
	settings := DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	o, err := NewOrchestrator(settings, s.options()...)
	require.NoError(t, err)
	return o
}

// recordingMonitor captures callbacks for inspection.
type recordingMonitor struct {
	started      *Request
	stages       []Stage
	finished     map[Stage]int
	alternatives []string
	escalated    int
	outcome      Outcome
}

func (m *recordingMonitor) Start(req Request)        { m.started = &req }
func (m *recordingMonitor) StageStarted(stage Stage) { m.stages = append(m.stages, stage) }
func (m *recordingMonitor) StageFinished(stage Stage, evidence []core.Evidence) {
	if m.finished == nil {
		m.finished = make(map[Stage]int)
	}
	m.finished[stage] = len(evidence)
}
func (m *recordingMonitor) AlternativeTried(query string, _ int) {
	m.alternatives = append(m.alternatives, query)
}
func (m *recordingMonitor) Escalated(string, core.WebResult, error) { m.escalated++ }
func (m *recordingMonitor) Finish(outcome Outcome)                  { m.outcome = outcome }

func TestNewOrchestrator_InvalidSettings(t *testing.T) {
	settings := DefaultSettings()
	settings.TopK = 0
	_, err := NewOrchestrator(settings)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestOrchestrator_EarlyExit(t *testing.T) {
	ctx := context.Background()

	t.Run("heuristic", func(t *testing.T) {
		s := &stages{heuristic: evidenceFrom(core.EvidenceHeuristic, "kb")}
		outcome := newTestOrchestrator(t, s, nil).Search(ctx, Request{Query: "tsys support"})
		found, ok := outcome.(Found)
		require.True(t, ok)
		assert.Equal(t, StageHeuristic, found.Stage)
		assert.Equal(t, []string{"heuristic"}, s.calls)
	})

	t.Run("content", func(t *testing.T) {
		s := &stages{content: map[string][]core.Evidence{"tsys support": evidenceFrom(core.EvidenceDocument, "doc")}}
		outcome := newTestOrchestrator(t, s, nil).Search(ctx, Request{Query: "  tsys support  "})
		found, ok := outcome.(Found)
		require.True(t, ok)
		assert.Equal(t, StageContent, found.Stage)
		assert.Equal(t, []string{"heuristic", "content"}, s.calls)
		assert.Equal(t, []string{"tsys support"}, s.contentArgs, "query is trimmed")
	})

	t.Run("alternatives", func(t *testing.T) {
		s := &stages{
			alternates: []string{"tsys customer service", "tsys support phone number", "payment processing"},
			content: map[string][]core.Evidence{
				"tsys support phone number": evidenceFrom(core.EvidenceDocument, "phone"),
				"payment processing":        evidenceFrom(core.EvidenceDocument, "never"),
			},
		}
		monitor := &recordingMonitor{}
		outcome := newTestOrchestrator(t, s, nil).SearchWithMonitor(ctx, Request{Query: "tsys support"}, monitor)
		found, ok := outcome.(Found)
		require.True(t, ok)
		assert.Equal(t, StageAlternatives, found.Stage)
		require.Len(t, found.Evidence, 1)
		assert.Equal(t, "phone", found.Evidence[0].SourceID)
		assert.Equal(t, []string{"tsys support", "tsys customer service", "tsys support phone number"}, s.contentArgs)
		assert.Equal(t, []string{"tsys customer service", "tsys support phone number"}, monitor.alternatives)
	})

	t.Run("vector", func(t *testing.T) {
		s := &stages{vector: evidenceFrom(core.EvidenceVector, "v")}
		outcome := newTestOrchestrator(t, s, func(st *Settings) {
			st.TopK = 3
			st.Namespaces = []string{"default", "policies"}
		}).Search(ctx, Request{Query: "q", UserID: "rep-2"})
		found, ok := outcome.(Found)
		require.True(t, ok)
		assert.Equal(t, StageVector, found.Stage)
		assert.Equal(t, "rep-2", s.retrieveFor)
		assert.Equal(t, 3, s.retrieveK)
		assert.Equal(t, []string{"default", "policies"}, s.retrieveNS)
		assert.NotContains(t, s.calls, "web")
	})

	t.Run("web", func(t *testing.T) {
		s := &stages{web: citedResult()}
		outcome := newTestOrchestrator(t, s, nil).Search(ctx, Request{Query: "q"})
		found, ok := outcome.(Found)
		require.True(t, ok)
		assert.Equal(t, StageWeb, found.Stage)
		require.Len(t, found.Evidence, 1)
		assert.Equal(t, core.EvidenceWeb, found.Evidence[0].Kind)
		assert.InDelta(t, 0.5, found.Evidence[0].Score, 1e-6)
		assert.Equal(t, []string{"heuristic", "content", "expand", "vector", "web"}, s.calls)
	})
}

func TestOrchestrator_Empty(t *testing.T) {
	ctx := context.Background()

	t.Run("web attempted and failed", func(t *testing.T) {
		s := &stages{webErr: ErrNoWebResults}
		monitor := &recordingMonitor{}
		outcome := newTestOrchestrator(t, s, nil).SearchWithMonitor(ctx, Request{Query: "q"}, monitor)
		assert.Equal(t, Empty{WebAttempted: true, WebAvailable: true}, outcome)
		assert.Equal(t, 1, monitor.escalated)
		assert.Equal(t, DefaultOrder, monitor.stages)
		assert.Equal(t, outcome, monitor.outcome)
	})

	t.Run("web not configured", func(t *testing.T) {
		s := &stages{}
		settings := DefaultSettings()
		o, err := NewOrchestrator(settings, WithHeuristics(s), WithContentSearcher(s))
		require.NoError(t, err)
		assert.Equal(t, Empty{WebAttempted: false, WebAvailable: false}, o.Search(ctx, Request{Query: "q"}))
	})

	t.Run("web stage left out of the order", func(t *testing.T) {
		s := &stages{web: citedResult()}
		outcome := newTestOrchestrator(t, s, func(st *Settings) {
			st.Order = []Stage{StageHeuristic, StageContent, StageVector}
			st.EmptyPolicy = PolicyAsk
		}).Search(ctx, Request{Query: "q", AllowExternalSearch: true})
		assert.Equal(t, Empty{WebAttempted: false, WebAvailable: false}, outcome)
		assert.NotContains(t, s.calls, "web")
	})
}

func TestOrchestrator_AskPolicy(t *testing.T) {
	ctx := context.Background()
	ask := func(st *Settings) { st.EmptyPolicy = PolicyAsk }

	t.Run("without consent", func(t *testing.T) {
		s := &stages{web: citedResult()}
		outcome := newTestOrchestrator(t, s, ask).Search(ctx, Request{Query: "q"})
		assert.Equal(t, Empty{WebAttempted: false, WebAvailable: true}, outcome)
		assert.NotContains(t, s.calls, "web")
	})

	t.Run("with consent", func(t *testing.T) {
		s := &stages{web: citedResult()}
		outcome := newTestOrchestrator(t, s, ask).Search(ctx, Request{Query: "q", AllowExternalSearch: true})
		found, ok := outcome.(Found)
		require.True(t, ok)
		assert.Equal(t, StageWeb, found.Stage)
	})
}

func TestOrchestrator_CustomOrder(t *testing.T) {
	s := &stages{
		heuristic: evidenceFrom(core.EvidenceHeuristic, "kb"),
		vector:    evidenceFrom(core.EvidenceVector, "v"),
	}
	o := newTestOrchestrator(t, s, func(st *Settings) {
		st.Order = []Stage{StageVector, StageHeuristic}
	})
	found, ok := o.Search(context.Background(), Request{Query: "q"}).(Found)
	require.True(t, ok)
	assert.Equal(t, StageVector, found.Stage)
	assert.Equal(t, []string{"vector"}, s.calls)
}

func TestOrchestrator_DedupesStageEvidence(t *testing.T) {
	s := &stages{content: map[string][]core.Evidence{
		"q": append(evidenceFrom(core.EvidenceDocument, "a", "b"), evidenceFrom(core.EvidenceDocument, "a")...),
	}}
	found, ok := newTestOrchestrator(t, s, nil).Search(context.Background(), Request{Query: "q"}).(Found)
	require.True(t, ok)
	assert.Len(t, found.Evidence, 2)
}

func TestOrchestrator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &stages{heuristic: evidenceFrom(core.EvidenceHeuristic, "kb")}
	outcome := newTestOrchestrator(t, s, nil).Search(ctx, Request{Query: "q"})
	assert.Equal(t, Empty{WebAvailable: true}, outcome)
	assert.Empty(t, s.calls)
}

func TestOrchestrator_WebErrorStillAttempted(t *testing.T) {
	s := &stages{webErr: errors.New("network down")}
	outcome := newTestOrchestrator(t, s, nil).Search(context.Background(), Request{Query: "q"})
	assert.Equal(t, Empty{WebAttempted: true, WebAvailable: true}, outcome)
}

func TestDedupe(t *testing.T) {
	evidence := []core.Evidence{
		{SourceID: "1", Metadata: core.EvidenceMetadata{ChunkIndex: 0}, Content: "first"},
		{SourceID: "1", Metadata: core.EvidenceMetadata{ChunkIndex: 1}},
		{SourceID: "1", Metadata: core.EvidenceMetadata{ChunkIndex: 0}, Content: "dup"},
		{SourceID: "2", Metadata: core.EvidenceMetadata{ChunkIndex: 0}},
	}
	got := Dedupe(evidence)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "2", got[2].SourceID)
	assert.Nil(t, Dedupe(nil))
}
