package merchantdesk

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/merchantdesk/ai"
	"github.com/poiesic/merchantdesk/ai/mock"
	"github.com/poiesic/merchantdesk/config"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/reembed"
	"github.com/poiesic/merchantdesk/synthesis"
)

type stubSearcher struct {
	result core.WebResult
	err    error
	calls  int
}

func (s *stubSearcher) Search(_ context.Context, _ string) (core.WebResult, error) {
	s.calls++
	return s.result, s.err
}

func newTestAssistant(t *testing.T, cfg *config.AppConfig, searcher *stubSearcher) (*Assistant, *mock.MockCompleter) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	if searcher == nil {
		searcher = &stubSearcher{}
	}
	completer := mock.NewMockCompleter()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), completer)
	a, err := NewAssistant(cfg, WithProvider(provider), WithWebSearcher(searcher))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, completer
}

func userAsks(q string) []core.Message {
	return []core.Message{{Role: core.RoleUser, Content: q}}
}

func TestNewAssistant(t *testing.T) {
	t.Run("in-memory stores", func(t *testing.T) {
		a, _ := newTestAssistant(t, nil, nil)
		assert.NotNil(t, a.Documents())
		assert.NotNil(t, a.Chunks())
		assert.Equal(t, float32(0.7), a.Settings().SimilarityThreshold)
	})

	t.Run("on-disk stores", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.Default()
		cfg.Storage.CorpusDir = filepath.Join(dir, "corpus")
		cfg.Storage.AuditLogPath = filepath.Join(dir, "audit", "log.db")
		a, _ := newTestAssistant(t, cfg, nil)
		assert.NotNil(t, a.backend)
	})

	t.Run("nil config", func(t *testing.T) {
		a, err := NewAssistant(nil)
		assert.ErrorIs(t, err, ErrConfigRequired)
		assert.Nil(t, a)
	})

	t.Run("invalid search settings", func(t *testing.T) {
		cfg := config.Default()
		cfg.Search.EmptyPolicy = "sometimes"
		a, err := NewAssistant(cfg, WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Nil(t, a)
	})
}

func TestAssistant_AskFromDocuments(t *testing.T) {
	a, completer := newTestAssistant(t, nil, nil)
	ctx := context.Background()

	doc, chunks, err := a.Ingest(ctx, &core.Document{Name: "TSYS rate card"},
		"TSYS interchange plus pricing adds 25 basis points. Monthly fees are waived for restaurants.")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	a.WaitForEmbeddings()

	answer, err := a.Ask(ctx, AskRequest{UserID: "rep-1", Messages: userAsks("What are TSYS rates?")})
	require.NoError(t, err)

	assert.Equal(t, mock.DefaultCompletion, answer.Message)
	assert.False(t, answer.NeedsExternalSearchPermission)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "document", answer.Sources[0].Type)
	assert.Equal(t, "TSYS rate card", answer.Sources[0].Name)
	assert.Equal(t, 1, completer.CallCount())
	assert.Contains(t, completer.LastRequest().SystemPrompt, doc.Id.String())
}

func TestAssistant_AskNeedsPermission(t *testing.T) {
	cfg := config.Default()
	cfg.Search.EmptyPolicy = "ask"
	searcher := &stubSearcher{}
	a, completer := newTestAssistant(t, cfg, searcher)

	answer, err := a.Ask(context.Background(), AskRequest{Messages: userAsks("How is the weather in Lisbon?")})
	require.NoError(t, err)
	assert.True(t, answer.NeedsExternalSearchPermission)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, completer.CallCount())
	assert.Zero(t, searcher.calls)
}

func TestAssistant_AskWebDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Search.EmptyPolicy = "ask"
	disabled := false
	cfg.Search.WebSearch = &disabled
	searcher := &stubSearcher{}
	a, completer := newTestAssistant(t, cfg, searcher)

	for _, consent := range []bool{false, true} {
		answer, err := a.Ask(context.Background(), AskRequest{
			Messages:            userAsks("How is the weather in Lisbon?"),
			AllowExternalSearch: consent,
		})
		require.NoError(t, err)
		assert.False(t, answer.NeedsExternalSearchPermission)
		assert.True(t, strings.HasPrefix(answer.Message, "I couldn't find anything"))
	}
	assert.Zero(t, searcher.calls)
	assert.Zero(t, completer.CallCount())
}

func TestAssistant_AskRespectsOwnership(t *testing.T) {
	cfg := config.Default()
	cfg.Search.EmptyPolicy = "ask"
	a, _ := newTestAssistant(t, cfg, nil)
	ctx := context.Background()

	_, _, err := a.Ingest(ctx, &core.Document{Name: "Rep one private notes", OwnerID: "rep-1"}, "Zebra quokka secret.")
	require.NoError(t, err)
	a.WaitForEmbeddings()

	tests := []struct {
		userID      string
		wantSources []string
	}{
		{userID: "rep-1", wantSources: []string{"Rep one private notes"}},
		{userID: "rep-2", wantSources: nil},
	}
	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			answer, err := a.Ask(ctx, AskRequest{UserID: tt.userID, Messages: userAsks("Zebra quokka secret.")})
			require.NoError(t, err)
			var names []string
			for _, src := range answer.Sources {
				names = append(names, src.Name)
			}
			assert.Equal(t, tt.wantSources, names)
			assert.Equal(t, tt.wantSources == nil, answer.NeedsExternalSearchPermission)
		})
	}
}

func TestAssistant_AskEscalatesToWeb(t *testing.T) {
	searcher := &stubSearcher{result: core.WebResult{
		Content: "Surcharging rules vary by state.",
		Citations: []core.WebCitation{{
			Title:       "Surcharging guide",
			Description: "State-by-state surcharge rules",
			URL:         "https://example.com/surcharging",
		}},
	}}
	a, completer := newTestAssistant(t, nil, searcher)
	ctx := context.Background()

	answer, err := a.Ask(ctx, AskRequest{UserID: "rep-2", Messages: userAsks("Can a merchant in Ohio add a surcharge?")})
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.calls)
	assert.Equal(t, 1, completer.CallCount())
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "web", answer.Sources[0].Type)
	assert.Equal(t, "https://example.com/surcharging", answer.Sources[0].URL)

	pending, err := a.Escalations(ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "rep-2", pending[0].UserID)
	assert.True(t, pending[0].ReviewNeeded)

	require.NoError(t, a.MarkReviewed(ctx, pending[0].ID))
	pending, err = a.Escalations(ctx, true, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := a.Escalations(ctx, false, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotNil(t, all[0].ReviewedAt)
}

func TestAssistant_AskNothingAnywhere(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("service unavailable")}
	a, completer := newTestAssistant(t, nil, searcher)

	answer, err := a.Ask(context.Background(), AskRequest{Messages: userAsks("Who won the match yesterday?")})
	require.NoError(t, err)
	assert.False(t, answer.NeedsExternalSearchPermission)
	assert.True(t, strings.HasPrefix(answer.Message, "I couldn't find anything"))
	assert.Zero(t, completer.CallCount())
}

func TestAssistant_AskErrors(t *testing.T) {
	a, completer := newTestAssistant(t, nil, nil)
	ctx := context.Background()

	_, err := a.Ask(ctx, AskRequest{Messages: []core.Message{{Role: core.RoleAssistant, Content: "Hello"}}})
	assert.ErrorIs(t, err, core.ErrNoUserMessage)

	_, _, err = a.Ingest(ctx, &core.Document{Name: "Clover guide"}, "Clover terminals ship in two days.")
	require.NoError(t, err)
	a.WaitForEmbeddings()

	completer.CompleteFunc = func(context.Context, ai.CompletionRequest) (string, error) { return "", errors.New("boom") }
	_, err = a.Ask(ctx, AskRequest{Messages: userAsks("How fast do Clover terminals ship?")})
	assert.ErrorIs(t, err, synthesis.ErrSynthesisFailed)
}

func TestAssistant_Reembed(t *testing.T) {
	a, _ := newTestAssistant(t, nil, nil)
	ctx := context.Background()

	_, chunks, err := a.Ingest(ctx, &core.Document{Name: "Gateway notes"},
		"The gateway supports ACH. Chargebacks are reported daily. PCI scans run quarterly.")
	require.NoError(t, err)
	a.WaitForEmbeddings()

	cfg := reembed.DefaultConfig()
	cfg.BatchSize = 1
	result, err := a.Reembed(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), result.Chunks)
}
