package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/merchantdesk"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
)

type fakeAssistant struct {
	answer      *core.Answer
	askErr      error
	lastAsk     merchantdesk.AskRequest
	entries     []*core.WebSearchLogEntry
	pendingOnly bool
	limit       int
	reviewed    []string
}

func (f *fakeAssistant) Ask(_ context.Context, req merchantdesk.AskRequest) (*core.Answer, error) {
	f.lastAsk = req
	return f.answer, f.askErr
}

func (f *fakeAssistant) Escalations(_ context.Context, pendingOnly bool, limit int) ([]*core.WebSearchLogEntry, error) {
	f.pendingOnly = pendingOnly
	f.limit = limit
	return f.entries, nil
}

func (f *fakeAssistant) MarkReviewed(_ context.Context, id string) error {
	for _, e := range f.entries {
		if e.ID == id {
			f.reviewed = append(f.reviewed, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

type toolResult struct {
	Text    string
	IsError bool
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) toolResult {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	require.NoError(t, err)

	respBytes, err := json.Marshal(srv.HandleMessage(context.Background(), raw))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &resp), "raw: %s", respBytes)
	require.Nil(t, resp.Error)
	require.NotEmpty(t, resp.Result.Content)
	return toolResult{Text: resp.Result.Content[0].Text, IsError: resp.Result.IsError}
}

func TestAskTool(t *testing.T) {
	fake := &fakeAssistant{answer: &core.Answer{
		Message: "TSYS charges 25 basis points over interchange.",
		Sources: []core.Source{{Name: "TSYS rate card", URL: "/documents/1/view", RelevanceScore: 0.9, Type: "document"}},
	}}
	srv := NewServer(fake, "test")

	result := callTool(t, srv, "ask", map[string]any{
		"question":              "What are TSYS rates?",
		"user_id":               "rep-1",
		"allow_external_search": true,
	})
	require.False(t, result.IsError, result.Text)

	var answer core.Answer
	require.NoError(t, json.Unmarshal([]byte(result.Text), &answer))
	assert.Equal(t, fake.answer.Message, answer.Message)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "TSYS rate card", answer.Sources[0].Name)

	assert.Equal(t, "rep-1", fake.lastAsk.UserID)
	assert.True(t, fake.lastAsk.AllowExternalSearch)
	assert.Equal(t, []core.Message{{Role: core.RoleUser, Content: "What are TSYS rates?"}}, fake.lastAsk.Messages)
}

func TestAskTool_Errors(t *testing.T) {
	fake := &fakeAssistant{askErr: errors.New("failed to generate a response")}
	srv := NewServer(fake, "")

	result := callTool(t, srv, "ask", map[string]any{})
	assert.True(t, result.IsError)
	assert.Equal(t, "question is required", result.Text)

	result = callTool(t, srv, "ask", map[string]any{"question": "What are TSYS rates?"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "failed to generate a response")
	assert.False(t, fake.lastAsk.AllowExternalSearch)
}

func TestListEscalationsTool(t *testing.T) {
	created := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
	fake := &fakeAssistant{entries: []*core.WebSearchLogEntry{{
		ID:           "esc-1",
		Query:        "Ohio surcharge rules",
		Response:     "Surcharging rules vary by state.",
		Reason:       "no internal evidence",
		ReviewNeeded: true,
		UserID:       "rep-2",
		CreatedAt:    created,
	}}}
	srv := NewServer(fake, "test")

	result := callTool(t, srv, "list_escalations", map[string]any{"limit": 500})
	require.False(t, result.IsError, result.Text)
	assert.True(t, fake.pendingOnly)
	assert.Equal(t, maxEscalationLimit, fake.limit)

	var listed []escalation
	require.NoError(t, json.Unmarshal([]byte(result.Text), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "esc-1", listed[0].ID)
	assert.Equal(t, "2026-03-02T15:04:05Z", listed[0].CreatedAt)
	assert.Nil(t, listed[0].ReviewedAt)

	callTool(t, srv, "list_escalations", map[string]any{"pending_only": false})
	assert.False(t, fake.pendingOnly)
	assert.Equal(t, defaultEscalationLimit, fake.limit)
}

func TestReviewEscalationTool(t *testing.T) {
	fake := &fakeAssistant{entries: []*core.WebSearchLogEntry{{ID: "esc-1", Query: "q"}}}
	srv := NewServer(fake, "test")

	result := callTool(t, srv, "review_escalation", map[string]any{"id": "esc-1"})
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"esc-1"}, fake.reviewed)

	result = callTool(t, srv, "review_escalation", map[string]any{"id": "esc-404"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.Text, "not found")
}
