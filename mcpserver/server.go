// Package mcpserver exposes the assistant as Model Context Protocol tools.
//
// Tools: ask (answer a question from the document corpus), list_escalations
// and review_escalation (web-search audit review). Served over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/poiesic/merchantdesk"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/storage"
)

const (
	defaultEscalationLimit = 20
	maxEscalationLimit     = 100
)

// Assistant is the part of merchantdesk.Assistant the tools call.
type Assistant interface {
	Ask(ctx context.Context, req merchantdesk.AskRequest) (*core.Answer, error)
	Escalations(ctx context.Context, pendingOnly bool, limit int) ([]*core.WebSearchLogEntry, error)
	MarkReviewed(ctx context.Context, id string) error
}

var _ Assistant = (*merchantdesk.Assistant)(nil)

// NewServer creates an MCP server with every tool registered.
func NewServer(assistant Assistant, version string) *server.MCPServer {
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer("merchantdesk", version, server.WithToolCapabilities(false))

	registerAskTool(s, assistant)
	registerListEscalationsTool(s, assistant)
	registerReviewEscalationTool(s, assistant)
	return s
}

// Serve runs the server over stdin/stdout until the client disconnects.
func Serve(assistant Assistant, version string) error {
	return server.ServeStdio(NewServer(assistant, version))
}

func registerAskTool(s *server.MCPServer, assistant Assistant) {
	tool := mcp.NewTool("ask",
		mcp.WithDescription("Answer a merchant-services sales question from internal documents, falling back to web search. Returns the answer with sources, action items and follow-up tasks as JSON."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithString("user_id",
			mcp.Description("Asking user; limits document search to their own and shared documents"),
		),
		mcp.WithBoolean("allow_external_search",
			mcp.Description("User consent to search the web when internal documents have nothing (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		answer, err := assistant.Ask(ctx, merchantdesk.AskRequest{
			UserID:              req.GetString("user_id", ""),
			Messages:            []core.Message{{Role: core.RoleUser, Content: question}},
			AllowExternalSearch: req.GetBool("allow_external_search", false),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ask error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(answer, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// escalation is the JSON shape of an audit entry.
type escalation struct {
	ID           string  `json:"id"`
	Query        string  `json:"query"`
	Response     string  `json:"response"`
	Reason       string  `json:"reason"`
	ReviewNeeded bool    `json:"reviewNeeded"`
	UserID       string  `json:"userId,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	ReviewedAt   *string `json:"reviewedAt,omitempty"`
}

func toEscalation(e *core.WebSearchLogEntry) escalation {
	out := escalation{
		ID:           e.ID,
		Query:        e.Query,
		Response:     e.Response,
		Reason:       e.Reason,
		ReviewNeeded: e.ReviewNeeded,
		UserID:       e.UserID,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.ReviewedAt != nil {
		reviewed := e.ReviewedAt.Format(time.RFC3339)
		out.ReviewedAt = &reviewed
	}
	return out
}

func registerListEscalationsTool(s *server.MCPServer, assistant Assistant) {
	tool := mcp.NewTool("list_escalations",
		mcp.WithDescription("List questions that were escalated to web search, newest first, so an admin can decide whether the findings belong in the document corpus."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithBoolean("pending_only",
			mcp.Description("Only list escalations that still need review (default: true)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries (default: 20, max: 100)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := defaultEscalationLimit
		if limitVal, err := req.RequireFloat("limit"); err == nil && limitVal > 0 {
			limit = min(int(limitVal), maxEscalationLimit)
		}

		entries, err := assistant.Escalations(ctx, req.GetBool("pending_only", true), limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
		}

		out := make([]escalation, 0, len(entries))
		for _, e := range entries {
			out = append(out, toEscalation(e))
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerReviewEscalationTool(s *server.MCPServer, assistant Assistant) {
	tool := mcp.NewTool("review_escalation",
		mcp.WithDescription("Mark a web-search escalation as reviewed."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Escalation ID from list_escalations"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil || id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		if err := assistant.MarkReviewed(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("escalation %s not found", id)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("review error: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Escalation %s marked reviewed", id)), nil
	})
}
