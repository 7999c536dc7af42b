// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package websearch adapts external web-search services to the pipeline's
// last-resort escalation stage.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/merchantdesk/core"
	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// DefaultMaxResults is the number of results requested from the service.
const DefaultMaxResults = 5

// ErrToolRequired is returned when no search tool is provided.
var ErrToolRequired = errors.New("web search tool required")

// Searcher runs an open web search.
// Implementations must be thread-safe for concurrent use.
type Searcher interface {
	// Search returns the service's answer text and citations.
	// A result without citations means nothing useful was found.
	Search(ctx context.Context, query string) (core.WebResult, error)
}

// ToolSearcher adapts a langchaingo tool that returns
// "Title/Description/URL" blocks, such as the DuckDuckGo tool.
type ToolSearcher struct {
	tool   tools.Tool
	logger *slog.Logger
}

var _ Searcher = (*ToolSearcher)(nil)

// NewToolSearcher wraps tool. A nil logger uses slog.Default().
func NewToolSearcher(tool tools.Tool, logger *slog.Logger) (*ToolSearcher, error) {
	if tool == nil {
		return nil, ErrToolRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolSearcher{
		tool:   tool,
		logger: logger.With("component", "web-search", "tool", tool.Name()),
	}, nil
}

// NewDuckDuckGo creates a Searcher backed by DuckDuckGo's HTML endpoint.
// An empty userAgent uses the tool's default.
func NewDuckDuckGo(maxResults int, userAgent string, opts ...duckduckgo.Option) (Searcher, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if userAgent == "" {
		userAgent = duckduckgo.DefaultUserAgent
	}
	tool, err := duckduckgo.New(maxResults, userAgent, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating duckduckgo tool: %w", err)
	}
	return NewToolSearcher(tool, nil)
}

// Search implements Searcher.
func (s *ToolSearcher) Search(ctx context.Context, query string) (core.WebResult, error) {
	raw, err := s.tool.Call(ctx, query)
	if err != nil {
		return core.WebResult{}, fmt.Errorf("web search: %w", err)
	}

	citations := ParseResults(raw)
	s.logger.Debug("web search finished", "query", query, "citations", len(citations))
	if len(citations) == 0 {
		return core.WebResult{}, nil
	}
	return core.WebResult{
		Content:   Summarize(citations),
		Citations: citations,
	}, nil
}

// ParseResults extracts citations from "Title:", "Description:" and "URL:"
// line blocks separated by blank lines. Blocks without a URL are dropped.
func ParseResults(text string) []core.WebCitation {
	var citations []core.WebCitation
	var current core.WebCitation
	flush := func() {
		if current.URL != "" {
			citations = append(citations, current)
		}
		current = core.WebCitation{}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			if current.Title != "" || current.URL != "" {
				flush()
			}
			current.Title = value
		case "description":
			current.Description = value
		case "url":
			current.URL = value
		}
	}
	flush()
	return citations
}

// Summarize renders citations as the answer text passed to synthesis and audit.
func Summarize(citations []core.WebCitation) string {
	var b strings.Builder
	for i, c := range citations {
		if i > 0 {
			b.WriteString("\n")
		}
		title := c.Title
		if title == "" {
			title = c.URL
		}
		fmt.Fprintf(&b, "%s: %s (%s)", title, c.Description, c.URL)
	}
	return b.String()
}
