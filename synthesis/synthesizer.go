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


package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/merchantdesk/ai"
	"github.com/poiesic/merchantdesk/core"
	"github.com/poiesic/merchantdesk/search"
)

const (
	// DefaultTemperature keeps answers close to the grounding material.
	DefaultTemperature = 0.2

	// DefaultMaxTokens bounds generated answers.
	DefaultMaxTokens = 1024
)

const systemInstructions = `You are a sales-support assistant for a merchant services team.
Answer questions about payment processors, pricing, equipment, integrations and merchant onboarding.
Use only the reference material below. Cite every source you use with its link inline as a markdown link.
If the material does not answer the question, say so instead of guessing.
When the answer implies work for the sales rep, state each task in its own sentence, including who should do it and by when.`

const (
	askPermissionMessage = "I couldn't find anything about this in our internal documents or knowledge reference. " +
		"Would you like me to search the web for an answer?"
	nothingFoundMessage = "I couldn't find anything about this in our internal documents or on the web. " +
		"Try rephrasing the question with a processor, product or merchant type, or ask an admin to add documentation on this topic."
)

// Synthesizer produces answers from search outcomes.
type Synthesizer struct {
	completer   ai.Completer
	extractor   Extractor
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithExtractor replaces the regex task extractor.
func WithExtractor(extractor Extractor) Option {
	return func(s *Synthesizer) error {
		if extractor != nil {
			s.extractor = extractor
		}
		return nil
	}
}

// WithTemperature sets the completion temperature.
// Default is DefaultTemperature.
func WithTemperature(temperature float64) Option {
	return func(s *Synthesizer) error {
		if temperature < 0 || temperature > 2 {
			return fmt.Errorf("%w: got %v", ErrInvalidTemperature, temperature)
		}
		s.temperature = temperature
		return nil
	}
}

// WithMaxTokens bounds generated answers. Zero or less keeps the default.
func WithMaxTokens(maxTokens int) Option {
	return func(s *Synthesizer) error {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSynthesizer creates a synthesizer backed by completer.
func NewSynthesizer(completer ai.Completer, opts ...Option) (*Synthesizer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	s := &Synthesizer{
		completer:   completer,
		extractor:   NewRegexExtractor(),
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	s.logger = s.logger.With("component", "synthesizer")
	return s, nil
}

// Synthesize answers the latest user message in messages from outcome.
func (s *Synthesizer) Synthesize(ctx context.Context, messages []core.Message, outcome search.Outcome) (*core.Answer, error) {
	if _, err := core.ValidateMessages(messages); err != nil {
		return nil, err
	}

	switch o := outcome.(type) {
	case search.Found:
		return s.answer(ctx, messages, o)
	case search.Empty:
		return emptyAnswer(o), nil
	case nil:
		return nil, ErrOutcomeRequired
	default:
		return nil, fmt.Errorf("%w: unexpected outcome %T", ErrOutcomeRequired, outcome)
	}
}

// BuildRequest assembles the completion request for found evidence.
func (s *Synthesizer) BuildRequest(messages []core.Message, evidence []core.Evidence) ai.CompletionRequest {
	return ai.CompletionRequest{
		SystemPrompt: systemInstructions + "\n\n" + FormatGrounding(evidence),
		Messages:     conversation(messages),
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
	}
}

func (s *Synthesizer) answer(ctx context.Context, messages []core.Message, found search.Found) (*core.Answer, error) {
	req := s.BuildRequest(messages, found.Evidence)
	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		s.logger.Error("completion failed", "stage", found.Stage, "evidence", len(found.Evidence), "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Error("completion returned no text", "stage", found.Stage)
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, ai.ErrEmptyCompletion)
	}

	s.logger.Debug("answer generated", "stage", found.Stage, "evidence", len(found.Evidence), "narrow_down", NarrowDown(found.Evidence))
	return &core.Answer{
		Message:       text,
		Sources:       Sources(found.Evidence),
		Reasoning:     Reasoning(found),
		ActionItems:   s.extractor.ActionItems(text),
		FollowupTasks: s.extractor.Followups(text),
	}, nil
}

// emptyAnswer asks for consent to search the web only when consent could
// change the outcome.
func emptyAnswer(empty search.Empty) *core.Answer {
	if empty.WebAttempted || !empty.WebAvailable {
		return &core.Answer{
			Message:   nothingFoundMessage,
			Reasoning: emptyReasoning(empty),
		}
	}
	return &core.Answer{
		Message:                       askPermissionMessage,
		Reasoning:                     emptyReasoning(empty),
		NeedsExternalSearchPermission: true,
	}
}

// conversation drops system turns; the synthesizer supplies its own instructions.
func conversation(messages []core.Message) []core.Message {
	out := make([]core.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == core.RoleSystem || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
