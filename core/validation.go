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


package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Name must not be blank
//
// NOT validated:
//   - OwnerID (empty means shared with every user)
//   - Id (0 is replaced by a content-derived ID at ingestion)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyName)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be blank
//   - Index must not be negative
//
// NOT validated (populated by ingestion):
//   - Vector (can be empty until embedded)
//   - Tags and Confidence
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if strings.TrimSpace(chunk.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeChunkIndex)
	}

	return nil
}

// ValidateRole validates that a Role has a known value.
func ValidateRole(role Role) error {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidRole, role)
}

// ValidateMessages validates a conversation and returns the latest user message,
// which is the question the pipeline answers.
func ValidateMessages(messages []Message) (string, error) {
	question := ""
	for i, msg := range messages {
		if err := ValidateRole(msg.Role); err != nil {
			return "", fmt.Errorf("%w: message %d: %w", ErrInvalidMessage, i, err)
		}
		if msg.Role == RoleUser && strings.TrimSpace(msg.Content) != "" {
			question = strings.TrimSpace(msg.Content)
		}
	}
	if question == "" {
		return "", ErrNoUserMessage
	}
	return question, nil
}

// ValidateWebSearchLogEntry validates an audit entry before it is appended.
func ValidateWebSearchLogEntry(entry *WebSearchLogEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidLogEntry)
	}

	if strings.TrimSpace(entry.Query) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidLogEntry, ErrEmptyQuery)
	}

	return nil
}
