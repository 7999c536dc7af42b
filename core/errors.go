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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidMessage indicates a conversation Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidLogEntry indicates a WebSearchLogEntry failed validation.
	ErrInvalidLogEntry = errors.New("invalid web search log entry")

	// ErrEmptyContent indicates a content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyName indicates the document Name field is empty.
	ErrEmptyName = errors.New("document name cannot be empty")

	// ErrInvalidRole indicates an unknown message Role value.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrEmptyQuery indicates a query string is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrNegativeChunkIndex indicates a chunk index below zero.
	ErrNegativeChunkIndex = errors.New("chunk index cannot be negative")

	// ErrNoUserMessage indicates a conversation without any user turn.
	ErrNoUserMessage = errors.New("conversation has no user message")
)
