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


// Package storage provides the storage abstraction layer for merchantdesk.
//
// This package defines repository interfaces that decouple storage implementation
// from the retrieval pipeline. The document corpus and chunk index live in
// BadgerDB (storage/badger); the web-search audit log lives in SQLite
// (storage/sqlite).
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to keep callers independent of the
// backend:
//
//	docs, chunks, backend, err := badger.NewRepositories("/path/to/db")
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
//   - Repository: transaction support and lifecycle shared by corpus repositories
//   - DocumentRepository: the corpus accessor for documents and their visibility
//   - ChunkRepository: chunk storage, content search and vector similarity
//   - WebSearchLogRepository: append-only escalation audit log
//
// Values are encoded as JSON; IDs are encoded big-endian so key order follows
// numeric order.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
