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


// Package search implements the retrieval cascade that gathers grounding
// evidence for a question.
//
// The Orchestrator runs stages in order and stops at the first one that
// produces evidence:
//   - heuristic lookup in the curated reference table
//   - content search over document chunks, falling back to document metadata
//   - the same content search retried with deterministic query expansions
//   - vector similarity search across namespaces, reranked by domain tags,
//     stored confidence and content length
//   - web search, recorded in the escalation audit log
//
// The result is an Outcome: Found with the winning stage's deduplicated
// evidence, or Empty with a flag saying whether the web was consulted.
// Stage failures never reach the caller; they are logged and the cascade
// moves on.
package search
