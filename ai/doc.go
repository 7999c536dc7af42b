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


// Package ai provides abstractions for the language-model services used by merchantdesk.
//
// The retrieval pipeline depends only on request/response contracts, so the
// embedding and completion services are interchangeable:
//
//   - Embedder: Generates vector embeddings from text
//   - Completer: Generates an answer from a system prompt and conversation history
//   - AIProvider: Aggregates both services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, openai.NewCompleter)
// return INTERFACE types. Test constructors (mock.NewMockEmbedder,
// mock.NewMockCompleter) return CONCRETE types so tests can inject behavior and
// assert on call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithCompletionModel("gpt-4o-mini"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "TSYS support number")
//	text, err := provider.Completer().Complete(ctx, ai.CompletionRequest{
//	    SystemPrompt: "You are a merchant services assistant.",
//	    Messages:     []core.Message{{Role: core.RoleUser, Content: "What are Clearent rates?"}},
//	    Temperature:  0.2,
//	})
package ai
