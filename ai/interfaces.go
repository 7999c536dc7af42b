package ai

import (
	"context"

	"github.com/poiesic/merchantdesk/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionRequest is the input to a language-model completion.
type CompletionRequest struct {
	// SystemPrompt carries the instructions and the grounding block.
	SystemPrompt string

	// Messages is the conversation history, oldest first.
	Messages []core.Message

	// Temperature controls sampling variance. The synthesizer keeps it low.
	Temperature float64

	// MaxTokens bounds the generated text. Zero leaves it to the service.
	MaxTokens int
}

// Completer generates text from a system prompt and conversation history.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete returns the generated text.
	// Any service failure is returned as an error; callers treat it as fatal.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Completer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the language-model completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
