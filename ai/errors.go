package ai

import "errors"

var (
	// ErrEmptyCompletion is returned when the completion service answers without any text.
	ErrEmptyCompletion = errors.New("completion service returned no text")

	// ErrEmptyEmbedding is returned when the embedding service answers with a
	// zero-length vector, which cannot be compared by cosine similarity.
	ErrEmptyEmbedding = errors.New("embedding service returned an empty vector")
)
