// Package ingestion adds documents to the corpus.
//
// The Pipeline type manages the ingestion workflow for a document:
//   - Storing the document record
//   - Splitting its text into overlapping sentence windows
//   - Tagging each chunk with domain vocabulary and scoring its confidence
//   - Generating chunk embeddings asynchronously
//
// Embeddings are generated on a worker pool so ingestion returns as soon as
// the chunks are stored. Chunks are searchable by content immediately and by
// similarity once their vectors land. Errors during async processing are
// logged but do not fail the ingestion operation; Wait blocks until pending
// embedding work has finished.
package ingestion
