// Package reembed regenerates the vectors of every stored chunk, typically
// after switching embedding models.
//
// Chunks are walked in ID order and embedded in batches. Each embedding call
// is retried with exponential backoff, vectors are normalized to unit length
// for cosine similarity, and progress is written to an io.Writer. Tags and
// confidence can be recomputed in the same pass when the domain vocabulary
// has changed.
package reembed
