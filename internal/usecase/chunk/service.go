// Package chunk splits finalized Article text into an ordered set of
// semantically coherent Chunks, optionally LLM-assisted, always falling back
// to deterministic paragraph splitting when the LLM is unavailable or its
// response cannot be parsed into any of the accepted shapes.
package chunk

import "context"

// Splitter turns clean article text into an ordered list of proposed
// chunks. Implementations may call out to an LLM; ParagraphSplitter never
// does.
type Splitter interface {
	Split(ctx context.Context, text string) ([]ProposedChunk, error)
}

// ProposedChunk is a splitter's opinion about one chunk, before semantic
// type and byte offsets are assigned by the Chunker.
type ProposedChunk struct {
	Text            string
	ImportanceScore float64 // 0 means "not annotated", Chunker substitutes the default
}
