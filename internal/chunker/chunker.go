// Package chunker splits extracted document text into fixed-size pieces
// suitable for embedding and retrieval.
package chunker

// Chunk is a bounded-length contiguous slice of a document's extracted text.
// Index is the chunk's position in the original document, starting at 0.
type Chunk struct {
	Index int
	Text  string
}

// Split cuts text into contiguous, non-overlapping chunks of at most size
// characters, in document order. Concatenating the Text of every chunk
// reproduces the input exactly. Empty input yields no chunks; input shorter
// than size yields exactly one.
//
// Size is measured in runes so a multi-byte character is never cut in half.
func Split(text string, size int) []Chunk {
	if size <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]Chunk, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})
	}
	return chunks
}
