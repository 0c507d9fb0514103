package ingest

import "strings"

const (
	// DefaultChunkSize is the window width in words.
	DefaultChunkSize = 800
	// DefaultOverlap is how many words consecutive windows share.
	DefaultOverlap = 160
)

// ChunkText splits text into overlapping word windows. The window slides
// forward by size-overlap words each step, so consecutive chunks share
// exactly overlap words except for the (possibly shorter) final window.
// Deterministic, pure function of its inputs; empty input yields nil.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 || overlap < 0 || overlap >= size {
		size, overlap = DefaultChunkSize, DefaultOverlap
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.TrimSpace(strings.Join(words[start:end], " "))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		// the window covered the tail; a further slide would only re-emit
		// words already inside the overlap
		if end == len(words) {
			break
		}
	}
	return chunks
}
