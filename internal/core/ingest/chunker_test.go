package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "w%d ", i)
	}
	return b.String()
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText("", 800, 160))
	assert.Nil(t, ChunkText("   \n\t ", 800, 160))
}

func TestChunkTextSingleWindow(t *testing.T) {
	chunks := ChunkText(words(500), 800, 160)
	require.Len(t, chunks, 1)
	assert.Equal(t, 500, len(strings.Fields(chunks[0])))
}

func TestChunkTextTwoThousandWords(t *testing.T) {
	chunks := ChunkText(words(2000), 800, 160)
	require.Len(t, chunks, 3)

	assert.Equal(t, 800, len(strings.Fields(chunks[0])))
	assert.Equal(t, 800, len(strings.Fields(chunks[1])))
	// final window is shorter: it starts at 1280 and runs to the end
	assert.Equal(t, 720, len(strings.Fields(chunks[2])))
}

func TestChunkTextOverlap(t *testing.T) {
	chunks := ChunkText(words(2000), 800, 160)
	require.Len(t, chunks, 3)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	// consecutive windows share exactly overlap words
	assert.Equal(t, first[len(first)-160:], second[:160])
}

func TestChunkTextReconstruction(t *testing.T) {
	all := strings.Fields(words(2000))
	chunks := ChunkText(words(2000), 800, 160)
	require.Len(t, chunks, 3)

	// dropping each chunk's leading overlap and concatenating restores the
	// original word sequence
	var rebuilt []string
	for i, c := range chunks {
		ws := strings.Fields(c)
		if i > 0 {
			ws = ws[160:]
		}
		rebuilt = append(rebuilt, ws...)
	}
	assert.Equal(t, all, rebuilt)
}

func TestChunkTextBadParamsFallBackToDefaults(t *testing.T) {
	// invalid size/overlap combinations revert to the defaults instead of
	// looping forever
	chunks := ChunkText(words(1000), 100, 100)
	require.NotEmpty(t, chunks)
	assert.Equal(t, DefaultChunkSize, len(strings.Fields(chunks[0])))
}
