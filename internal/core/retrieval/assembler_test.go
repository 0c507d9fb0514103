package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/models"
)

type stubDB struct {
	core.DbClient

	chunks     []models.DocumentChunk
	fetchErr   error
	searchHits []models.DocumentChunk
	searchErr  error

	lastIdx []int
}

func (s *stubDB) GetChunksByIndexes(_ context.Context, _ string, idx []int) ([]models.DocumentChunk, error) {
	s.lastIdx = idx
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []models.DocumentChunk
	for _, i := range idx {
		for _, ch := range s.chunks {
			if ch.ChunkIndex == i {
				out = append(out, ch)
			}
		}
	}
	return out, nil
}

func (s *stubDB) SearchDocumentChunks(_ context.Context, _ string, _ []float32, _ int) ([]models.DocumentChunk, error) {
	return s.searchHits, s.searchErr
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func chunk(i int, content string) models.DocumentChunk {
	return models.DocumentChunk{DocumentID: "doc-1", ChunkIndex: i, Content: content}
}

func testDoc() *models.Document {
	return &models.Document{ID: "doc-1", ExtractedText: "raw extracted text of the whole document"}
}

func TestPositionalJoinsChunksInOrder(t *testing.T) {
	db := &stubDB{chunks: []models.DocumentChunk{
		chunk(0, "first clause"),
		chunk(1, "second clause"),
		chunk(2, "third clause"),
	}}
	p := &PositionalPolicy{db: db}

	got := p.BuildContext(context.Background(), testDoc(), "any question")
	assert.Equal(t, "first clause\n\nsecond clause\n\nthird clause", got)

	// candidate set is the first 15 indices plus their neighbors, clamped
	// at zero and sorted ascending
	require.NotEmpty(t, db.lastIdx)
	assert.Equal(t, 0, db.lastIdx[0])
	assert.Equal(t, 15, db.lastIdx[len(db.lastIdx)-1])
}

func TestPositionalAppliesBudget(t *testing.T) {
	db := &stubDB{chunks: []models.DocumentChunk{
		chunk(0, strings.Repeat("a", 3000)),
		chunk(1, strings.Repeat("b", 3000)),
	}}
	p := &PositionalPolicy{db: db}

	got := p.BuildContext(context.Background(), testDoc(), "q")
	assert.True(t, strings.HasSuffix(got, truncationMarker))
	assert.Len(t, got, maxContextChars+len(truncationMarker))
}

func TestPositionalFallsBackToRawText(t *testing.T) {
	db := &stubDB{} // no chunks persisted
	p := &PositionalPolicy{db: db}

	got := p.BuildContext(context.Background(), testDoc(), "q")
	assert.Equal(t, "raw extracted text of the whole document", got)
}

func TestPositionalRawTextRespectsBudget(t *testing.T) {
	db := &stubDB{}
	p := &PositionalPolicy{db: db}
	doc := &models.Document{ID: "doc-1", ExtractedText: strings.Repeat("x", 9000)}

	got := p.BuildContext(context.Background(), doc, "q")
	assert.Len(t, got, maxContextChars+len(truncationMarker))
}

func TestPositionalFetchErrorDegrades(t *testing.T) {
	db := &stubDB{fetchErr: errors.New("db down")}
	p := &PositionalPolicy{db: db}

	got := p.BuildContext(context.Background(), testDoc(), "q")
	assert.Equal(t, "raw extracted text of the whole document", got)
}

func TestSimilaritySelectsNeighborsOfHits(t *testing.T) {
	db := &stubDB{
		chunks: []models.DocumentChunk{
			chunk(4, "before the hit"),
			chunk(5, "the relevant clause"),
			chunk(6, "after the hit"),
		},
		searchHits: []models.DocumentChunk{chunk(5, "the relevant clause")},
	}
	p := &SimilarityPolicy{db: db, embedder: &stubEmbedder{}, fallback: &PositionalPolicy{db: db}}

	got := p.BuildContext(context.Background(), testDoc(), "what is the clause?")
	assert.Equal(t, "before the hit\n\nthe relevant clause\n\nafter the hit", got)
	assert.Equal(t, []int{4, 5, 6}, db.lastIdx)
}

func TestSimilarityFallsBackWhenEmbeddingFails(t *testing.T) {
	db := &stubDB{chunks: []models.DocumentChunk{chunk(0, "positional wins")}}
	p := &SimilarityPolicy{db: db, embedder: &stubEmbedder{err: errors.New("quota")}, fallback: &PositionalPolicy{db: db}}

	got := p.BuildContext(context.Background(), testDoc(), "q")
	assert.Equal(t, "positional wins", got)
}

func TestSimilarityFallsBackWhenSearchEmpty(t *testing.T) {
	db := &stubDB{chunks: []models.DocumentChunk{chunk(0, "positional wins")}}
	p := &SimilarityPolicy{db: db, embedder: &stubEmbedder{}, fallback: &PositionalPolicy{db: db}}

	got := p.BuildContext(context.Background(), testDoc(), "q")
	assert.Equal(t, "positional wins", got)
}

func TestExpandNeighbors(t *testing.T) {
	assert.Equal(t, []int{0, 1, 4, 5, 6}, expandNeighbors([]int{0, 5}))
	assert.Empty(t, expandNeighbors(nil))
}

func TestForName(t *testing.T) {
	db := &stubDB{}
	assert.IsType(t, &PositionalPolicy{}, ForName("positional", db, nil))
	assert.IsType(t, &PositionalPolicy{}, ForName("similarity", db, nil))
	assert.IsType(t, &SimilarityPolicy{}, ForName("similarity", db, &stubEmbedder{}))
	assert.IsType(t, &PositionalPolicy{}, ForName("whatever", db, &stubEmbedder{}))
}

func TestBudgetKeepsRunesIntact(t *testing.T) {
	// put a multibyte rune straddling the budget boundary
	text := strings.Repeat("x", maxContextChars-1) + strings.Repeat("₹", 20)
	out := applyBudget(text)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.NotContains(t, out, "�")
}
