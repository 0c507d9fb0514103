package retrieval

import (
	"context"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/models"
)

const (
	// baseChunks is how many chunks seed the candidate set.
	baseChunks = 15
	// fallbackChunks is the plain selection used when the expanded fetch
	// yields nothing.
	fallbackChunks = 10
	// maxContextChars bounds the assembled context passed to the model.
	maxContextChars = 3500

	truncationMarker = "\n\n[context truncated]"
)

// Policy selects and assembles the chunk context for one question. A policy
// never fails: retrieval errors degrade to coarser selections and finally to
// the document's raw extracted text.
type Policy interface {
	BuildContext(ctx context.Context, doc *models.Document, question string) string
}

// ForName maps the configured policy name to an implementation. Unknown
// names get the positional policy, which is also the default.
func ForName(name string, db core.DbClient, emb core.EmbeddingProvider) Policy {
	if name == "similarity" && emb != nil {
		return &SimilarityPolicy{db: db, embedder: emb, fallback: &PositionalPolicy{db: db}}
	}
	return &PositionalPolicy{db: db}
}

// PositionalPolicy takes the first chunks by index: a base set of 15,
// expanded by immediate neighbors, fetched in ascending order and joined
// with blank lines under the character budget.
type PositionalPolicy struct {
	db core.DbClient
}

func (p *PositionalPolicy) BuildContext(ctx context.Context, doc *models.Document, _ string) string {
	base := make([]int, 0, baseChunks)
	for i := 0; i < baseChunks; i++ {
		base = append(base, i)
	}

	if text := p.fetchAndJoin(ctx, doc.ID, expandNeighbors(base)); text != "" {
		return applyBudget(text)
	}

	// expansion produced nothing; retry with a plain first-N selection
	plain := make([]int, 0, fallbackChunks)
	for i := 0; i < fallbackChunks; i++ {
		plain = append(plain, i)
	}
	if text := p.fetchAndJoin(ctx, doc.ID, plain); text != "" {
		return applyBudget(text)
	}

	// no persisted chunks at all: whole-text degradation
	return applyBudget(doc.ExtractedText)
}

func (p *PositionalPolicy) fetchAndJoin(ctx context.Context, docID string, idx []int) string {
	chunks, err := p.db.GetChunksByIndexes(ctx, docID, idx)
	if err != nil {
		log.Printf("retrieval: chunk fetch failed for document %s: %v", docID, err)
		return ""
	}
	return joinChunks(chunks)
}

// SimilarityPolicy embeds the question and takes the nearest chunks by
// vector distance, with the same neighbor expansion and budget as the
// positional policy. Any failure along the way falls back to positional
// selection, since embeddings are populated best-effort at ingest time.
type SimilarityPolicy struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	fallback *PositionalPolicy
}

func (p *SimilarityPolicy) BuildContext(ctx context.Context, doc *models.Document, question string) string {
	vecs, err := p.embedder.EmbedTexts(ctx, []string{question})
	if err != nil || len(vecs) == 0 {
		log.Printf("retrieval: question embedding failed for document %s: %v", doc.ID, err)
		return p.fallback.BuildContext(ctx, doc, question)
	}

	hits, err := p.db.SearchDocumentChunks(ctx, doc.ID, vecs[0], baseChunks)
	if err != nil || len(hits) == 0 {
		return p.fallback.BuildContext(ctx, doc, question)
	}

	base := make([]int, 0, len(hits))
	for _, h := range hits {
		base = append(base, h.ChunkIndex)
	}

	chunks, err := p.db.GetChunksByIndexes(ctx, doc.ID, expandNeighbors(base))
	if err != nil || len(chunks) == 0 {
		return p.fallback.BuildContext(ctx, doc, question)
	}
	return applyBudget(joinChunks(chunks))
}

// expandNeighbors widens the candidate set with index-1 and index+1 for
// every base index, clamped at zero, deduplicated and sorted ascending.
func expandNeighbors(base []int) []int {
	seen := make(map[int]struct{}, len(base)*3)
	for _, i := range base {
		for _, j := range []int{i - 1, i, i + 1} {
			if j >= 0 {
				seen[j] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func joinChunks(chunks []models.DocumentChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Content) != "" {
			parts = append(parts, ch.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func applyBudget(text string) string {
	if len(text) <= maxContextChars {
		return text
	}
	// back up to a rune boundary so the cut never leaves a broken sequence
	cut := maxContextChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + truncationMarker
}
