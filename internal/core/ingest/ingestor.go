package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/core/extract"
	"github.com/davidolu-py/legallens/internal/models"
)

// embedBatchSize bounds how many chunk texts go into one embedding request.
const embedBatchSize = 16

// Ingestor runs the content-addressed upload pipeline: hash, dedup, store,
// extract, persist, chunk. Uploads of byte-identical content for the same
// owner retire the previous document and all of its dependents first.
type Ingestor struct {
	db       core.DbClient
	obj      core.ObjectClient
	embedder core.EmbeddingProvider // optional; chunks stay un-embedded when nil
	buckets  []string
	size     int
	overlap  int
}

func NewIngestor(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, buckets []string, chunkSize, overlap int) *Ingestor {
	if chunkSize <= 0 {
		chunkSize, overlap = DefaultChunkSize, DefaultOverlap
	}
	return &Ingestor{db: db, obj: obj, embedder: emb, buckets: buckets, size: chunkSize, overlap: overlap}
}

// Ingest stores the file and returns the completed document row.
//
// Extraction cannot fail the upload: the extractors always produce text,
// falling back to a placeholder, so the document lands with
// processing_status=completed even for scanned files. A chunk-insert
// failure is logged and swallowed; a document with zero chunks degrades to
// whole-text context at question time. Only a storage or document-row
// failure aborts the upload.
func (i *Ingestor) Ingest(ctx context.Context, data []byte, filename, mimeType, ownerID string) (*models.Document, error) {
	if len(data) == 0 || filename == "" {
		return nil, fmt.Errorf("%w: empty file upload", core.ErrValidation)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])

	if err := i.retireExisting(ctx, ownerID, fileHash); err != nil {
		return nil, fmt.Errorf("retire previous upload: %w", err)
	}

	docID := uuid.NewString()
	key := objectKey(ownerID, docID, filename)

	bucket, url, err := i.obj.UploadFirstAvailable(ctx, i.buckets, key, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	text := extract.ForMIME(mimeType).Extract(data, filename)

	now := time.Now()
	doc := &models.Document{
		ID:               docID,
		OwnerID:          ownerID,
		Filename:         fmt.Sprintf("%s_%s", now.UTC().Format("20060102_150405"), filepath.Base(filename)),
		OriginalFilename: filename,
		StoragePath:      key,
		StorageURL:       url,
		Bucket:           bucket,
		FileHash:         fileHash,
		FileSize:         int64(len(data)),
		MimeType:         mimeType,
		ExtractedText:    text,
		WordCount:        len(strings.Fields(text)),
		CharacterCount:   len(text),
		IsProcessed:      true,
		ProcessingStatus: "completed",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := i.db.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document row: %w", err)
	}

	if err := i.persistChunks(ctx, doc); err != nil {
		// degraded but usable: Q&A falls back to the raw extracted text
		log.Printf("ingest: chunk persistence failed for document %s: %v", doc.ID, err)
	}

	return doc, nil
}

// retireExisting removes a prior document with the same content hash for
// this owner: storage object first (best effort), then the whole row tree
// in one transaction.
func (i *Ingestor) retireExisting(ctx context.Context, ownerID, fileHash string) error {
	prev, err := i.db.GetDocumentByHash(ctx, ownerID, fileHash)
	if err != nil {
		return err
	}
	if prev == nil {
		return nil
	}

	if err := i.obj.DeleteFile(ctx, prev.Bucket, prev.StoragePath); err != nil {
		log.Printf("ingest: could not delete stored object %s/%s: %v", prev.Bucket, prev.StoragePath, err)
	}
	return i.db.DeleteDocumentTree(ctx, prev.ID)
}

func (i *Ingestor) persistChunks(ctx context.Context, doc *models.Document) error {
	texts := ChunkText(doc.ExtractedText, i.size, i.overlap)
	if len(texts) == 0 {
		return nil
	}

	chunks := make([]models.DocumentChunk, len(texts))
	for idx, content := range texts {
		chunks[idx] = models.DocumentChunk{
			ID:             uuid.NewString(),
			DocumentID:     doc.ID,
			ChunkIndex:     idx,
			Content:        content,
			WordCount:      len(strings.Fields(content)),
			CharacterCount: len(content),
			CreatedAt:      time.Now(),
		}
	}

	i.embedChunks(ctx, chunks)

	return i.db.InsertDocumentChunks(ctx, chunks)
}

// embedChunks populates embedding vectors in place, batching requests and
// running batches concurrently. Embeddings are best-effort: any failure
// leaves the affected chunks un-embedded and similarity retrieval falls
// back to positional selection.
func (i *Ingestor) embedChunks(ctx context.Context, chunks []models.DocumentChunk) {
	if i.embedder == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for j := range batch {
				texts[j] = batch[j].Content
			}
			vecs, err := i.embedder.EmbedTexts(gctx, texts)
			if err != nil {
				return err
			}
			for j := range batch {
				if j < len(vecs) {
					batch[j].Embedding = vecs[j]
					batch[j].HasEmbedding = true
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("ingest: embedding batch failed, continuing without vectors: %v", err)
	}
}

// objectKey creates a consistent storage key layout.
func objectKey(ownerID, docID, filename string) string {
	name := strings.ReplaceAll(strings.TrimSpace(filepath.Base(filename)), " ", "_")
	return fmt.Sprintf("%s/%s/%s", ownerID, docID, name)
}
