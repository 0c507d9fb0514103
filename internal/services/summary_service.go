package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/core/gateway"
	"github.com/davidolu-py/legallens/internal/models"
)

// DocumentSummarizer generates and caches document summaries. A document
// holds at most one summary; a forced run replaces it in place.
type DocumentSummarizer struct {
	db core.DbClient
	gw *gateway.Gateway
}

func NewDocumentSummarizer(db core.DbClient, gw *gateway.Gateway) *DocumentSummarizer {
	return &DocumentSummarizer{db: db, gw: gw}
}

// Summarize returns the cached summary when one exists and force is false;
// otherwise it generates a fresh one. Like risk analysis, a failed cache
// write is logged and the summary still returned.
func (s *DocumentSummarizer) Summarize(ctx context.Context, ownerID, documentID string, force bool) (*models.SummaryRecord, error) {
	doc, err := s.ownedProcessedDocument(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	if !force {
		existing, err := s.db.GetSummaryByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("load summary: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	start := time.Now()
	sum := s.gw.SummarizeDocument(ctx, doc.ExtractedText, "contract")

	rec := &models.SummaryRecord{
		ID:              uuid.NewString(),
		DocumentID:      doc.ID,
		Summary:         sum.Summary,
		KeyPoints:       sum.KeyPoints,
		ConfidenceScore: sum.Confidence,
		ModelUsed:       sum.Model,
		ProcessingTime:  time.Since(start).Seconds(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := s.db.UpsertSummary(ctx, rec); err != nil {
		log.Printf("summary: cache write failed for document %s: %v", doc.ID, err)
	}
	return rec, nil
}

// GetSummary returns the cached summary without generating one.
func (s *DocumentSummarizer) GetSummary(ctx context.Context, ownerID, documentID string) (*models.SummaryRecord, error) {
	doc, err := s.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil || doc.OwnerID != ownerID {
		return nil, core.ErrDocumentNotFound
	}

	sum, err := s.db.GetSummaryByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	if sum == nil {
		return nil, fmt.Errorf("summary: %w", core.ErrNotFound)
	}
	return sum, nil
}

func (s *DocumentSummarizer) ownedProcessedDocument(ctx context.Context, ownerID, documentID string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil || doc.OwnerID != ownerID {
		return nil, core.ErrDocumentNotFound
	}
	if !doc.IsProcessed || doc.ExtractedText == "" {
		return nil, core.ErrDocumentNotProcessed
	}
	return doc, nil
}
