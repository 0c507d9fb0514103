package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/core/gateway"
	"github.com/davidolu-py/legallens/internal/models"
)

// DocumentComparer compares two of a user's documents and caches the result
// per ordered pair. Re-running the same pair returns the cached comparison
// unless the caller forces a regeneration.
type DocumentComparer struct {
	db core.DbClient
	gw *gateway.Gateway
}

func NewDocumentComparer(db core.DbClient, gw *gateway.Gateway) *DocumentComparer {
	return &DocumentComparer{db: db, gw: gw}
}

func (s *DocumentComparer) Compare(ctx context.Context, ownerID, doc1ID, doc2ID, name string, force bool) (*models.ComparisonRecord, error) {
	if doc1ID == doc2ID {
		return nil, fmt.Errorf("%w: cannot compare a document with itself", core.ErrValidation)
	}

	doc1, err := s.loadOwnedDocument(ctx, ownerID, doc1ID)
	if err != nil {
		return nil, err
	}
	doc2, err := s.loadOwnedDocument(ctx, ownerID, doc2ID)
	if err != nil {
		return nil, err
	}
	if !doc1.IsProcessed || doc1.ExtractedText == "" ||
		!doc2.IsProcessed || doc2.ExtractedText == "" {
		return nil, core.ErrDocumentNotProcessed
	}

	if !force {
		existing, err := s.db.GetComparisonByPair(ctx, ownerID, doc1ID, doc2ID)
		if err != nil {
			return nil, fmt.Errorf("load comparison: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	start := time.Now()
	report := s.gw.CompareDocuments(ctx,
		doc1.ExtractedText, doc2.ExtractedText,
		doc1.OriginalFilename, doc2.OriginalFilename)

	rec := &models.ComparisonRecord{
		ID:              uuid.NewString(),
		UserID:          ownerID,
		Document1ID:     doc1.ID,
		Document2ID:     doc2.ID,
		ComparisonName:  strings.TrimSpace(name),
		Summary:         report.Summary,
		KeyDifferences:  report.KeyDifferences,
		Similarities:    report.Similarities,
		Recommendations: report.Recommendations,
		SimilarityScore: similarityScore(doc1.ExtractedText, doc2.ExtractedText),
		ModelUsed:       report.Model,
		ProcessingTime:  time.Since(start).Seconds(),
		CreatedAt:       time.Now(),
	}
	if err := s.db.UpsertComparison(ctx, rec); err != nil {
		log.Printf("compare: record write failed for %s vs %s: %v", doc1.ID, doc2.ID, err)
	}
	return rec, nil
}

func (s *DocumentComparer) GetComparison(ctx context.Context, ownerID, id string) (*models.ComparisonRecord, error) {
	cmp, err := s.db.GetComparisonByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load comparison: %w", err)
	}
	if cmp == nil || cmp.UserID != ownerID {
		return nil, fmt.Errorf("comparison: %w", core.ErrNotFound)
	}
	return cmp, nil
}

func (s *DocumentComparer) ListComparisons(ctx context.Context, ownerID string) ([]models.ComparisonRecord, error) {
	return s.db.ListComparisonsByUser(ctx, ownerID)
}

func (s *DocumentComparer) DeleteComparison(ctx context.Context, ownerID, id string) error {
	if _, err := s.GetComparison(ctx, ownerID, id); err != nil {
		return err
	}
	return s.db.DeleteComparison(ctx, id)
}

func (s *DocumentComparer) loadOwnedDocument(ctx context.Context, ownerID, id string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil || doc.OwnerID != ownerID {
		return nil, core.ErrDocumentNotFound
	}
	return doc, nil
}

// similarityScore is the Jaccard index over lowercased word sets. It is a
// rough signal displayed alongside the model's comparison, not a substitute
// for it.
func similarityScore(text1, text2 string) float64 {
	set1 := wordSet(text1)
	set2 := wordSet(text2)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	var shared int
	for w := range set1 {
		if _, ok := set2[w]; ok {
			shared++
		}
	}
	union := len(set1) + len(set2) - shared
	return float64(shared) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}
