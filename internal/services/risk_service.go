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

// RiskAnalyzer runs risk analysis passes over processed documents. Every
// call appends a fresh record; prior analyses are never merged or replaced.
type RiskAnalyzer struct {
	db core.DbClient
	gw *gateway.Gateway
}

func NewRiskAnalyzer(db core.DbClient, gw *gateway.Gateway) *RiskAnalyzer {
	return &RiskAnalyzer{db: db, gw: gw}
}

// AnalyzeDocument analyzes the full extracted text of a document. The
// precondition checks mirror session creation; a model failure still yields
// a record carrying the apology text rather than an error.
func (s *RiskAnalyzer) AnalyzeDocument(ctx context.Context, documentID string) (*models.RiskRecord, error) {
	doc, err := s.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, core.ErrDocumentNotFound
	}
	if !doc.IsProcessed || doc.ExtractedText == "" {
		return nil, core.ErrDocumentNotProcessed
	}

	report := s.gw.DetectRisks(ctx, doc.ExtractedText)

	rec := &models.RiskRecord{
		ID:              uuid.NewString(),
		DocumentID:      doc.ID,
		RiskLevel:       report.RiskLevel,
		Analysis:        report.Analysis,
		RiskFactors:     report.RiskFactors,
		Recommendations: report.Recommendations,
		SeverityScore:   report.SeverityScore,
		OverallScore:    report.OverallScore,
		ModelUsed:       report.Model,
		CreatedAt:       time.Now(),
	}
	if err := s.db.CreateRiskRecord(ctx, rec); err != nil {
		// the analysis is still worth returning to the caller
		log.Printf("risk: record write failed for document %s: %v", doc.ID, err)
	}
	return rec, nil
}
