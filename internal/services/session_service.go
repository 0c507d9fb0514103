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
	"github.com/davidolu-py/legallens/internal/core/retrieval"
	"github.com/davidolu-py/legallens/internal/models"
)

// AskResult is one answered question. Recorded reports whether the exchange
// made it into the question history; answering never fails just because the
// history write did.
type AskResult struct {
	Answer     string
	Confidence float64
	Model      string
	Timestamp  time.Time
	Recorded   bool
}

// SessionOrchestrator owns the Q&A session lifecycle: create a session
// against a processed document, answer questions inside it, tear it down.
type SessionOrchestrator struct {
	db     core.DbClient
	gw     *gateway.Gateway
	policy retrieval.Policy
}

func NewSessionOrchestrator(db core.DbClient, gw *gateway.Gateway, policy retrieval.Policy) *SessionOrchestrator {
	return &SessionOrchestrator{db: db, gw: gw, policy: policy}
}

// CreateSession opens a Q&A session on a document. The document must exist
// and must have finished processing.
func (s *SessionOrchestrator) CreateSession(ctx context.Context, userID, documentID, name string) (*models.QASession, error) {
	doc, err := s.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, core.ErrDocumentNotFound
	}
	if !doc.IsProcessed {
		return nil, core.ErrDocumentNotProcessed
	}

	if name = strings.TrimSpace(name); name == "" {
		name = fmt.Sprintf("Session for %s", doc.OriginalFilename)
	}

	now := time.Now()
	sess := &models.QASession{
		ID:          uuid.NewString(),
		UserID:      userID,
		DocumentID:  documentID,
		SessionName: name,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Ask answers one question inside a session. Precondition failures (missing
// session, unusable document) surface as errors; everything past the context
// assembly is non-fatal and the caller always gets displayable text.
func (s *SessionOrchestrator) Ask(ctx context.Context, sessionID, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", core.ErrValidation)
	}

	sess, err := s.db.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, core.ErrSessionNotFound
	}

	doc, err := s.db.GetDocumentByID(ctx, sess.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil || !doc.IsProcessed || doc.ExtractedText == "" {
		return nil, core.ErrDocumentUnavailable
	}

	contextText := s.policy.BuildContext(ctx, doc, question)
	ans := s.gw.AnswerQuestion(ctx, question, contextText)

	res := &AskResult{
		Answer:     ans.Answer,
		Confidence: ans.Confidence,
		Model:      ans.Model,
		Timestamp:  ans.Timestamp,
	}

	answered := ans.Timestamp
	q := &models.QAQuestion{
		ID:              uuid.NewString(),
		SessionID:       sess.ID,
		Question:        question,
		Answer:          ans.Answer,
		ConfidenceScore: ans.Confidence,
		ContextUsed:     contextText,
		ModelUsed:       ans.Model,
		CreatedAt:       ans.Timestamp,
		AnsweredAt:      &answered,
	}
	if err := s.db.CreateQuestion(ctx, q); err != nil {
		log.Printf("session %s: question history write failed: %v", sess.ID, err)
	} else {
		res.Recorded = true
		if err := s.db.BumpSessionActivity(ctx, sess.ID); err != nil {
			log.Printf("session %s: activity bump failed: %v", sess.ID, err)
		}
	}

	return res, nil
}

// EndSession deletes the session, its question history, the underlying
// document with its chunks, and the stored object. Used by the free flow
// where a document only ever belongs to one throwaway session.
func (s *SessionOrchestrator) EndSession(ctx context.Context, obj core.ObjectClient, sessionID string) error {
	sess, err := s.db.GetSessionByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return core.ErrSessionNotFound
	}

	doc, err := s.db.GetDocumentByID(ctx, sess.DocumentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if err := s.db.DeleteSessionTree(ctx, sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if doc != nil {
		if err := deleteStoredObject(ctx, obj, doc); err != nil {
			log.Printf("session %s: stored object cleanup failed: %v", sess.ID, err)
		}
		if err := s.db.DeleteDocumentTree(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
	}
	return nil
}

func deleteStoredObject(ctx context.Context, obj core.ObjectClient, doc *models.Document) error {
	if obj == nil || doc.Bucket == "" || doc.StoragePath == "" {
		return nil
	}
	return obj.DeleteFile(ctx, doc.Bucket, doc.StoragePath)
}
