package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/core/ingest"
	"github.com/davidolu-py/legallens/internal/services"
)

const (
	// the anonymous flow runs under one shared system identity
	freeUserEmail = "free@system.local"
	freeUsername  = "free_user"

	maxUploadBytes = 50 << 20
)

// FreeHandler serves the anonymous document Q&A flow: upload, open a
// session, ask questions, run a risk analysis, tear everything down.
type FreeHandler struct {
	dbclient core.DbClient
	obj      core.ObjectClient
	ingestor *ingest.Ingestor
	sessions *services.SessionOrchestrator
	risks    *services.RiskAnalyzer
}

func NewFreeHandler(db core.DbClient, obj core.ObjectClient, ing *ingest.Ingestor, sessions *services.SessionOrchestrator, risks *services.RiskAnalyzer) *FreeHandler {
	return &FreeHandler{dbclient: db, obj: obj, ingestor: ing, sessions: sessions, risks: risks}
}

func (h *FreeHandler) freeUser(r *http.Request) (string, error) {
	u, err := h.dbclient.EnsureUser(r.Context(), freeUserEmail, freeUsername)
	if err != nil {
		return "", fmt.Errorf("resolve free user: %w", err)
	}
	return u.ID, nil
}

// Upload ingests a document for the shared free user.
func (h *FreeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not read upload"})
		return
	}

	ownerID, err := h.freeUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.ingestor.Ingest(r.Context(), data, header.Filename, header.Header.Get("Content-Type"), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                doc.ID,
		"filename":          doc.OriginalFilename,
		"word_count":        doc.WordCount,
		"processing_status": doc.ProcessingStatus,
	})
}

type createSessionRequest struct {
	DocumentID  string `json:"document_id"`
	SessionName string `json:"session_name"`
}

func (h *FreeHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocumentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document_id is required"})
		return
	}

	userID, err := h.freeUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.sessions.CreateSession(r.Context(), userID, req.DocumentID, req.SessionName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           sess.ID,
		"document_id":  sess.DocumentID,
		"session_name": sess.SessionName,
	})
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// Ask answers a question inside a session. Generation problems never become
// HTTP errors; the answer body carries a notice or apology instead.
func (h *FreeHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id and question are required"})
		return
	}

	res, err := h.sessions.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":     res.Answer,
		"confidence": res.Confidence,
		"model_used": res.Model,
		"timestamp":  res.Timestamp.Format(time.RFC3339),
		"recorded":   res.Recorded,
	})
}

type analyzeRisksRequest struct {
	SessionID string `json:"session_id"`
}

// AnalyzeRisks runs a risk pass over the document behind a session.
func (h *FreeHandler) AnalyzeRisks(w http.ResponseWriter, r *http.Request) {
	var req analyzeRisksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id is required"})
		return
	}

	sess, err := h.dbclient.GetSessionByID(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if sess == nil {
		writeError(w, core.ErrSessionNotFound)
		return
	}

	rec, err := h.risks.AnalyzeDocument(r.Context(), sess.DocumentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"risks":           rec.RiskFactors,
		"risk_level":      rec.RiskLevel,
		"recommendations": rec.Recommendations,
		"analysis":        rec.Analysis,
		"severity_score":  rec.SeverityScore,
		"model_used":      rec.ModelUsed,
	})
}

// EndSession deletes the session, its questions, the document, its chunks
// and the stored object. Anonymous documents live exactly as long as their
// session.
func (h *FreeHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	if err := h.sessions.EndSession(r.Context(), h.obj, sessionID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "session and document deleted"})
}
