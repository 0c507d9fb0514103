package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidolu-py/legallens/internal/api/middlewares"
	"github.com/davidolu-py/legallens/internal/services"
)

// AnalysisHandler serves the authenticated summarization and comparison
// endpoints.
type AnalysisHandler struct {
	summaries   *services.DocumentSummarizer
	comparisons *services.DocumentComparer
}

func NewAnalysisHandler(summaries *services.DocumentSummarizer, comparisons *services.DocumentComparer) *AnalysisHandler {
	return &AnalysisHandler{summaries: summaries, comparisons: comparisons}
}

type summarizeRequest struct {
	DocumentID      string `json:"document_id"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

// Summarize returns the document's summary, generating one when no cached
// summary exists or regeneration is forced.
func (h *AnalysisHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DocumentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document_id is required"})
		return
	}

	sum, err := h.summaries.Summarize(r.Context(), userID, req.DocumentID, req.ForceRegenerate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GetSummary returns the cached summary without generating one.
func (h *AnalysisHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	sum, err := h.summaries.GetSummary(r.Context(), userID, chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type compareRequest struct {
	Document1ID     string `json:"document1_id"`
	Document2ID     string `json:"document2_id"`
	ComparisonName  string `json:"comparison_name"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

func (h *AnalysisHandler) Compare(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Document1ID == "" || req.Document2ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document1_id and document2_id are required"})
		return
	}

	cmp, err := h.comparisons.Compare(r.Context(), userID, req.Document1ID, req.Document2ID, req.ComparisonName, req.ForceRegenerate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (h *AnalysisHandler) GetComparison(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	cmp, err := h.comparisons.GetComparison(r.Context(), userID, chi.URLParam(r, "comparisonID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (h *AnalysisHandler) ListComparisons(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	list, err := h.comparisons.ListComparisons(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AnalysisHandler) DeleteComparison(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	if err := h.comparisons.DeleteComparison(r.Context(), userID, chi.URLParam(r, "comparisonID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "comparison deleted"})
}
