package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidolu-py/legallens/internal/api/middlewares"
	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/core/gateway"
	"github.com/davidolu-py/legallens/internal/models"
	"github.com/davidolu-py/legallens/internal/services"
)

type analysisMemDB struct {
	core.DbClient

	docs        map[string]*models.Document
	summaries   map[string]*models.SummaryRecord
	comparisons map[string]*models.ComparisonRecord
}

func newAnalysisMemDB() *analysisMemDB {
	return &analysisMemDB{
		docs:        map[string]*models.Document{},
		summaries:   map[string]*models.SummaryRecord{},
		comparisons: map[string]*models.ComparisonRecord{},
	}
}

func (m *analysisMemDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	return m.docs[id], nil
}

func (m *analysisMemDB) UpsertSummary(_ context.Context, s *models.SummaryRecord) error {
	m.summaries[s.DocumentID] = s
	return nil
}

func (m *analysisMemDB) GetSummaryByDocument(_ context.Context, documentID string) (*models.SummaryRecord, error) {
	return m.summaries[documentID], nil
}

func (m *analysisMemDB) UpsertComparison(_ context.Context, c *models.ComparisonRecord) error {
	m.comparisons[c.ID] = c
	return nil
}

func (m *analysisMemDB) GetComparisonByID(_ context.Context, id string) (*models.ComparisonRecord, error) {
	return m.comparisons[id], nil
}

func (m *analysisMemDB) GetComparisonByPair(_ context.Context, userID, doc1ID, doc2ID string) (*models.ComparisonRecord, error) {
	for _, c := range m.comparisons {
		if c.UserID == userID && c.Document1ID == doc1ID && c.Document2ID == doc2ID {
			return c, nil
		}
	}
	return nil, nil
}

// newAnalysisRouter stands in the authenticated user the JWT middleware would
// attach in production.
func newAnalysisRouter(db *analysisMemDB, gen core.Generator, userID string) http.Handler {
	gw := gateway.NewGateway(gen)
	h := NewAnalysisHandler(services.NewDocumentSummarizer(db, gw), services.NewDocumentComparer(db, gw))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), userID)))
		})
	})
	r.Post("/summarize", h.Summarize)
	r.Get("/summarize/{documentID}", h.GetSummary)
	r.Post("/compare", h.Compare)
	r.Get("/compare/{comparisonID}", h.GetComparison)
	return r
}

func analysisDoc(id, owner, text string) *models.Document {
	return &models.Document{
		ID:               id,
		OwnerID:          owner,
		OriginalFilename: id + ".pdf",
		ExtractedText:    text,
		IsProcessed:      true,
		ProcessingStatus: "completed",
	}
}

func postAnalysisJSON(path string, body map[string]any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSummarizeEndpointGeneratesAndCaches(t *testing.T) {
	db := newAnalysisMemDB()
	db.docs["doc-1"] = analysisDoc("doc-1", "user-1", "the lease text")
	router := newAnalysisRouter(db, scriptedGen{text: "Overview\n- Eleven month term"}, "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postAnalysisJSON("/summarize", map[string]any{"document_id": "doc-1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["summary"], "Eleven month term")
	require.NotNil(t, db.summaries["doc-1"])

	// the cached summary is now served by GET
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summarize/doc-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSummarizeEndpointUnknownDocumentIs404(t *testing.T) {
	router := newAnalysisRouter(newAnalysisMemDB(), scriptedGen{}, "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postAnalysisJSON("/summarize", map[string]any{"document_id": "nope"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSummaryBeforeGenerationIs404(t *testing.T) {
	db := newAnalysisMemDB()
	db.docs["doc-1"] = analysisDoc("doc-1", "user-1", "text")
	router := newAnalysisRouter(db, scriptedGen{}, "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/summarize/doc-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompareEndpointFlow(t *testing.T) {
	db := newAnalysisMemDB()
	db.docs["doc-a"] = analysisDoc("doc-a", "user-1", "rent payable monthly in advance")
	db.docs["doc-b"] = analysisDoc("doc-b", "user-1", "rent payable quarterly in arrears")
	router := newAnalysisRouter(db, scriptedGen{text: "Difference: Payment cadence differs.\nSimilarity: Both concern rent."}, "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postAnalysisJSON("/compare", map[string]any{
		"document1_id": "doc-a",
		"document2_id": "doc-b",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.NotEmpty(t, body["key_differences"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/compare/"+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompareEndpointSameDocumentIs400(t *testing.T) {
	router := newAnalysisRouter(newAnalysisMemDB(), scriptedGen{}, "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postAnalysisJSON("/compare", map[string]any{
		"document1_id": "doc-a",
		"document2_id": "doc-a",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompareEndpointForeignComparisonIs404(t *testing.T) {
	db := newAnalysisMemDB()
	db.comparisons["cmp-1"] = &models.ComparisonRecord{ID: "cmp-1", UserID: "someone-else"}
	router := newAnalysisRouter(db, scriptedGen{}, "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/compare/cmp-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
