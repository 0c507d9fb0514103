package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/core/gateway"
	"github.com/davidolu-py/legallens/internal/core/ingest"
	"github.com/davidolu-py/legallens/internal/core/retrieval"
	"github.com/davidolu-py/legallens/internal/models"
	"github.com/davidolu-py/legallens/internal/services"
)

// memDB is an in-memory DbClient covering the free flow end to end.
type memDB struct {
	core.DbClient

	users     map[string]*models.User
	docs      map[string]*models.Document
	chunks    map[string][]models.DocumentChunk
	sessions  map[string]*models.QASession
	questions []*models.QAQuestion
	risks     []*models.RiskRecord
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[string]*models.User{},
		docs:     map[string]*models.Document{},
		chunks:   map[string][]models.DocumentChunk{},
		sessions: map[string]*models.QASession{},
	}
}

func (m *memDB) EnsureUser(_ context.Context, email, username string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	u := &models.User{ID: "user-" + email, Username: username, Email: email}
	m.users[email] = u
	return u, nil
}

func (m *memDB) CreateDocument(_ context.Context, doc *models.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	return m.docs[id], nil
}

func (m *memDB) GetDocumentByHash(_ context.Context, ownerID, hash string) (*models.Document, error) {
	for _, d := range m.docs {
		if d.OwnerID == ownerID && d.FileHash == hash {
			return d, nil
		}
	}
	return nil, nil
}

func (m *memDB) DeleteDocumentTree(_ context.Context, id string) error {
	delete(m.docs, id)
	delete(m.chunks, id)
	return nil
}

func (m *memDB) InsertDocumentChunks(_ context.Context, chunks []models.DocumentChunk) error {
	for _, ch := range chunks {
		m.chunks[ch.DocumentID] = append(m.chunks[ch.DocumentID], ch)
	}
	return nil
}

func (m *memDB) GetChunksByIndexes(_ context.Context, docID string, idx []int) ([]models.DocumentChunk, error) {
	var out []models.DocumentChunk
	for _, i := range idx {
		for _, ch := range m.chunks[docID] {
			if ch.ChunkIndex == i {
				out = append(out, ch)
			}
		}
	}
	return out, nil
}

func (m *memDB) CreateSession(_ context.Context, s *models.QASession) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *memDB) GetSessionByID(_ context.Context, id string) (*models.QASession, error) {
	return m.sessions[id], nil
}

func (m *memDB) BumpSessionActivity(_ context.Context, id string) error {
	if s := m.sessions[id]; s != nil {
		s.TotalQuestions++
	}
	return nil
}

func (m *memDB) DeleteSessionTree(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memDB) CreateQuestion(_ context.Context, q *models.QAQuestion) error {
	m.questions = append(m.questions, q)
	return nil
}

func (m *memDB) CreateRiskRecord(_ context.Context, r *models.RiskRecord) error {
	m.risks = append(m.risks, r)
	return nil
}

type memObj struct {
	core.ObjectClient
}

func (memObj) UploadFirstAvailable(_ context.Context, buckets []string, key string, _ []byte, _ string) (string, string, error) {
	return buckets[0], "https://" + buckets[0] + ".example.com/" + key, nil
}

func (memObj) DeleteFile(_ context.Context, _, _ string) error { return nil }

type scriptedGen struct {
	text string
}

func (g scriptedGen) GenerateContent(_ context.Context, _ string, _ core.GenConfig) (*core.GenResult, error) {
	return &core.GenResult{
		ModelName:  "scripted",
		Candidates: []core.GenCandidate{{Text: g.text, FinishReason: "STOP"}},
	}, nil
}

func (scriptedGen) ModelName() string { return "scripted" }

func newFreeRouter(db *memDB, gen core.Generator) http.Handler {
	obj := memObj{}
	ing := ingest.NewIngestor(db, obj, nil, []string{"legal-documents"}, 0, 0)
	gw := gateway.NewGateway(gen)
	policy := retrieval.ForName("positional", db, nil)
	sessions := services.NewSessionOrchestrator(db, gw, policy)
	risks := services.NewRiskAnalyzer(db, gw)

	h := NewFreeHandler(db, obj, ing, sessions, risks)
	r := chi.NewRouter()
	r.Post("/free/upload", h.Upload)
	r.Post("/free/session", h.CreateSession)
	r.Post("/free/ask", h.Ask)
	r.Post("/free/analyze-risks", h.AnalyzeRisks)
	r.Delete("/free/session/{sessionID}", h.EndSession)
	return r
}

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/free/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func postJSON(path string, body map[string]string) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestFreeFlowUploadAskAnalyzeDelete(t *testing.T) {
	db := newMemDB()
	r := newFreeRouter(db, scriptedGen{text: "The rent is Rs. 25,000. Overall risk level: Low. Recommend nothing further."})

	// upload a file with no parseable text at all
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, "scan.pdf", []byte{0x01, 0x02, 0x03, 0x04}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode(t, rec)
	docID := up["id"].(string)
	assert.Equal(t, "scan.pdf", up["filename"])
	assert.Equal(t, "completed", up["processing_status"])

	// open a session on the placeholder document
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON("/free/session", map[string]string{"document_id": docID}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sessID := decode(t, rec)["id"].(string)

	// asking still works and returns 200 with displayable text
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON("/free/ask", map[string]string{"session_id": sessID, "question": "What is the rent?"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ans := decode(t, rec)
	assert.NotEmpty(t, ans["answer"])
	assert.Equal(t, "scripted", ans["model_used"])
	assert.Equal(t, true, ans["recorded"])

	// risk analysis over the same document
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON("/free/analyze-risks", map[string]string{"session_id": sessID}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	risks := decode(t, rec)
	assert.Equal(t, "Low", risks["risk_level"])

	// teardown removes session and document
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/free/session/"+sessID, nil)
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, db.sessions)
	assert.Empty(t, db.docs)
}

func TestFreeSessionUnknownDocumentIs404(t *testing.T) {
	r := newFreeRouter(newMemDB(), scriptedGen{text: "ok"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON("/free/session", map[string]string{"document_id": "missing"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFreeSessionPendingDocumentIs400(t *testing.T) {
	db := newMemDB()
	db.docs["doc-1"] = &models.Document{ID: "doc-1", ProcessingStatus: "pending"}
	r := newFreeRouter(db, scriptedGen{text: "ok"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON("/free/session", map[string]string{"document_id": "doc-1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFreeAskUnknownSessionIs404(t *testing.T) {
	r := newFreeRouter(newMemDB(), scriptedGen{text: "ok"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, postJSON("/free/ask", map[string]string{"session_id": "missing", "question": "q"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFreeAskMissingBodyIs400(t *testing.T) {
	r := newFreeRouter(newMemDB(), scriptedGen{text: "ok"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/free/ask", strings.NewReader("not json"))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFreeUploadDuplicateContentReplaces(t *testing.T) {
	db := newMemDB()
	r := newFreeRouter(db, scriptedGen{text: "ok"})

	content := []byte("identical bytes")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, "v1.txt", content))
	require.Equal(t, http.StatusOK, rec.Code)
	firstID := decode(t, rec)["id"].(string)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, "v2.txt", content))
	require.Equal(t, http.StatusOK, rec.Code)
	secondID := decode(t, rec)["id"].(string)

	assert.NotEqual(t, firstID, secondID)
	require.Len(t, db.docs, 1)
	_, ok := db.docs[secondID]
	assert.True(t, ok)
}
