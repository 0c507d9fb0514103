package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/davidolu-py/legallens/internal/api/middlewares"
	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/core/ingest"
)

// DocumentHandler serves the authenticated document endpoints. Uploads run
// through the same ingest pipeline as the free flow, just under the caller's
// own identity.
type DocumentHandler struct {
	dbclient core.DbClient
	ingestor *ingest.Ingestor
}

func NewDocumentHandler(db core.DbClient, ing *ingest.Ingestor) *DocumentHandler {
	return &DocumentHandler{dbclient: db, ingestor: ing}
}

func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

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

	doc, err := h.ingestor.Ingest(r.Context(), data, header.Filename, header.Header.Get("Content-Type"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	documents, err := h.dbclient.ListDocumentsByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	doc, err := h.dbclient.GetDocumentByID(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if doc == nil || doc.OwnerID != userID {
		writeError(w, core.ErrDocumentNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
