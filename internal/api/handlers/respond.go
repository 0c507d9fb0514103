package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/davidolu-py/legallens/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: response encode failed: %v", err)
	}
}

// writeError maps domain sentinels onto the HTTP status taxonomy. Model and
// generation failures never reach here; the gateway turns those into
// displayable answer text.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrDocumentNotProcessed):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, core.ErrDocumentNotFound),
		errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, core.ErrDocumentUnavailable):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("http: internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
