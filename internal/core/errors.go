package core

import "errors"

// Sentinel errors for the request pipeline. Handlers map these onto HTTP
// statuses; everything else surfaces as a 500.
var (
	// ErrValidation covers missing or malformed request fields.
	ErrValidation = errors.New("validation failed")

	// ErrDocumentNotFound is returned when a document id resolves to nothing.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrSessionNotFound is returned when a session id resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDocumentNotProcessed is returned when a session is requested against
	// a document whose ingestion has not completed.
	ErrDocumentNotProcessed = errors.New("document is still being processed")

	// ErrDocumentUnavailable is returned when a session's document has no
	// extracted text to answer from.
	ErrDocumentUnavailable = errors.New("document has no extractable content")

	// ErrNotFound is the generic absent-row sentinel used by the data layer.
	ErrNotFound = errors.New("not found")
)
