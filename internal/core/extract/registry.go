package extract

import (
	"strings"

	"github.com/davidolu-py/legallens/internal/core"
)

const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDoc  = "application/msword"
)

// ForMIME picks the extractor variant for a declared MIME type. Unknown
// formats get the placeholder extractor so ingestion still completes with
// a descriptive stand-in text.
func ForMIME(mimeType string) core.TextExtractor {
	switch normalizeMIME(mimeType) {
	case mimePDF:
		return &PDFExtractor{}
	case mimeDocx, mimeDoc:
		return &WordExtractor{mimeType: normalizeMIME(mimeType)}
	default:
		return &PlaceholderExtractor{MimeType: mimeType}
	}
}

func normalizeMIME(m string) string {
	m = strings.TrimSpace(strings.ToLower(m))
	if i := strings.Index(m, ";"); i >= 0 {
		m = m[:i]
	}
	return m
}
