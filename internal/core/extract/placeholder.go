package extract

import (
	"fmt"

	"github.com/davidolu-py/legallens/internal/core"
)

var _ core.TextExtractor = (*PlaceholderExtractor)(nil)

// PlaceholderExtractor handles formats with no parser wired in. It returns
// a descriptive stand-in so the document still ingests and Q&A can at least
// explain what it is looking at.
type PlaceholderExtractor struct {
	MimeType string
}

func (e *PlaceholderExtractor) Extract(data []byte, filename string) string {
	return fmt.Sprintf(
		"Document %q (%s, %d bytes) was uploaded, but no text parser is available for this format. "+
			"Questions can only be answered from the document's name and type.",
		filename, e.MimeType, len(data))
}

// noTextPlaceholder is the shared fallback for files where every extraction
// strategy came up empty, e.g. scanned or image-only PDFs.
func noTextPlaceholder(filename string) string {
	return fmt.Sprintf(
		"Document %q contains no extractable text. It may be a scanned or image-based file; "+
			"OCR is not supported, so answers about its contents are not possible.",
		filename)
}
