package extract

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"code.sajari.com/docconv"

	"github.com/davidolu-py/legallens/internal/core"
)

var _ core.TextExtractor = (*WordExtractor)(nil)

// WordExtractor handles DOCX/DOC uploads via docconv. Same contract as the
// other extractors: a conversion failure yields a placeholder, not an error.
type WordExtractor struct {
	mimeType string
}

func (e *WordExtractor) Extract(data []byte, filename string) string {
	res, err := docconv.Convert(bytes.NewReader(data), e.mimeType, false)
	if err != nil {
		log.Printf("docconv: extraction failed for %q (%s): %v", filename, e.mimeType, err)
		return fmt.Sprintf(
			"Document %q could not be parsed as a Word file. Questions about its contents are not possible.",
			filename)
	}

	text := collapseWhitespace(res.Body)
	if !strings.ContainsAny(text, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return noTextPlaceholder(filename)
	}
	return capAt(formatParagraphs(text), maxPrimaryChars)
}
