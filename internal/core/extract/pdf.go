package extract

import (
	"bytes"
	"io"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/davidolu-py/legallens/internal/core"
)

var _ core.TextExtractor = (*PDFExtractor)(nil)

// PDFExtractor extracts text from PDF bytes. It tries a real content-stream
// parse first and falls back to byte-level heuristics for files the parser
// cannot open (damaged xref tables, exotic encodings). It never fails: when
// both strategies come up empty it returns a placeholder naming the file.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(data []byte, filename string) string {
	if text := parsePlainText(data); len(strings.TrimSpace(text)) > minPrimaryChars {
		return capAt(formatParagraphs(collapseWhitespace(text)), maxPrimaryChars)
	}

	if text := heuristicExtract(data); text != "" {
		return text
	}

	return noTextPlaceholder(filename)
}

// parsePlainText runs the ledongthuc/pdf content-stream parser. The library
// panics on some malformed inputs, so the whole parse is fenced.
func parsePlainText(data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pdf parse panic recovered: %v", r)
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return ""
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return ""
	}
	return string(out)
}
