package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Byte-level PDF fallback. PDFs draw text through "show text" operators
// whose payloads are parenthesis-delimited strings, so even when the xref
// structure is unreadable the payloads can be fished straight out of the
// raw bytes. The file is decoded one byte per rune so no sequence can
// trigger a decode error.

const (
	minPrimaryChars  = 200
	maxPrimaryChars  = 15000
	minFallbackChars = 100
	maxFallbackChars = 10000

	// runs shorter than this without terminal punctuation are treated as
	// word-break continuations of the previous run
	continuationLen = 50
)

var (
	parenRunRe   = regexp.MustCompile(`\(([^()]{3,}?)\)`)
	escapeRe     = regexp.MustCompile(`\\[nrtbf()\\]|\\[0-7]{1,3}`)
	lettersRunRe = regexp.MustCompile(`[A-Za-z]{3}`)
	nameTokenRe  = regexp.MustCompile(`/[A-Za-z0-9#+.\-]+`)
	emptyDictRe  = regexp.MustCompile(`<<\s*>>|\[\s*\]`)
	wordRunRe    = regexp.MustCompile(`[A-Za-z]{3,}(?:[ \t]+[A-Za-z'&.,-]{2,}){2,}`)
	sentenceRe   = regexp.MustCompile(`\.\s+([A-Z])`)
	wsRe         = regexp.MustCompile(`\s+`)
)

// pdfKeywords is the denylist of structural tokens stripped as whole words.
var pdfKeywords = map[string]struct{}{
	"obj": {}, "endobj": {}, "stream": {}, "endstream": {},
	"xref": {}, "startxref": {}, "trailer": {},
	"BT": {}, "ET": {}, "Tj": {}, "TJ": {}, "Td": {}, "TD": {},
	"Tf": {}, "Tm": {}, "cm": {}, "re": {}, "Do": {}, "gs": {},
}

// heuristicExtract pulls text out of raw PDF bytes. Returns "" when neither
// heuristic produces enough text.
func heuristicExtract(data []byte) string {
	decoded := decodeLatin1(data)

	if text := extractParenRuns(decoded); len(text) > minPrimaryChars {
		return capAt(formatParagraphs(text), maxPrimaryChars)
	}

	if text := extractWordRuns(decoded); len(text) > minFallbackChars {
		return capAt(text, maxFallbackChars)
	}

	return ""
}

// decodeLatin1 maps every byte to the rune with the same code point, so
// arbitrary binary input always decodes.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// extractParenRuns collects the parenthesis-delimited payloads of show-text
// operators, joins broken-off word fragments, and scrubs structural noise.
func extractParenRuns(decoded string) string {
	var b strings.Builder
	for _, m := range parenRunRe.FindAllStringSubmatch(decoded, -1) {
		run := escapeRe.ReplaceAllString(m[1], " ")
		run = strings.TrimSpace(run)
		if run == "" || !lettersRunRe.MatchString(run) {
			continue
		}
		b.WriteString(run)
		if endsSentence(run) || len(run) >= continuationLen {
			b.WriteString("\n")
		} else {
			// mid-sentence fragment: the PDF broke a line inside a word
			// group, so rejoin with a plain space
			b.WriteString(" ")
		}
	}

	text := b.String()
	text = stripPDFKeywords(text)
	text = nameTokenRe.ReplaceAllString(text, " ")
	text = emptyDictRe.ReplaceAllString(text, " ")
	return collapseWhitespace(text)
}

// extractWordRuns is the last-resort scan: any stretch of three or more
// natural-language words anywhere in the decoded buffer.
func extractWordRuns(decoded string) string {
	matches := wordRunRe.FindAllString(decoded, -1)
	var kept []string
	for _, m := range matches {
		m = stripPDFKeywords(m)
		if m = strings.TrimSpace(collapseWhitespace(m)); m != "" {
			kept = append(kept, m)
		}
	}
	return strings.Join(kept, " ")
}

func stripPDFKeywords(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if _, bad := pdfKeywords[f]; bad {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func endsSentence(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

// formatParagraphs inserts a paragraph break after each sentence-ending
// period so the reassembled stream reads as prose instead of one blob.
func formatParagraphs(text string) string {
	return sentenceRe.ReplaceAllString(text, ".\n\n$1")
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(text, " "))
}

func capAt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	// the decoded text can carry multibyte runes; never cut one in half
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}
