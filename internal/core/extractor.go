package core

// TextExtractor turns raw document bytes into plain text. Implementations
// never fail: when nothing can be extracted they return a human-readable
// placeholder describing the document, so downstream components always
// receive non-empty text and ingestion is never blocked by a bad file.
type TextExtractor interface {
	Extract(data []byte, filename string) string
}
