package core

import "context"

// GenConfig carries the per-call generation knobs forwarded to the model.
type GenConfig struct {
	Temperature     float32
	MaxOutputTokens int32
}

// GenCandidate is one candidate from the generative API, reduced to the
// shapes the gateway has to normalize: a direct text field, a list of text
// parts, and the finish reason reported by the model.
type GenCandidate struct {
	Text         string
	Parts        []string
	FinishReason string // STOP | MAX_TOKENS | SAFETY | RECITATION | OTHER
}

// GenResult is the neutral response shape produced by a Generator.
type GenResult struct {
	Candidates []GenCandidate
	ModelName  string
}

// Generator is the single generateContent-style call the prompt gateway
// builds on. Implementations may fail; the gateway never propagates that
// failure to its own callers.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string, cfg GenConfig) (*GenResult, error)
	ModelName() string
}

// EmbeddingProvider turns texts into vectors for pgvector storage/search.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
