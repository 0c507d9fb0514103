package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/davidolu-py/legallens/internal/core"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) ModelName() string {
	return g.modelName
}

// GenerateContent runs one prompt through the model and maps the provider
// response into the neutral result shape. Candidate parts are carried over
// individually; joining and finish-reason handling belong to the caller.
func (g *GeminiLLM) GenerateContent(ctx context.Context, prompt string, cfg core.GenConfig) (*core.GenResult, error) {
	m := g.client.GenerativeModel(g.modelName)
	if cfg.Temperature > 0 {
		m.SetTemperature(cfg.Temperature)
	}
	if cfg.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(cfg.MaxOutputTokens)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	out := &core.GenResult{ModelName: g.modelName}
	for _, cand := range resp.Candidates {
		gc := core.GenCandidate{FinishReason: finishReasonString(cand.FinishReason)}
		if cand.Content != nil {
			for _, p := range cand.Content.Parts {
				if t, ok := p.(genai.Text); ok {
					gc.Parts = append(gc.Parts, string(t))
				}
			}
		}
		if len(gc.Parts) == 1 {
			gc.Text = gc.Parts[0]
		}
		out.Candidates = append(out.Candidates, gc)
	}
	return out, nil
}

func finishReasonString(r genai.FinishReason) string {
	switch r {
	case genai.FinishReasonStop:
		return "STOP"
	case genai.FinishReasonMaxTokens:
		return "MAX_TOKENS"
	case genai.FinishReasonSafety:
		return "SAFETY"
	case genai.FinishReasonRecitation:
		return "RECITATION"
	case genai.FinishReasonUnspecified:
		return ""
	default:
		return "OTHER"
	}
}

var _ core.Generator = (*GeminiLLM)(nil)
