package gateway

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/davidolu-py/legallens/internal/core"
)

const (
	// maxPromptContextChars hard-caps the document text spliced into a
	// prompt. The retrieval budget is tighter, but risk analysis feeds the
	// whole extracted text through here.
	maxPromptContextChars = 8000

	// summaries read the opening of the document; comparisons split the
	// budget across two documents
	maxSummaryContextChars = 4000
	maxCompareContextChars = 2000

	answerTemperature  = 0.1
	riskTemperature    = 0.2
	summaryTemperature = 0.3
	compareTemperature = 0.3
	maxAnswerTokens    = 2048

	truncationNotice = "\n\n[Note: the response was cut short by the output limit. Ask a narrower question for the remainder.]"
	apologyText      = "I apologize, but I'm currently unable to process your request. Please try again in a moment."
)

// Answer is the normalized Q&A result. The gateway never surfaces model or
// transport failures as errors; callers always get displayable text.
type Answer struct {
	Answer     string
	Confidence float64
	Model      string
	Timestamp  time.Time
}

// Summary is the parsed output of a summarization pass.
type Summary struct {
	Summary    string
	KeyPoints  []string
	Confidence float64
	Model      string
}

// ComparisonReport is the parsed output of a two-document comparison.
type ComparisonReport struct {
	Summary         string
	KeyDifferences  []string
	Similarities    []string
	Recommendations []string
	Model           string
}

// RiskReport is the parsed output of a risk analysis pass.
type RiskReport struct {
	Analysis        string
	RiskLevel       string
	RiskFactors     []string
	Recommendations []string
	SeverityScore   float64
	OverallScore    float64
	Model           string
}

// Gateway wraps a text generator with the legal prompts, response-shape
// normalization and the parsing layer the handlers consume.
type Gateway struct {
	gen core.Generator
}

func NewGateway(gen core.Generator) *Gateway {
	return &Gateway{gen: gen}
}

// AnswerQuestion asks the model a question against the assembled document
// context. It always returns an answer; degraded model output becomes a
// notice or an apology rather than an error.
func (g *Gateway) AnswerQuestion(ctx context.Context, question, contextText string) *Answer {
	prompt := fmt.Sprintf(qaPromptTemplate, truncateContext(cleanSourceText(contextText)), question)

	res, err := g.gen.GenerateContent(ctx, prompt, core.GenConfig{
		Temperature:     answerTemperature,
		MaxOutputTokens: maxAnswerTokens,
	})
	text := g.normalize(res, err)
	text = cleanResponse(text)

	return &Answer{
		Answer:     text,
		Confidence: scoreConfidence(text),
		Model:      g.gen.ModelName(),
		Timestamp:  time.Now(),
	}
}

// DetectRisks runs the risk prompt over the full extracted document text and
// parses level, factors and recommendations out of the prose response.
func (g *Gateway) DetectRisks(ctx context.Context, documentText string) *RiskReport {
	prompt := fmt.Sprintf(riskPromptTemplate, truncateContext(cleanSourceText(documentText)))

	res, err := g.gen.GenerateContent(ctx, prompt, core.GenConfig{
		Temperature:     riskTemperature,
		MaxOutputTokens: maxAnswerTokens,
	})
	analysis := cleanResponse(g.normalize(res, err))

	level := detectRiskLevel(analysis)
	return &RiskReport{
		Analysis:        analysis,
		RiskLevel:       level,
		RiskFactors:     extractRiskFactors(analysis),
		Recommendations: extractRecommendations(analysis),
		SeverityScore:   severityFor(level),
		OverallScore:    severityFor(level),
		Model:           g.gen.ModelName(),
	}
}

// SummarizeDocument produces a structured summary of the document's opening
// text. Like the other passes it never fails; a degraded response becomes the
// summary text itself.
func (g *Gateway) SummarizeDocument(ctx context.Context, documentText, documentType string) *Summary {
	if documentType == "" {
		documentType = "contract"
	}
	prompt := fmt.Sprintf(summaryPromptTemplate, documentType,
		clipAt(cleanSourceText(documentText), maxSummaryContextChars))

	res, err := g.gen.GenerateContent(ctx, prompt, core.GenConfig{
		Temperature:     summaryTemperature,
		MaxOutputTokens: maxAnswerTokens,
	})
	text := cleanResponse(g.normalize(res, err))

	return &Summary{
		Summary:    text,
		KeyPoints:  extractBullets(text, 10),
		Confidence: scoreConfidence(text),
		Model:      g.gen.ModelName(),
	}
}

// CompareDocuments runs the comparison prompt over two documents and parses
// the labelled difference, similarity and recommendation lines out of the
// prose response.
func (g *Gateway) CompareDocuments(ctx context.Context, text1, text2, name1, name2 string) *ComparisonReport {
	prompt := fmt.Sprintf(comparePromptTemplate,
		name1, clipAt(cleanSourceText(text1), maxCompareContextChars),
		name2, clipAt(cleanSourceText(text2), maxCompareContextChars))

	res, err := g.gen.GenerateContent(ctx, prompt, core.GenConfig{
		Temperature:     compareTemperature,
		MaxOutputTokens: maxAnswerTokens,
	})
	summary := cleanResponse(g.normalize(res, err))

	return &ComparisonReport{
		Summary:         summary,
		KeyDifferences:  extractLabelled(differenceRe, summary, 10),
		Similarities:    extractLabelled(similarityRe, summary, 10),
		Recommendations: extractRecommendations(summary),
		Model:           g.gen.ModelName(),
	}
}

// normalize flattens the provider's response shapes into one string. Three
// shapes occur in practice: direct candidate text, part lists that need
// concatenation, and token-limited partials. Anything else collapses to a
// templated stop message, and transport errors to a standing apology.
func (g *Gateway) normalize(res *core.GenResult, err error) string {
	if err != nil {
		log.Printf("gateway: generation failed: %v", err)
		return apologyText
	}
	if res == nil || len(res.Candidates) == 0 {
		log.Printf("gateway: empty response from %s", g.gen.ModelName())
		return apologyText
	}

	cand := res.Candidates[0]
	text := cand.Text
	if text == "" && len(cand.Parts) > 0 {
		text = strings.Join(cand.Parts, "")
	}
	text = strings.TrimSpace(text)

	switch cand.FinishReason {
	case "", "STOP":
		if text == "" {
			return apologyText
		}
		return text
	case "MAX_TOKENS":
		// partial output is still useful; surface it with a notice
		if text == "" {
			return apologyText
		}
		return text + truncationNotice
	default:
		log.Printf("gateway: generation stopped early (%s)", cand.FinishReason)
		return fmt.Sprintf(
			"The response was stopped before completion (reason: %s). Please rephrase your question and try again.",
			cand.FinishReason)
	}
}

var (
	markdownEmphasisRe = regexp.MustCompile(`\*{1,2}([^*]+)\*{1,2}`)
	markdownHeadingRe  = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	blankRunRe         = regexp.MustCompile(`\n{3,}`)

	highRiskRe = regexp.MustCompile(`(?i)\b(high|severe|critical)\b`)
	lowRiskRe  = regexp.MustCompile(`(?i)\b(low|minimal|minor)\b`)
	overallRe  = regexp.MustCompile(`(?i)overall[^.\n]*\b(high|medium|low|severe|critical|minimal|minor)\b`)

	recommendationRe = regexp.MustCompile(`(?i)(?:recommend|suggest|advise|consider)[^.!?\n]*[.!?]`)
	bulletRe         = regexp.MustCompile(`(?m)^\s*(?:[-*\x{2022}]|\d+[.)])\s+(.+)$`)

	differenceRe = regexp.MustCompile(`(?im)^\s*(?:[-*\x{2022}]\s*)?difference:\s*(.+)$`)
	similarityRe = regexp.MustCompile(`(?im)^\s*(?:[-*\x{2022}]\s*)?similarity:\s*(.+)$`)

	lowConfidenceRe = regexp.MustCompile(`(?i)(not (?:mentioned|specified|stated|found|addressed)|cannot find|does not (?:contain|address|mention)|no information|unable to)`)
	evidenceRe      = regexp.MustCompile(`["\x{201c}\x{201d}]|\d`)

	pdfNoiseRe   = regexp.MustCompile(`/[A-Za-z0-9#+.\-]+|<<\s*>>|\[\s*\]`)
	pdfKeywordRe = regexp.MustCompile(`\b(?:obj|endobj|stream|endstream|xref|startxref|trailer)\b`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
)

// cleanSourceText scrubs residual PDF syntax out of the text spliced into a
// prompt and collapses whitespace runs. The same half-length guard as
// cleanResponse applies: when scrubbing would eat most of the text, the
// original is kept.
func cleanSourceText(text string) string {
	cleaned := pdfNoiseRe.ReplaceAllString(text, " ")
	cleaned = pdfKeywordRe.ReplaceAllString(cleaned, " ")
	cleaned = spaceRunRe.ReplaceAllString(cleaned, " ")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned)*2 < len(text) {
		return text
	}
	return cleaned
}

// cleanResponse strips markdown decoration the model tends to emit. The
// cleaned text is only kept when it retains at least half the original
// length; aggressive stripping that eats real content is discarded.
func cleanResponse(text string) string {
	cleaned := markdownEmphasisRe.ReplaceAllString(text, "$1")
	cleaned = markdownHeadingRe.ReplaceAllString(cleaned, "")
	cleaned = blankRunRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned)*2 < len(text) {
		return strings.TrimSpace(text)
	}
	return cleaned
}

// scoreConfidence is a cheap lexical heuristic. Answers admitting the
// document lacks the information score 0.35, substantial answers carrying
// quotes or figures score 0.8, everything else 0.6.
func scoreConfidence(answer string) float64 {
	if lowConfidenceRe.MatchString(answer) {
		return 0.35
	}
	if len(answer) > 200 && evidenceRe.MatchString(answer) {
		return 0.8
	}
	return 0.6
}

// detectRiskLevel reads the overall verdict out of the analysis, preferring
// an explicit "overall ..." statement over scattered keyword hits.
func detectRiskLevel(analysis string) string {
	if m := overallRe.FindStringSubmatch(analysis); m != nil {
		return canonicalLevel(m[1])
	}
	if highRiskRe.MatchString(analysis) {
		return "High"
	}
	if lowRiskRe.MatchString(analysis) {
		return "Low"
	}
	return "Medium"
}

func canonicalLevel(word string) string {
	switch strings.ToLower(word) {
	case "high", "severe", "critical":
		return "High"
	case "low", "minimal", "minor":
		return "Low"
	default:
		return "Medium"
	}
}

func severityFor(level string) float64 {
	switch level {
	case "High":
		return 8.5
	case "Low":
		return 2.5
	default:
		return 5.0
	}
}

// extractRiskFactors collects the bulleted findings, capped at ten.
func extractRiskFactors(analysis string) []string {
	return extractBullets(analysis, 10)
}

func extractBullets(text string, max int) []string {
	var items []string
	for _, m := range bulletRe.FindAllStringSubmatch(text, -1) {
		item := strings.TrimSpace(m[1])
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == max {
			break
		}
	}
	return items
}

// extractLabelled pulls the payload of lines the comparison prompt asks the
// model to prefix, e.g. "Difference: ..." or "Similarity: ...".
func extractLabelled(re *regexp.Regexp, text string, max int) []string {
	var items []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if item := strings.TrimSpace(m[1]); item != "" {
			items = append(items, item)
		}
		if len(items) == max {
			break
		}
	}
	return items
}

// extractRecommendations pulls sentences opening with an advisory verb,
// capped at five.
func extractRecommendations(analysis string) []string {
	var recs []string
	for _, m := range recommendationRe.FindAllString(analysis, -1) {
		recs = append(recs, strings.TrimSpace(m))
		if len(recs) == 5 {
			break
		}
	}
	return recs
}

func truncateContext(text string) string {
	if len(text) <= maxPromptContextChars {
		return text
	}
	return clipAt(text, maxPromptContextChars) + "\n\n[document text truncated]"
}

// clipAt cuts text to at most max bytes, backing up so the cut never lands
// inside a multibyte rune.
func clipAt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}
