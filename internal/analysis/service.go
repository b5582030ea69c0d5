// Package analysis asks a language model for a perfumer's reading of a
// formula: the resulting scent, notable ingredient interactions, and
// longevity and projection estimates.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ziadkadry99/formula-canvas/internal/llm"
	"github.com/ziadkadry99/formula-canvas/internal/metrics"
)

const systemPrompt = `You are an expert master perfumer with a deep understanding of fragrance chemistry and artistry. A user is building a formula on an interactive canvas. Analyze the provided list of ingredients and their concentrations.`

const instructions = `Based on this formula, provide a detailed analysis. Your analysis must include:
1. final_scent_profile: a rich, evocative description of what the final fragrance will smell like. Markdown is allowed.
2. ingredient_interactions: key interactions between pairs or groups of ingredients, each as {"ingredients": [names], "effect": text}. Note both synergies (e.g. a new accord) and problems (e.g. Schiff bases, overpowering notes).
3. longevity_estimate: exactly one of "Short (1-3 hours)", "Moderate (4-6 hours)", "Long (7+ hours)".
4. projection_estimate: exactly one of "Intimate", "Moderate", "Strong".

Respond with a single JSON object with exactly those four keys.`

// Service runs analyses against an LLM provider.
type Service struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
	md       goldmark.Markdown
}

// NewService creates a Service. A zero timeout means 60s.
func NewService(provider llm.Provider, model string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		provider: provider,
		model:    model,
		timeout:  timeout,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
		),
	}
}

// Analyze requests an analysis of the ingredients with a positive
// concentration, in the given order.
func (s *Service) Analyze(ctx context.Context, formulaID string, ingredients []Ingredient) (*Record, error) {
	var req []Ingredient
	for _, ing := range ingredients {
		if ing.Concentration > 0 && !math.IsInf(ing.Concentration, 0) {
			req = append(req, ing)
		}
	}
	if len(req) == 0 {
		metrics.AnalysisRequests.WithLabelValues("empty").Inc()
		return nil, ErrEmptyFormula
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildPrompt(req)},
		},
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		metrics.AnalysisRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("requesting analysis from %s: %w", s.provider.Name(), err)
	}

	res, err := parseResult(resp.Content)
	if err != nil {
		metrics.AnalysisRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}
	res.ProfileHTML, err = s.render(res.FinalScentProfile)
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = s.model
	}
	metrics.AnalysisRequests.WithLabelValues("ok").Inc()
	return &Record{
		FormulaID:    formulaID,
		Request:      req,
		Result:       *res,
		Provider:     s.provider.Name(),
		Model:        model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      resp.Cost(model),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func buildPrompt(ings []Ingredient) string {
	var b strings.Builder
	b.WriteString("Ingredients:\n")
	for _, ing := range ings {
		fmt.Fprintf(&b, "- %s: %s%%\n", ing.Name, strconv.FormatFloat(ing.Concentration, 'f', -1, 64))
	}
	b.WriteString("\n")
	b.WriteString(instructions)
	return b.String()
}

// parseResult decodes and validates the model's JSON. Models sometimes wrap
// JSON in a code fence even in JSON mode.
func parseResult(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var res Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(res.FinalScentProfile) == "" {
		return nil, fmt.Errorf("%w: missing final_scent_profile", ErrInvalidResponse)
	}
	if !res.Longevity.Valid() {
		return nil, fmt.Errorf("%w: longevity_estimate %q", ErrInvalidResponse, res.Longevity)
	}
	if !res.Projection.Valid() {
		return nil, fmt.Errorf("%w: projection_estimate %q", ErrInvalidResponse, res.Projection)
	}
	if res.Interactions == nil {
		res.Interactions = []Interaction{}
	}
	return &res, nil
}

func (s *Service) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering scent profile: %w", err)
	}
	return buf.String(), nil
}
