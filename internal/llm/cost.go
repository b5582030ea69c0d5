package llm

import "strings"

// price is USD per 1M input and output tokens.
type price struct {
	in, out float64
}

var prices = map[string]price{
	"gemini-2.0-flash":     {0.10, 0.40},
	"gemini-2.0-flash-001": {0.10, 0.40},
	"gemini-1.5-pro":       {1.25, 5.00},

	"gpt-4o":      {2.50, 10.00},
	"gpt-4o-mini": {0.15, 0.60},

	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
}

// EstimateCost returns the estimated cost in USD of a completion. OpenRouter
// names ("vendor/model") are priced as the bare model. Unknown and local
// models cost 0.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	if i := strings.LastIndexByte(model, '/'); i >= 0 {
		model = model[i+1:]
	}
	p, ok := prices[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.in + float64(outputTokens)*p.out) / 1_000_000
}

// Cost estimates the cost of a response, falling back to model when the
// provider did not echo one.
func (r *CompletionResponse) Cost(model string) float64 {
	if r.Model != "" {
		model = r.Model
	}
	return EstimateCost(model, r.InputTokens, r.OutputTokens)
}
