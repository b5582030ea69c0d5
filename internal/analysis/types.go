package analysis

import (
	"errors"
	"time"
)

var (
	// ErrEmptyFormula is returned when no ingredient has a positive
	// concentration.
	ErrEmptyFormula = errors.New("analysis: cannot analyze an empty formula")
	// ErrInvalidResponse is returned when the model's answer does not fit
	// the expected shape.
	ErrInvalidResponse = errors.New("analysis: invalid model response")
	// ErrNotFound is returned for unknown analysis ids.
	ErrNotFound = errors.New("analysis: not found")
)

// Ingredient is one entry of an analysis request.
type Ingredient struct {
	Name          string  `json:"name"`
	Concentration float64 `json:"concentration"`
}

// Interaction describes how a set of ingredients affect each other.
type Interaction struct {
	Ingredients []string `json:"ingredients"`
	Effect      string   `json:"effect"`
}

// Longevity is the estimated time the fragrance lasts on skin.
type Longevity string

const (
	LongevityShort    Longevity = "Short (1-3 hours)"
	LongevityModerate Longevity = "Moderate (4-6 hours)"
	LongevityLong     Longevity = "Long (7+ hours)"
)

// Valid reports whether l is one of the defined estimates.
func (l Longevity) Valid() bool {
	switch l {
	case LongevityShort, LongevityModerate, LongevityLong:
		return true
	}
	return false
}

// Projection is the estimated sillage.
type Projection string

const (
	ProjectionIntimate Projection = "Intimate"
	ProjectionModerate Projection = "Moderate"
	ProjectionStrong   Projection = "Strong"
)

// Valid reports whether p is one of the defined estimates.
func (p Projection) Valid() bool {
	switch p {
	case ProjectionIntimate, ProjectionModerate, ProjectionStrong:
		return true
	}
	return false
}

// Result is the structured scent analysis of a formula.
type Result struct {
	FinalScentProfile string        `json:"final_scent_profile"`
	ProfileHTML       string        `json:"profile_html"`
	Interactions      []Interaction `json:"ingredient_interactions"`
	Longevity         Longevity     `json:"longevity_estimate"`
	Projection        Projection    `json:"projection_estimate"`
}

// Record is a stored analysis.
type Record struct {
	ID           string       `json:"id"`
	FormulaID    string       `json:"formula_id"`
	Request      []Ingredient `json:"request"`
	Result       Result       `json:"result"`
	Provider     string       `json:"provider"`
	Model        string       `json:"model"`
	InputTokens  int          `json:"input_tokens"`
	OutputTokens int          `json:"output_tokens"`
	CostUSD      float64      `json:"cost_usd"`
	CreatedAt    time.Time    `json:"created_at"`
}
