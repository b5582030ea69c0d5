package config

import "github.com/ziadkadry99/formula-canvas/internal/llm"

// DefaultPath is where init writes the configuration and commands look for it.
const DefaultPath = ".formulacanvas.yml"

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Model:    DefaultModel(ProviderOpenAI),
		DataDir:  ".formulacanvas",
		Port:     8080,
		Canvas: CanvasConfig{
			MinZoom:         0.5,
			MaxZoom:         2.0,
			GroupPadding:    40,
			CascadeOriginX:  80,
			CascadeOriginY:  80,
			CascadeStep:     30,
			CascadeWrap:     10,
			DefaultStrength: 0.5,
		},
		Analysis: AnalysisConfig{
			RequestsPerMinute: 20,
			TimeoutSeconds:    60,
		},
	}
}

// DefaultModel returns the model a provider uses when none is configured,
// or "" for an unknown provider.
func DefaultModel(p ProviderType) string {
	return llm.DefaultModels[string(p)]
}
