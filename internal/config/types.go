package config

// ProviderType identifies the LLM provider behind scent analysis.
type ProviderType string

const (
	ProviderGoogle     ProviderType = "google"
	ProviderOpenAI     ProviderType = "openai"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level formula-canvas configuration, corresponding to
// .formulacanvas.yml.
type Config struct {
	Provider        ProviderType   `yaml:"provider" koanf:"provider"`
	Model           string         `yaml:"model" koanf:"model"`
	BaseURL         string         `yaml:"base_url,omitempty" koanf:"base_url"`
	DataDir         string         `yaml:"data_dir" koanf:"data_dir"`
	Port            int            `yaml:"port" koanf:"port"`
	AllowAllOrigins bool           `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Canvas          CanvasConfig   `yaml:"canvas" koanf:"canvas"`
	Analysis        AnalysisConfig `yaml:"analysis" koanf:"analysis"`
}

// CanvasConfig holds editor geometry settings.
type CanvasConfig struct {
	MinZoom         float64 `yaml:"min_zoom" koanf:"min_zoom"`
	MaxZoom         float64 `yaml:"max_zoom" koanf:"max_zoom"`
	GroupPadding    float64 `yaml:"group_padding" koanf:"group_padding"`
	CascadeOriginX  float64 `yaml:"cascade_origin_x" koanf:"cascade_origin_x"`
	CascadeOriginY  float64 `yaml:"cascade_origin_y" koanf:"cascade_origin_y"`
	CascadeStep     float64 `yaml:"cascade_step" koanf:"cascade_step"`
	CascadeWrap     int     `yaml:"cascade_wrap" koanf:"cascade_wrap"`
	DefaultStrength float64 `yaml:"default_strength" koanf:"default_strength"`
}

// AnalysisConfig holds scent-analysis settings.
type AnalysisConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	TimeoutSeconds    int `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}
