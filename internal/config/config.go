package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/formula-canvas/internal/llm"
)

const envPrefix = "FORMULACANVAS_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (FORMULACANVAS_*). A double underscore
// descends into a section: FORMULACANVAS_CANVAS__MAX_ZOOM -> canvas.max_zoom.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderGoogle:     true,
	ProviderOpenAI:     true,
	ProviderAnthropic:  true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of %s", c.Provider, strings.Join(llm.Providers, ", "))
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	cv := c.Canvas
	if cv.MinZoom <= 0 || cv.MaxZoom < cv.MinZoom {
		return fmt.Errorf("canvas zoom bounds invalid: min %.2f, max %.2f", cv.MinZoom, cv.MaxZoom)
	}
	if cv.GroupPadding <= 0 {
		return fmt.Errorf("canvas.group_padding must be positive")
	}
	if cv.CascadeStep <= 0 {
		return fmt.Errorf("canvas.cascade_step must be positive")
	}
	if cv.CascadeWrap <= 0 {
		return fmt.Errorf("canvas.cascade_wrap must be positive")
	}
	if cv.DefaultStrength < 0 || cv.DefaultStrength > 1 {
		return fmt.Errorf("canvas.default_strength must be within [0, 1]")
	}

	if c.Analysis.RequestsPerMinute < 0 {
		return fmt.Errorf("analysis.requests_per_minute must be non-negative")
	}
	if c.Analysis.TimeoutSeconds < 0 {
		return fmt.Errorf("analysis.timeout_seconds must be non-negative")
	}
	return nil
}

// DBPath is the sqlite database file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "formulacanvas.db")
}

// AnalysisTimeout is the per-request analysis deadline.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSeconds) * time.Second
}

// LLM returns the provider selection for llm.NewProvider.
func (c *Config) LLM() llm.Config {
	return llm.Config{Provider: string(c.Provider), Model: c.Model, BaseURL: c.BaseURL}
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGoogle:
		return "GOOGLE_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}
