package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %q", cfg.Model)
	}
	if cfg.Canvas.MinZoom != 0.5 || cfg.Canvas.MaxZoom != 2.0 {
		t.Errorf("zoom bounds = %v..%v, want 0.5..2", cfg.Canvas.MinZoom, cfg.Canvas.MaxZoom)
	}
	if cfg.Canvas.GroupPadding != 40 {
		t.Errorf("group padding = %v, want 40", cfg.Canvas.GroupPadding)
	}
	if cfg.Analysis.RequestsPerMinute != 20 {
		t.Errorf("requests_per_minute = %d, want 20", cfg.Analysis.RequestsPerMinute)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.formulacanvas.yml")

	original := DefaultConfig()
	original.Provider = ProviderAnthropic
	original.Model = "claude-sonnet-4-5-20250929"
	original.DataDir = "lab"
	original.Port = 9090
	original.Canvas.MaxZoom = 3
	original.Canvas.DefaultStrength = 0.8

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.DataDir != "lab" || loaded.Port != 9090 {
		t.Errorf("data_dir/port: got %q/%d", loaded.DataDir, loaded.Port)
	}
	if loaded.Canvas.MaxZoom != 3 || loaded.Canvas.DefaultStrength != 0.8 {
		t.Errorf("canvas: got %+v", loaded.Canvas)
	}
	if loaded.Canvas.CascadeWrap != 10 {
		t.Errorf("cascade_wrap: got %d, want 10", loaded.Canvas.CascadeWrap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("FORMULACANVAS_PROVIDER", "ollama")
	t.Setenv("FORMULACANVAS_CANVAS__MAX_ZOOM", "4")
	t.Setenv("FORMULACANVAS_ANALYSIS__TIMEOUT_SECONDS", "5")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOllama {
		t.Errorf("env override failed: got %q, want %q", loaded.Provider, ProviderOllama)
	}
	if loaded.Canvas.MaxZoom != 4 {
		t.Errorf("nested env override failed: max_zoom = %v", loaded.Canvas.MaxZoom)
	}
	if loaded.AnalysisTimeout() != 5*time.Second {
		t.Errorf("analysis timeout = %v, want 5s", loaded.AnalysisTimeout())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"unknown provider", func(c *Config) { c.Provider = "minimax" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"inverted zoom", func(c *Config) { c.Canvas.MinZoom, c.Canvas.MaxZoom = 2, 0.5 }},
		{"zero min zoom", func(c *Config) { c.Canvas.MinZoom = 0 }},
		{"zero padding", func(c *Config) { c.Canvas.GroupPadding = 0 }},
		{"negative cascade step", func(c *Config) { c.Canvas.CascadeStep = -30 }},
		{"strength above one", func(c *Config) { c.Canvas.DefaultStrength = 1.5 }},
		{"negative strength", func(c *Config) { c.Canvas.DefaultStrength = -0.1 }},
		{"negative rpm", func(c *Config) { c.Analysis.RequestsPerMinute = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLLMConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = ProviderOllama
	cfg.Model = "llama3.1"
	cfg.BaseURL = "http://gpu:11434"
	lc := cfg.LLM()
	if lc.Provider != "ollama" || lc.Model != "llama3.1" || lc.BaseURL != "http://gpu:11434" {
		t.Errorf("LLM() = %+v", lc)
	}
	if got := cfg.DBPath(); got != filepath.Join(".formulacanvas", "formulacanvas.db") {
		t.Errorf("DBPath() = %q", got)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderGoogle, "GOOGLE_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderOllama, ""},
	}
	for _, tt := range tests {
		if got := APIKeyEnvVar(tt.provider); got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestValidatePort(t *testing.T) {
	for _, s := range []string{"abc", "0", "70000"} {
		if validatePort(s) == nil {
			t.Errorf("validatePort(%q) should fail", s)
		}
	}
	if err := validatePort("8080"); err != nil {
		t.Errorf("validatePort(8080): %v", err)
	}
}
