package llm

import (
	"fmt"
	"os"
)

// Providers lists the supported provider names.
var Providers = []string{"google", "openai", "anthropic", "openrouter", "ollama"}

// DefaultModels is the model each provider uses when none is configured.
var DefaultModels = map[string]string{
	"google":     "gemini-2.0-flash",
	"openai":     "gpt-4o-mini",
	"anthropic":  "claude-haiku-4-5-20251001",
	"openrouter": "google/gemini-2.0-flash-001",
	"ollama":     "llama3.1",
}

// Config selects and configures a provider. API keys come from the
// provider's conventional environment variable.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
}

// NewProvider creates the provider named by cfg.Provider.
func NewProvider(cfg Config) (Provider, error) {
	model := pick(cfg.Model, DefaultModels[cfg.Provider])

	switch cfg.Provider {
	case "google":
		key, err := apiKey("GOOGLE_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewGoogleProvider(key, model, cfg.BaseURL), nil

	case "openai":
		key, err := apiKey("OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAIProvider(key, model, cfg.BaseURL), nil

	case "anthropic":
		key, err := apiKey("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewAnthropicProvider(key, model, cfg.BaseURL), nil

	case "openrouter":
		key, err := apiKey("OPENROUTER_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenRouterProvider(key, model), nil

	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}

func apiKey(env string) (string, error) {
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%s environment variable is not set", env)
	}
	return key, nil
}
