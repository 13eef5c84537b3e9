package ai

import (
	"fmt"

	"github.com/mvrodados/mvrodados/config"
)

// SupportedProviders lists available provider names for display.
var SupportedProviders = []string{"groq", "openai", "ollama", "placeholder"}

// NewProvider creates an AI provider from the application config,
// wrapped so every call is logged.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case "groq", "":
		if cfg.Groq.APIKey == "" {
			return nil, fmt.Errorf("Groq API key not set. Set GROQ_API_KEY env var or add it to ~/.mvrodados/config.json")
		}
		p = NewGroq(cfg.Groq.APIKey, cfg.Groq.Model, cfg.Groq.BaseURL)

	case "openai":
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not set. Set OPENAI_API_KEY env var or add it to ~/.mvrodados/config.json")
		}
		p = NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	case "ollama":
		p = NewOllama(cfg.Ollama.Host, cfg.Ollama.Model)

	case "placeholder":
		p = NewPlaceholder()

	default:
		return nil, fmt.Errorf("unknown AI provider %q. Supported: groq, openai, ollama, placeholder", cfg.Provider)
	}
	return WithLogging(p), nil
}
