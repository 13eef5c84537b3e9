// ai_config.go holds the AI provider configuration.
//
// AI settings are stored in ~/.mvrodados/config.json alongside the
// database settings. API keys can also be set via environment
// variables (GROQ_API_KEY, OPENAI_API_KEY).
package config

// AIConfig holds the AI provider selection and credentials.
type AIConfig struct {
	Provider string       `json:"provider"` // "groq", "openai", "ollama", "placeholder"
	Groq     GroqConfig   `json:"groq"`
	OpenAI   OpenAIConfig `json:"openai"`
	Ollama   OllamaConfig `json:"ollama"`
}

// GroqConfig holds Groq-specific settings.
type GroqConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model"`
}

// OllamaConfig holds Ollama-specific settings.
type OllamaConfig struct {
	Host  string `json:"host"`
	Model string `json:"model"`
}

// DefaultAIConfig returns the Groq setup the assistant was tuned against.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Provider: "groq",
		Groq: GroqConfig{
			Model:   "llama-3.1-8b-instant",
			BaseURL: "https://api.groq.com/openai/v1",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "llama3.2",
		},
	}
}
