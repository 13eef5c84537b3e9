package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatible implements Provider for any OpenAI-style
// /chat/completions endpoint. Groq and OpenAI both use it.
type OpenAICompatible struct {
	label   string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ Provider = (*OpenAICompatible)(nil)

// NewGroq creates a Groq provider.
func NewGroq(apiKey, model, baseURL string) *OpenAICompatible {
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return newCompatible("Groq", baseURL, apiKey, model)
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(apiKey, model string) *OpenAICompatible {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return newCompatible("OpenAI", "https://api.openai.com/v1", apiKey, model)
}

func newCompatible(label, baseURL, apiKey, model string) *OpenAICompatible {
	return &OpenAICompatible{
		label:   label,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *OpenAICompatible) Name() string {
	return fmt.Sprintf("%s (%s)", o.label, o.model)
}

func (o *OpenAICompatible) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	body := map[string]interface{}{
		"model":    o.model,
		"messages": messages,
	}
	if opts.Temperature > 0 {
		body["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", strings.ToLower(o.label), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s API error (%d): %s", strings.ToLower(o.label), resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%s parse error: %w", strings.ToLower(o.label), err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", strings.ToLower(o.label))
	}

	return result.Choices[0].Message.Content, nil
}
