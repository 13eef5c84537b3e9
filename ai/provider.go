// Package ai defines the interface for language-model providers and
// turns user messages into structured intents.
//
// Design decisions:
//   - Provider is an interface so we can swap backends (Groq, OpenAI,
//     Ollama, placeholder) without touching the chat pipeline.
//   - All methods accept context for cancellation.
//   - Calls are never retried. A failed call is reported to the caller,
//     which degrades to a deterministic fallback.
package ai

import (
	"context"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Options tunes a single completion. Zero values leave the provider default.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Provider is the interface all AI backends must implement.
type Provider interface {
	// Chat sends a conversation and returns the assistant's reply.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)

	// Name returns the provider name for display.
	Name() string
}

// Ask sends a system prompt and a single user message.
func Ask(ctx context.Context, p Provider, system, user string, opts Options) (string, error) {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: user})
	return p.Chat(ctx, msgs, opts)
}
