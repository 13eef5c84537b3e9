// logger.go records every language-model exchange through applog
// under the "ai" category. Prompts are logged at debug level only.
package ai

import (
	"context"
	"time"

	"github.com/mvrodados/mvrodados/applog"
)

type loggingProvider struct {
	next Provider
}

// WithLogging wraps p so each Chat call is logged with its latency.
func WithLogging(p Provider) Provider {
	if _, ok := p.(*loggingProvider); ok {
		return p
	}
	return &loggingProvider{next: p}
}

func (l *loggingProvider) Name() string { return l.next.Name() }

func (l *loggingProvider) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	LogAIRequest(l.next.Name(), messages, opts)
	start := time.Now()
	reply, err := l.next.Chat(ctx, messages, opts)
	LogAIResponse(l.next.Name(), reply, time.Since(start), err)
	return reply, err
}

// LogAIRequest logs an outgoing completion request.
func LogAIRequest(provider string, messages []Message, opts Options) {
	applog.Event("ai", "request",
		"provider", provider,
		"messages", len(messages),
		"temperature", opts.Temperature,
		"max_tokens", opts.MaxTokens,
	)
	for _, m := range messages {
		applog.Debug("ai prompt", "role", m.Role, "content", m.Content)
	}
}

// LogAIResponse logs a completion result.
func LogAIResponse(provider, reply string, elapsed time.Duration, err error) {
	if err != nil {
		applog.Event("ai", "request failed", "provider", provider, "elapsed", elapsed, "err", err)
		return
	}
	applog.Event("ai", "response", "provider", provider, "elapsed", elapsed, "chars", len(reply))
	applog.Debug("ai reply", "content", reply)
}
