package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured is what the placeholder answers with. Callers treat
// it like any other provider failure and use their fallback.
var ErrNotConfigured = errors.New("no hay un proveedor de IA configurado")

// Placeholder stands in when no provider is configured.
type Placeholder struct{}

var _ Provider = (*Placeholder)(nil)

func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

func (p *Placeholder) Name() string {
	return "placeholder"
}

func (p *Placeholder) Chat(ctx context.Context, _ []Message, _ Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrNotConfigured
}
