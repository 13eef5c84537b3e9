package ai

import (
	"context"
	"fmt"

	"github.com/mvrodados/mvrodados/applog"
	"github.com/mvrodados/mvrodados/db"
)

// Interpreter turns a user message into an Intent with one model call.
type Interpreter struct {
	provider Provider
	defaults db.Defaults
}

// NewInterpreter builds an interpreter over p. A nil p behaves like the
// placeholder, so every message goes through the keyword fallback.
func NewInterpreter(p Provider, defaults db.Defaults) *Interpreter {
	if p == nil {
		p = NewPlaceholder()
	}
	return &Interpreter{provider: p, defaults: defaults}
}

var intentOptions = Options{Temperature: 0.1, MaxTokens: 800}

// Interpret always returns a well-formed Intent. Provider errors, replies
// without JSON and invalid shapes fall back to keyword detection.
func (it *Interpreter) Interpret(ctx context.Context, query string, schema db.SchemaMap) Intent {
	prompt := fmt.Sprintf(intentPromptTemplate, db.FormatSchemaContext(schema), query)

	var in Intent
	reply, err := Ask(ctx, it.provider, "", prompt, intentOptions)
	if err == nil {
		in, err = ParseIntent(reply)
	}
	if err != nil {
		applog.Event("ai", "intent fallback", "err", err)
		in = FallbackIntent(query, schema)
	}

	if in.Action.IsDBAction() {
		if len(schema) == 0 {
			// Nothing to validate against; the compiler would reject it anyway.
			return in
		}
		table, ok := schema.Table(in.Table)
		if !ok {
			applog.Event("ai", "intent names unknown table", "table", in.Table)
			return None()
		}
		in.Table = table
	}

	if in.Action == ActionInsert {
		in.Data = it.defaults.Complete(schema[in.Table], in.Data, query, true)
	}
	return in
}
