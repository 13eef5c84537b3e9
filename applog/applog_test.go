package applog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsSecretKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := L()
	SetDefault(&Logger{sugar: zap.New(core).Sugar()})
	defer SetDefault(prev)

	Info("connecting", "user", "sa", "password", "hunter2", "GROQ_API_KEY", "gsk")
	Event("chat", "routed", "route", "intent")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "sa", fields["user"])
		assert.Equal(t, "[REDACTED]", fields["password"])
		assert.Equal(t, "[REDACTED]", fields["GROQ_API_KEY"])
		assert.Equal(t, "chat", entries[1].ContextMap()["category"])
	}
}

func TestNopBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Error("nothing configured", "err", "boom")
		Close()
	})
}
