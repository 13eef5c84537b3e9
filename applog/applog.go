// Package applog provides general-purpose application logging.
//
// Backed by zap. Until Init is called every call is a no-op, so
// packages can log freely from tests without configuring anything.
// Covers: server start/stop, config, connections, chat routing,
// history persistence and LLM traffic.
package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap SugaredLogger with key/value helpers.
type Logger struct {
	sugar *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	current = &Logger{sugar: zap.NewNop().Sugar()}
)

// New builds a logger for mode ("dev" or "prod"). When file is set,
// output also goes to that file.
func New(mode, file string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// Init installs the process-wide logger.
func Init(mode, file string) error {
	l, err := New(mode, file)
	if err != nil {
		return err
	}
	SetDefault(l)
	return nil
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	mu.Lock()
	current = l
	mu.Unlock()
}

// L returns the process-wide logger.
func L() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(redact(keysAndValues)...)}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, redact(keysAndValues)...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, redact(keysAndValues)...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, redact(keysAndValues)...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, redact(keysAndValues)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

// Info logs a general info message.
func Info(msg string, keysAndValues ...interface{}) { L().Info(msg, keysAndValues...) }

// Warn logs a recoverable problem.
func Warn(msg string, keysAndValues ...interface{}) { L().Warn(msg, keysAndValues...) }

// Error logs an error message.
func Error(msg string, keysAndValues ...interface{}) { L().Error(msg, keysAndValues...) }

// Debug logs verbose diagnostics.
func Debug(msg string, keysAndValues ...interface{}) { L().Debug(msg, keysAndValues...) }

// Event logs a structured event with a category.
func Event(category, msg string, keysAndValues ...interface{}) {
	L().Info(msg, append([]interface{}{"category", category}, keysAndValues...)...)
}

// Close flushes the process-wide logger.
func Close() {
	L().Sync()
}

func redact(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if ok && isSecretKey(strings.ToLower(key)) {
			out[i+1] = "[REDACTED]"
		}
	}
	return out
}

func isSecretKey(key string) bool {
	for _, s := range []string{"password", "api_key", "apikey", "token", "secret", "authorization"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
