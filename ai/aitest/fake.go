// Package aitest provides a scripted ai.Provider for tests.
package aitest

import (
	"context"
	"sync"

	"github.com/mvrodados/mvrodados/ai"
)

// Fake returns Replies in order (repeating the last one) or Err.
// It records every call.
type Fake struct {
	mu      sync.Mutex
	Replies []string
	Err     error
	Calls   [][]ai.Message
	Opts    []ai.Options
}

var _ ai.Provider = (*Fake)(nil)

// Reply returns a Fake that always answers s.
func Reply(s string) *Fake { return &Fake{Replies: []string{s}} }

// Failing returns a Fake that always fails with err.
func Failing(err error) *Fake { return &Fake{Err: err} }

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Chat(_ context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.Calls)
	f.Calls = append(f.Calls, messages)
	f.Opts = append(f.Opts, opts)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Replies) == 0 {
		return "", nil
	}
	if n >= len(f.Replies) {
		n = len(f.Replies) - 1
	}
	return f.Replies[n], nil
}

// CallCount returns how many times Chat was called.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
