// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/engram/internal/provider"
)

// Call records one Generate invocation.
type Call struct {
	UserInput string
	Context   string
	Tools     map[string]string
}

// MockGenerator is a configurable test double for provider.Generator.
// Responses are consumed in order; when the script runs out the last
// response repeats. All methods are safe for concurrent use.
type MockGenerator struct {
	// GenerateFunc overrides scripted responses when set.
	GenerateFunc func(ctx context.Context, userInput, contextStr string, tools map[string]string) (string, error)

	// Responses is the script consumed by successive Generate calls.
	Responses []string

	// Err, when set, is returned by every Generate call.
	Err error

	// Model is returned by ModelName. Defaults to "mock-model".
	Model string

	mu    sync.Mutex
	calls []Call
}

// Generate implements provider.Generator.
func (m *MockGenerator) Generate(ctx context.Context, userInput, contextStr string, tools map[string]string) (string, error) {
	m.mu.Lock()
	n := len(m.calls)
	m.calls = append(m.calls, Call{UserInput: userInput, Context: contextStr, Tools: tools})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, userInput, contextStr, tools)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	if n >= len(m.Responses) {
		n = len(m.Responses) - 1
	}
	return m.Responses[n], nil
}

// ModelName implements provider.Generator.
func (m *MockGenerator) ModelName() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Calls returns a copy of all recorded invocations.
func (m *MockGenerator) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Generate ran.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent invocation, or a zero Call.
func (m *MockGenerator) LastCall() Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return Call{}
	}
	return m.calls[len(m.calls)-1]
}

// Interface guard.
var _ provider.Generator = (*MockGenerator)(nil)
