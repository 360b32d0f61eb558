// Package tooltest provides test helpers and mocks for the tool package.
package tooltest

import (
	"context"
	"sync"

	"github.com/flemzord/engram/internal/tool"
)

// MockCapability is a configurable mock implementation of tool.Capability.
// It records every invocation.
type MockCapability struct {
	InvokeFunc func(ctx context.Context, argument string) (string, error)

	mu          sync.Mutex
	InvokeCalls int
	Arguments   []string
}

// Invoke implements tool.Capability.
func (m *MockCapability) Invoke(ctx context.Context, argument string) (string, error) {
	m.mu.Lock()
	m.InvokeCalls++
	m.Arguments = append(m.Arguments, argument)
	m.mu.Unlock()

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, argument)
	}
	return "ok", nil
}

// Calls returns the number of invocations so far.
func (m *MockCapability) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InvokeCalls
}

// LastArgument returns the argument of the most recent invocation,
// or "" when nothing was invoked.
func (m *MockCapability) LastArgument() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Arguments) == 0 {
		return ""
	}
	return m.Arguments[len(m.Arguments)-1]
}

// Echo creates a capability that returns a fixed prefix followed by the
// argument it was invoked with.
func Echo(prefix string) *MockCapability {
	return &MockCapability{
		InvokeFunc: func(_ context.Context, argument string) (string, error) {
			return prefix + argument, nil
		},
	}
}

// Interface guard.
var _ tool.Capability = (*MockCapability)(nil)
