// Package tool defines the capability interface and registry through which
// the agent acts outside the conversation. Capabilities are string in,
// string out: the orchestrator hands them the argument text of a tool call
// and records whatever they return as the turn's response.
package tool

import "context"

// Capability is a named action the agent can invoke during a turn.
type Capability interface {
	// Invoke runs the capability with the given argument and returns
	// transcript text. A returned error is rendered as display text by
	// the caller, never propagated past it.
	Invoke(ctx context.Context, argument string) (string, error)
}

// Func adapts a plain function to the Capability interface.
type Func func(ctx context.Context, argument string) (string, error)

// Invoke implements Capability.
func (f Func) Invoke(ctx context.Context, argument string) (string, error) {
	return f(ctx, argument)
}
