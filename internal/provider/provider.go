// Package provider defines the generation backend boundary.
// Concrete implementations live in separate packages (e.g.,
// provider.gemini) and typically also implement core.Module for
// lifecycle management.
package provider

import "context"

// Generator is the interface to a text-generation backend.
// One Generate call per turn; the orchestrator treats any failure as
// error-turn material, so implementations never retry on their own.
type Generator interface {
	// Generate produces the agent's reply for userInput given the
	// assembled context. When tools is non-empty the backend is
	// instructed that it may answer with a tool-call marker instead
	// of prose.
	Generate(ctx context.Context, userInput, contextStr string, tools map[string]string) (string, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
