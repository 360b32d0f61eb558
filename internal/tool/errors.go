package tool

import "errors"

var (
	// ErrUnknownTool is returned when a name is not in the registry.
	// Callers wrap it with the requested name; the resulting text
	// ("unknown tool: <name>") doubles as the displayable response.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrEmptyToolName is returned when registering with an empty name.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrNilCapability is returned when registering a nil capability.
	ErrNilCapability = errors.New("capability must not be nil")
)
