package provider

import "errors"

// ErrGeneration indicates the backend call failed. Implementations wrap
// it around the transport or API cause; the orchestrator converts it
// into a recorded error turn rather than propagating it.
var ErrGeneration = errors.New("generation failed")
