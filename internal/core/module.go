package core

// ModuleID uniquely identifies a module, namespaced with dots
// (e.g. "memory.sqlite", "provider.gemini", "gateway").
type ModuleID string

// ModuleInfo describes a registered module: its ID and a constructor
// returning a fresh, unconfigured instance.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is the minimal interface every module implements.
// Lifecycle behaviour is added through the optional interfaces in
// lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
