package tool

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registration pairs a capability name with its description.
type Registration struct {
	Name        string
	Description string
}

// Registry holds named capabilities.
// It is instance-based (not global) for better testability.
// The last registration under a name wins; listing order follows the
// first registration of each name.
type Registry struct {
	mu    sync.RWMutex
	caps  map[string]Capability
	descs map[string]string
	order []string
}

// NewRegistry creates a registry pre-populated with the built-in
// capabilities for the given configuration.
func NewRegistry(cfg BuiltinConfig) *Registry {
	r := NewEmptyRegistry()
	registerBuiltins(r, cfg)
	return r
}

// NewEmptyRegistry creates a registry with no capabilities.
func NewEmptyRegistry() *Registry {
	return &Registry{
		caps:  make(map[string]Capability),
		descs: make(map[string]string),
	}
}

// Register adds a capability under the given name. Registering a name
// again replaces the capability and description but keeps the name's
// original position in List.
func (r *Registry) Register(name string, c Capability, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyToolName
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrNilCapability, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caps[name]; !exists {
		r.order = append(r.order, name)
	}
	r.caps[name] = c
	r.descs[name] = description
	return nil
}

// Resolve returns the capability registered under name.
func (r *Registry) Resolve(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.caps[name]
	return c, ok
}

// List returns all registrations in first-registration order.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := make([]Registration, 0, len(r.order))
	for _, name := range r.order {
		regs = append(regs, Registration{Name: name, Description: r.descs[name]})
	}
	return regs
}

// Describe returns a name to description map, the shape generation
// backends expect when advertising tools in a prompt.
func (r *Registry) Describe() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make(map[string]string, len(r.descs))
	for name, desc := range r.descs {
		descs[name] = desc
	}
	return descs
}

// Names returns all registered names in first-registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}
