package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// The optional lifecycle interfaces below are discovered by type
// assertion while a module loads. A module implements only the phases
// it needs; a bare Module with none of them is valid.

// Configurable receives the module's raw YAML section right after
// instantiation, before Provision.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner runs after configuration. Modules resolve defaults here,
// open handles, and register the services they expose on the AppContext.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator runs last in the load sequence and must be side-effect
// free; it only judges whether the provisioned state is usable.
type Validator interface {
	Validate() error
}

// Starter begins background work (listeners, goroutines, schedulers)
// once every configured module has loaded.
type Starter interface {
	Start() error
}

// Stopper releases what Start acquired. Shutdown calls Stoppers in
// reverse start order.
type Stopper interface {
	Stop(ctx context.Context) error
}
