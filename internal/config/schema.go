// Package config reads engram's YAML configuration: file loading with
// ${VAR} expansion, structural checks against the module registry, and
// the resolved module load order.
package config

import "gopkg.in/yaml.v3"

// Config mirrors the top level of engram.yaml.
type Config struct {
	// Version gates the file format. This build reads "1".
	Version string `yaml:"version"`

	// Modules holds one entry per module to load, keyed by registered
	// module ID (e.g. "memory.sqlite"). The value is handed untouched to
	// the module's Configure; modules absent from the map stay unloaded.
	Modules map[string]yaml.Node `yaml:"modules"`
}
