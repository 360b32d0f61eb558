package config

import (
	"maps"
	"slices"
)

// Resolve lists the module IDs the config asks for, sorted. Load order
// follows this list, so two runs of the same config always provision
// modules in the same sequence.
func Resolve(cfg *Config) []string {
	return slices.Sorted(maps.Keys(cfg.Modules))
}
