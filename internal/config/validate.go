package config

import (
	"errors"
	"fmt"

	"github.com/flemzord/engram/internal/core"
	"gopkg.in/yaml.v3"
)

// Validate checks a Config against the module registry. Every configured
// module ID must be registered; the reverse does not hold, since the
// binary ships optional modules (alternative stores, providers) that a
// deployment leaves out. All problems are reported in one error.
func Validate(cfg *Config) error {
	errs := checkVersion(cfg.Version)
	errs = append(errs, checkModules(cfg.Modules)...)
	return errors.Join(errs...)
}

func checkVersion(v string) []error {
	switch v {
	case "1":
		return nil
	case "":
		return []error{errors.New("config: version is required")}
	default:
		return []error{fmt.Errorf("config: version %q is unsupported (this build reads version \"1\")", v)}
	}
}

func checkModules(mods map[string]yaml.Node) []error {
	if len(mods) == 0 {
		return []error{errors.New("config: at least one module entry is required")}
	}

	var errs []error
	for id := range mods {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: no module registered as %q", id))
		}
	}
	return errs
}
