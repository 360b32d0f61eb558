package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// varExpr matches ${NAME} and ${NAME:-default}. A default may contain
// any character except an unescaped closing brace.
var varExpr = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the YAML file at path, expands ${VAR} references against the
// process environment, and decodes the result. Unknown top-level keys are
// rejected so a typo like "module:" fails here instead of silently loading
// nothing.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expand %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file. Validate reports the missing fields.
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// expandEnv substitutes every ${NAME} in raw with the environment value,
// or with the ${NAME:-default} fallback when the variable is unset. A
// reference with neither is left in place and reported; all missing names
// are collected so one run surfaces every gap.
func expandEnv(raw []byte) ([]byte, error) {
	var missing []string

	out := varExpr.ReplaceAllFunc(raw, func(ref []byte) []byte {
		groups := varExpr.FindSubmatch(ref)
		name := string(groups[1])

		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		if groups[2] != nil {
			return groups[2]
		}

		missing = append(missing, name)
		return ref
	})

	if len(missing) > 0 {
		return out, fmt.Errorf("no value for: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
