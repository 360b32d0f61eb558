package gemini

import (
	"fmt"
	"time"
)

// apiKeyEnv is the environment variable consulted when the config does
// not carry an api_key.
const apiKeyEnv = "GEMINI_API_KEY"

// defaultModel is used when the config does not name a model.
const defaultModel = "gemini-2.5-flash"

// Config holds the Gemini backend settings.
type Config struct {
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	MaxOutputTokens int32         `yaml:"max_output_tokens"`
	Temperature     *float64      `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
}

// defaults sets default values for unset fields.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

// validate returns an error if required fields are missing or malformed.
// Runs after Provision, so the env fallback has already been applied.
func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("provider.gemini: api_key is required (set api_key or %s)", apiKeyEnv)
	}
	if c.Model == "" {
		return fmt.Errorf("provider.gemini: model is required")
	}
	if c.MaxOutputTokens < 0 {
		return fmt.Errorf("provider.gemini: max_output_tokens must not be negative")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("provider.gemini: temperature must be between 0 and 2")
	}
	return nil
}
