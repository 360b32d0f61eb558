package tracing

import "fmt"

// defaultEndpoint is where an OTLP/HTTP collector listens by default.
const defaultEndpoint = "localhost:4318"

// Config holds the exporter and sampling settings.
type Config struct {
	// Endpoint is the OTLP/HTTP collector address as host:port.
	Endpoint string `yaml:"endpoint"`

	// Insecure sends spans over plain HTTP. Defaults to true: the
	// usual target is a collector on localhost.
	Insecure *bool `yaml:"insecure"`

	// SampleRatio is the fraction of new traces to record, between 0
	// and 1. Spans inside an existing trace follow their parent.
	SampleRatio *float64 `yaml:"sample_ratio"`

	// Headers go out with every export request, for collectors that
	// expect an auth token.
	Headers map[string]string `yaml:"headers"`
}

// defaults sets default values for unset fields.
func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.Insecure == nil {
		insecure := true
		c.Insecure = &insecure
	}
	if c.SampleRatio == nil {
		ratio := 1.0
		c.SampleRatio = &ratio
	}
}

// validate returns an error if fields are malformed.
func (c *Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("observability.tracing: endpoint is required")
	}
	if c.SampleRatio != nil && (*c.SampleRatio < 0 || *c.SampleRatio > 1) {
		return fmt.Errorf("observability.tracing: sample_ratio must be between 0 and 1")
	}
	return nil
}
