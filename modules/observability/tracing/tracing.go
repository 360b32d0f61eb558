// Package tracing turns on distributed tracing for the whole app. It
// installs a global OpenTelemetry tracer provider that batches spans to
// an OTLP/HTTP collector; without this module the otel globals stay
// no-ops and the span calls elsewhere cost nothing.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/engram/internal/core"
	"github.com/flemzord/engram/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface assertions.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module is the observability.tracing module.
type Module struct {
	config   Config
	ratio    float64
	provider *sdktrace.TracerProvider
	logger   *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "observability.tracing",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("observability.tracing: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It builds the exporter and the
// provider but leaves the otel globals alone until Start.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(m.config.Endpoint)}
	if m.config.Insecure != nil && *m.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(m.config.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(m.config.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("observability.tracing: create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("engram"),
		semconv.ServiceVersion(version.String()),
	)

	m.ratio = 1.0
	if m.config.SampleRatio != nil {
		m.ratio = *m.config.SampleRatio
	}

	m.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(m.ratio))),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter. From here on otel.Tracer hands out
// recording tracers.
func (m *Module) Start() error {
	otel.SetTracerProvider(m.provider)
	m.logger.Info("tracing enabled",
		"endpoint", m.config.Endpoint,
		"sample_ratio", m.ratio)
	return nil
}

// Stop implements core.Stopper. It points the otel globals back at a
// no-op provider, then shuts the real one down, which flushes whatever
// the batcher still holds. Spans that fail to export here are logged
// and dropped, they do not fail the shutdown.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	otel.SetTracerProvider(noop.NewTracerProvider())

	if err := m.provider.Shutdown(ctx); err != nil {
		m.logger.Warn("tracing shutdown incomplete", "error", err)
	}
	return nil
}
