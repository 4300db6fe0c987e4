// Package telemetry wires Prometheus metrics and OpenTelemetry tracing for
// the engine. Spans are exported over OTLP/gRPC when an endpoint is
// configured; metrics are exposed in Prometheus text format at /metrics.
package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds all configuration for the telemetry provider.
type Config struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`   // gRPC endpoint for the collector
	MetricsEnabled *bool   `json:"metrics_enabled"` // nil = use default (true)
	TracingEnabled *bool   `json:"tracing_enabled"` // nil = use default (true)
	Environment    string  `json:"environment"`
	SampleRate     float64 `json:"sample_rate"` // 0.0 to 1.0
}

func (c *Config) metricsOn() bool {
	if c.MetricsEnabled == nil {
		return true
	}
	return *c.MetricsEnabled
}

func (c *Config) tracingOn() bool {
	if c.TracingEnabled == nil {
		return true
	}
	return *c.TracingEnabled
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "hl7-engine"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// BoolPtr is a helper to create a *bool for Config fields.
func BoolPtr(b bool) *bool {
	return &b
}

// Provider owns the metric registry and the tracer provider.
type Provider struct {
	cfg      Config
	registry *prometheus.Registry
	metrics  *Metrics
	tp       *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New builds the provider. With tracing on and an OTLP endpoint set, spans
// are batched to the collector and the provider becomes the global one.
// Extra options are applied to the tracer provider.
func New(ctx context.Context, cfg Config, extra ...sdktrace.TracerProviderOption) (*Provider, error) {
	cfg.applyDefaults()
	p := &Provider{cfg: cfg, registry: prometheus.NewRegistry()}

	if cfg.metricsOn() {
		p.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		p.metrics = NewMetrics(p.registry)
	}

	if !cfg.tracingOn() {
		p.tracer = noop.NewTracerProvider().Tracer(cfg.ServiceName)
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}
	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	p.tp = sdktrace.NewTracerProvider(append(opts, extra...)...)
	p.tracer = p.tp.Tracer(cfg.ServiceName)

	if cfg.OTLPEndpoint != "" {
		otel.SetTracerProvider(p.tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	}
	return p, nil
}

// Metrics returns the engine metrics, nil when metrics are disabled. All
// Metrics methods accept a nil receiver.
func (p *Provider) Metrics() *Metrics { return p.metrics }

// Registry returns the Prometheus registry the metrics are registered in.
func (p *Provider) Registry() *prometheus.Registry { return p.registry }

// Tracer returns the tracer for engine spans.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp != nil {
		return p.tp.Shutdown(ctx)
	}
	return nil
}
