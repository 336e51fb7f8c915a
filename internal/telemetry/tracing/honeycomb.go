package tracing

import (
	"github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/otel-config-go/otelconfig"
)

// HoneycombSetup configures the global otel tracer provider to export to honeycomb.
// Exporter settings (API key, endpoint) are read by otelconfig from the OTEL_* / HONEYCOMB_* env vars.
// The returned func flushes and shuts the exporter down.
func HoneycombSetup(serviceName string) (func(), error) {
	return otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
		otelconfig.WithSpanProcessor(honeycomb.NewBaggageSpanProcessor()),
	)
}
