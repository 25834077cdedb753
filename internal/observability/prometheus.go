// Package observability provides OpenTelemetry metrics with a Prometheus
// scrape endpoint, plus health and readiness handlers for serve mode.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meterName scopes all pulseboard instruments.
const meterName = "pulseboard"

// Prometheus bundles an OTel MeterProvider with the Prometheus registry
// that collects its instruments. Each instance owns an independent
// registry so repeated construction never hits collector conflicts.
type Prometheus struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// NewPrometheus creates a MeterProvider whose instruments are exported
// through a fresh Prometheus registry.
func NewPrometheus() (*Prometheus, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return &Prometheus{provider: provider, registry: registry}, nil
}

// Meter returns the pulseboard-scoped meter.
func (p *Prometheus) Meter() metric.Meter {
	return p.provider.Meter(meterName)
}

// Handler returns the /metrics scrape handler.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the underlying MeterProvider.
func (p *Prometheus) Shutdown(ctx context.Context) error {
	err := p.provider.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}

	return nil
}
