package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusExporter collects OTel instruments into a private Prometheus
// registry, for scraping or for a one-shot text dump.
type PrometheusExporter struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
}

// NewPrometheusExporter creates an exporter with its own registry and meter provider.
func NewPrometheusExporter() (*PrometheusExporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &PrometheusExporter{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
	}, nil
}

// Meter returns a meter whose instruments land in this exporter.
func (pe *PrometheusExporter) Meter() metric.Meter {
	return pe.provider.Meter(instrumentationName)
}

// Handler serves the registry as a /metrics scrape endpoint.
func (pe *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(pe.registry, promhttp.HandlerOpts{})
}

// WriteText writes the current values in the Prometheus text exposition format.
func (pe *PrometheusExporter) WriteText(w io.Writer) error {
	families, err := pe.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	return writeFamilies(w, families)
}

// Shutdown releases the meter provider.
func (pe *PrometheusExporter) Shutdown(ctx context.Context) error {
	if err := pe.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown prometheus meter provider: %w", err)
	}

	return nil
}

func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("write %s: %w", family.GetName(), err)
		}
	}

	return nil
}
