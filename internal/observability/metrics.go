package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"sales-dashboard/internal/config"
)

// Metrics records HTTP, pipeline and export measurements. Instruments are
// OpenTelemetry instruments read by a Prometheus exporter bound to the
// registry served at /metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	httpRequests     metric.Int64Counter
	httpDuration     metric.Float64Histogram
	httpActive       metric.Int64UpDownCounter
	pipelineRuns     metric.Int64Counter
	pipelineDuration metric.Float64Histogram
	pipelineRows     metric.Int64Histogram
	exports          metric.Int64Counter
	exportBytes      metric.Int64Counter
}

func NewMetrics(cfg config.TelemetryConfig) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(newResource(cfg)),
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter(instrumentationName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

	m := &Metrics{registry: registry, provider: provider}

	if m.httpRequests, err = meter.Int64Counter("http_requests",
		metric.WithDescription("Total number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.httpDuration, err = meter.Float64Histogram("http_request_duration",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.httpActive, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests")); err != nil {
		return nil, err
	}
	if m.pipelineRuns, err = meter.Int64Counter("sales_pipeline_runs",
		metric.WithDescription("Aggregation pipeline runs by outcome")); err != nil {
		return nil, err
	}
	if m.pipelineDuration, err = meter.Float64Histogram("sales_pipeline_duration",
		metric.WithDescription("Aggregation pipeline duration in seconds"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.pipelineRows, err = meter.Int64Histogram("sales_pipeline_filtered_rows",
		metric.WithDescription("Rows left after filtering")); err != nil {
		return nil, err
	}
	if m.exports, err = meter.Int64Counter("sales_exports",
		metric.WithDescription("Export payloads served by format and cache result")); err != nil {
		return nil, err
	}
	if m.exportBytes, err = meter.Int64Counter("sales_export_bytes",
		metric.WithDescription("Bytes of export payloads served"), metric.WithUnit("By")); err != nil {
		return nil, err
	}

	return m, nil
}

// RegisterGauge exposes fn as a plain Prometheus gauge.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

func (m *Metrics) RequestStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.httpActive.Add(ctx, 1)
}

func (m *Metrics) RequestFinished(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_code", status),
	)
	m.httpActive.Add(ctx, -1)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) PipelineRun(ctx context.Context, d time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.pipelineRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if err == nil {
		m.pipelineDuration.Record(ctx, d.Seconds())
		m.pipelineRows.Record(ctx, int64(rows))
	}
}

func (m *Metrics) Export(ctx context.Context, format string, size int, cached bool) {
	if m == nil {
		return
	}
	result := "miss"
	if cached {
		result = "hit"
	}
	m.exports.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("cache", result),
	))
	m.exportBytes.Add(ctx, int64(size), metric.WithAttributes(attribute.String("format", format)))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
