// Package observability exposes OpenTelemetry instruments through the
// Prometheus exporter so they share the /metrics endpoint with the
// promauto collectors.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"quote-engine/internal/common/logger"
)

type Observability struct {
	meterProvider   *metric.MeterProvider
	jobCounter      otelmetric.Int64Counter
	jobDuration     otelmetric.Float64Histogram
	vendorsAnalyzed otelmetric.Int64Histogram
	mappedQuotes    otelmetric.Int64Counter
}

// New registers the exporter with the default Prometheus registry. On
// failure it returns a no-op instance so callers never need nil checks.
func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("prometheus exporter unavailable, otel metrics disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{}
	}
	return newWithReader(serviceName, exporter)
}

func newWithReader(serviceName string, reader metric.Reader) *Observability {
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	vendorsAnalyzed, _ := meter.Int64Histogram(
		"quotes.vendors_per_analysis",
		otelmetric.WithDescription("Vendor quotes per comparison"),
	)
	mappedQuotes, _ := meter.Int64Counter(
		"quotes.template_mappings",
		otelmetric.WithDescription("Quotes mapped onto an organization template"),
	)

	return &Observability{
		meterProvider:   provider,
		jobCounter:      jobCounter,
		jobDuration:     jobDuration,
		vendorsAnalyzed: vendorsAnalyzed,
		mappedQuotes:    mappedQuotes,
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

// RecordAnalysis tracks the size of a comparison batch.
func (o *Observability) RecordAnalysis(ctx context.Context, vendors int, cacheHit bool) {
	if o.vendorsAnalyzed != nil {
		o.vendorsAnalyzed.Record(ctx, int64(vendors), otelmetric.WithAttributes(
			attribute.Bool("cache_hit", cacheHit),
		))
	}
}

func (o *Observability) RecordTemplateMapping(ctx context.Context, templateID string, needsReview bool) {
	if o.mappedQuotes != nil {
		o.mappedQuotes.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("template_id", templateID),
			attribute.Bool("needs_review", needsReview),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
