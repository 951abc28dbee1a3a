package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestObservability_RecordsInstruments(t *testing.T) {
	reader := metric.NewManualReader()
	obs := newWithReader("quote-engine-test", reader)
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	obs.RecordJobProcessed(ctx, "compare-vendor-quotes", "completed")
	obs.RecordJobProcessed(ctx, "compare-vendor-quotes", "completed")
	obs.RecordJobDuration(ctx, "compare-vendor-quotes", 120*time.Millisecond, "completed")
	obs.RecordAnalysis(ctx, 3, false)
	obs.RecordTemplateMapping(ctx, "standard_procurement_v1", true)

	got := collect(t, reader)

	processed, ok := got["jobs.processed"]
	require.True(t, ok)
	sum, ok := processed.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	assert.Contains(t, got, "jobs.duration")
	assert.Contains(t, got, "quotes.vendors_per_analysis")
	assert.Contains(t, got, "quotes.template_mappings")
}

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	obs := &Observability{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		obs.RecordJobProcessed(ctx, "x", "failed")
		obs.RecordJobDuration(ctx, "x", time.Second, "failed")
		obs.RecordAnalysis(ctx, 1, true)
		obs.RecordTemplateMapping(ctx, "t", false)
	})
	assert.NoError(t, obs.Shutdown(ctx))
}
