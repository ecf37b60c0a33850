package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue sums data points carrying attribute key=value.
func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecordCacheLookup(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)

	rm := collect(t, reader)
	if got := counterValue(t, rm, "chatvoice.cache.lookups", "result", "hit"); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
	if got := counterValue(t, rm, "chatvoice.cache.lookups", "result", "miss"); got != 1 {
		t.Errorf("misses = %d, want 1", got)
	}
}

func TestRecordCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordUtterance(ctx, "native")
	m.RecordFallback(ctx, "synthesizing", "native")
	m.RecordError(ctx, "terminal", "fallback")

	rm := collect(t, reader)
	tests := []struct {
		metric, key, value string
	}{
		{"chatvoice.utterances", "source", "native"},
		{"chatvoice.fallbacks", "tier", "native"},
		{"chatvoice.fallbacks", "stage", "synthesizing"},
		{"chatvoice.errors", "kind", "terminal"},
	}
	for _, tt := range tests {
		if got := counterValue(t, rm, tt.metric, tt.key, tt.value); got != 1 {
			t.Errorf("%s{%s=%s} = %d, want 1", tt.metric, tt.key, tt.value, got)
		}
	}
}

func TestRecordSynthesis(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordSynthesis(context.Background(), "alloy", 30*time.Millisecond)

	met := findMetric(collect(t, reader), "chatvoice.synthesis.duration")
	if met == nil {
		t.Fatal("histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("unexpected histogram data: %+v", met.Data)
	}
	if got := hist.DataPoints[0].Sum; got < 0.029 || got > 0.031 {
		t.Errorf("sum = %v, want 0.03", got)
	}
}

func TestDefaultMetricsSingleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
