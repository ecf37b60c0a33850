// Package observe defines the OpenTelemetry instruments recorded by the
// speech engine. Nothing is exported unless the process installs a meter
// provider; tests use [NewMetrics] with an SDK provider and a manual reader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/dgnsrekt/chatvoice"

// Metrics holds the engine's instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// SynthesisDuration tracks offline rendering plus encoding latency.
	SynthesisDuration metric.Float64Histogram

	// CacheLookups counts cache reads. Attribute: result (hit, miss).
	CacheLookups metric.Int64Counter

	// Utterances counts started playback. Attribute: source (cache,
	// synthesis, native, tone).
	Utterances metric.Int64Counter

	// Fallbacks counts descents of the fallback ladder. Attributes: stage,
	// tier.
	Fallbacks metric.Int64Counter

	// Errors counts reported errors. Attributes: kind, stage.
	Errors metric.Int64Counter
}

var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("chatvoice.synthesis.duration",
		metric.WithDescription("Latency of offline rendering and encoding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("chatvoice.cache.lookups",
		metric.WithDescription("Audio cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("chatvoice.utterances",
		metric.WithDescription("Utterances started by audio source."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("chatvoice.fallbacks",
		metric.WithDescription("Fallback ladder descents by failing stage and tier."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("chatvoice.errors",
		metric.WithDescription("Reported errors by kind and stage."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns instruments on the global meter provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSynthesis records a rendering latency for voice.
func (m *Metrics) RecordSynthesis(ctx context.Context, voice string, d time.Duration) {
	m.SynthesisDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("voice", voice)))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordUtterance counts playback started from source.
func (m *Metrics) RecordUtterance(ctx context.Context, source string) {
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordFallback counts a descent from stage to tier.
func (m *Metrics) RecordFallback(ctx context.Context, stage, tier string) {
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("tier", tier),
	))
}

// RecordError counts an error of kind raised at stage.
func (m *Metrics) RecordError(ctx context.Context, kind, stage string) {
	m.Errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("stage", stage),
	))
}
