// Package observe provides application-wide observability primitives for
// riftcoach: OpenTelemetry metrics plus a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping on /metrics via [InitProvider]. A package-level default [Metrics]
// instance ([Default]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all riftcoach metrics.
const meterName = "github.com/riftcoach/riftcoach"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// GenerationDuration tracks LLM commentary generation latency.
	GenerationDuration metric.Float64Histogram

	// SynthesisDuration tracks TTS synthesis latency. Attribute:
	//   attribute.String("provider", ...)
	SynthesisDuration metric.Float64Histogram

	// PlaybackDuration tracks local audio playback duration.
	PlaybackDuration metric.Float64Histogram

	// --- Counters ---

	// SnapshotTicks counts snapshots fed through the diff engine.
	SnapshotTicks metric.Int64Counter

	// DomainEvents counts detected domain events. Attribute:
	//   attribute.String("kind", ...)
	DomainEvents metric.Int64Counter

	// Commentaries counts spoken commentary lines. Attributes:
	//   attribute.String("category", ...), attribute.String("source", "llm"|"pool")
	Commentaries metric.Int64Counter

	// CacheHits and CacheMisses count synthesis cache lookups.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// --- Error counters ---

	// GenerationErrors counts failed LLM generation attempts.
	GenerationErrors metric.Int64Counter

	// SynthesisErrors counts failed TTS synthesis attempts. Attribute:
	//   attribute.String("provider", ...)
	SynthesisErrors metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of utterances pending in the speech queue.
	QueueDepth metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote generation and synthesis calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GenerationDuration, err = m.Float64Histogram("riftcoach.generation.duration",
		metric.WithDescription("Latency of LLM commentary generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("riftcoach.synthesis.duration",
		metric.WithDescription("Latency of TTS synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("riftcoach.playback.duration",
		metric.WithDescription("Duration of local audio playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.SnapshotTicks, err = m.Int64Counter("riftcoach.snapshot.ticks",
		metric.WithDescription("Snapshots processed by the diff engine."),
	); err != nil {
		return nil, err
	}
	if met.DomainEvents, err = m.Int64Counter("riftcoach.events.detected",
		metric.WithDescription("Domain events detected, by kind."),
	); err != nil {
		return nil, err
	}
	if met.Commentaries, err = m.Int64Counter("riftcoach.commentary.spoken",
		metric.WithDescription("Commentary lines spoken, by category and source."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("riftcoach.cache.hits",
		metric.WithDescription("Synthesis cache hits."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("riftcoach.cache.misses",
		metric.WithDescription("Synthesis cache misses."),
	); err != nil {
		return nil, err
	}
	if met.GenerationErrors, err = m.Int64Counter("riftcoach.generation.errors",
		metric.WithDescription("Failed LLM generation attempts."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("riftcoach.synthesis.errors",
		metric.WithDescription("Failed TTS synthesis attempts."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("riftcoach.queue.depth",
		metric.WithDescription("Utterances pending in the speech queue."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide [Metrics] instance, creating it on first
// use from the global OTel meter provider. [InitProvider] must have been
// called first for the instruments to be exported.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Instrument creation only fails on malformed names; fall back to
			// no-op instruments rather than propagating an error this deep.
			m, _ = NewMetrics(noop.NewMeterProvider())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
