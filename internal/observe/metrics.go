// Package observe provides application-wide observability primitives for
// scribe: OpenTelemetry metrics, tracing, trace-aware logging and HTTP
// middleware for the status listener.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that a long batch run
// can be scraped on /metrics. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scribe metrics.
const meterName = "github.com/MrWong99/scribe"

// Drop stages reported on [Metrics.CuesDropped].
const (
	StageConfidence = "confidence"
	StageEmpty      = "empty"
	StageMalformed  = "malformed"
	StageFilter     = "filter"
	StageDedup      = "dedup"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ASRDuration tracks one recognition call. Attributes: provider.
	ASRDuration metric.Float64Histogram

	// VADDuration tracks segmentation of one recording.
	VADDuration metric.Float64Histogram

	// CombineDuration tracks combining one session end to end.
	CombineDuration metric.Float64Histogram

	// --- Counters ---

	// ASRRequests counts recognition calls. Attributes: provider, status.
	ASRRequests metric.Int64Counter

	// CuesKept counts cues written to combined transcripts.
	CuesKept metric.Int64Counter

	// CuesDropped counts cues and raw units discarded. Attributes: stage.
	CuesDropped metric.Int64Counter

	// Sessions counts combine outcomes. Attributes: status.
	Sessions metric.Int64Counter

	// Files counts per-speaker transcriptions. Attributes: status.
	Files metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes.
	// Attributes: provider, to.
	BreakerTransitions metric.Int64Counter

	// --- Gauges ---

	// ActiveSpeakers tracks speakers loaded by combines in progress.
	ActiveSpeakers metric.Int64UpDownCounter

	// ActiveJobs tracks files being transcribed right now.
	ActiveJobs metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// asrBuckets are histogram boundaries in seconds for recognition calls, which
// range from sub-second VAD segments to whole-file runs.
var asrBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ASRDuration, err = m.Float64Histogram("scribe.asr.duration",
		metric.WithDescription("Latency of one speech recognition call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(asrBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VADDuration, err = m.Float64Histogram("scribe.vad.duration",
		metric.WithDescription("Time spent segmenting one recording."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(asrBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CombineDuration, err = m.Float64Histogram("scribe.combine.duration",
		metric.WithDescription("Time spent combining one session."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ASRRequests, err = m.Int64Counter("scribe.asr.requests",
		metric.WithDescription("Speech recognition calls by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.CuesKept, err = m.Int64Counter("scribe.cues.kept",
		metric.WithDescription("Cues written to combined transcripts."),
	); err != nil {
		return nil, err
	}
	if met.CuesDropped, err = m.Int64Counter("scribe.cues.dropped",
		metric.WithDescription("Cues and raw units discarded, by stage."),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64Counter("scribe.sessions",
		metric.WithDescription("Combined sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Files, err = m.Int64Counter("scribe.files",
		metric.WithDescription("Transcribed speaker files by outcome."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("scribe.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by provider and target state."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSpeakers, err = m.Int64UpDownCounter("scribe.speakers.active",
		metric.WithDescription("Speakers held by combines in progress."),
	); err != nil {
		return nil, err
	}
	if met.ActiveJobs, err = m.Int64UpDownCounter("scribe.jobs.active",
		metric.WithDescription("Files being transcribed."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("scribe.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordASR records one recognition call: its latency and a request count
// with status "ok" or "error".
func (m *Metrics) RecordASR(ctx context.Context, provider string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ASRDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("provider", provider)))
	m.ASRRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordDropped adds n to the dropped counter for stage. n <= 0 is ignored.
func (m *Metrics) RecordDropped(ctx context.Context, stage string, n int) {
	if n <= 0 {
		return
	}
	m.CuesDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordSession records a combine outcome ("ok", "empty" or "error").
func (m *Metrics) RecordSession(ctx context.Context, status string) {
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordFile records a per-speaker transcription outcome.
func (m *Metrics) RecordFile(ctx context.Context, status string) {
	m.Files.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordBreaker records a breaker transition of provider into state to.
func (m *Metrics) RecordBreaker(ctx context.Context, provider, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("to", to),
		),
	)
}
