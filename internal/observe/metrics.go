// Package observe provides OpenTelemetry metrics for go-gesture.
//
// Instruments are created from a [metric.MeterProvider]. [InitProvider]
// installs an SDK provider backed by a Prometheus exporter so the dashboard
// can serve /metrics. Tests should use [NewMetrics] with a provider built on
// a ManualReader.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/teslashibe/go-gesture"

// Inference outcomes recorded on InferenceRequests.
const (
	OutcomeOK        = "ok"
	OutcomeServer    = "server_error"
	OutcomeTransport = "transport_error"
)

// Metrics holds all metric instruments for the capture pipeline.
type Metrics struct {
	// SamplesTaken counts samples appended to a window.
	SamplesTaken metric.Int64Counter

	// TicksSkipped counts sampler ticks dropped while idle.
	TicksSkipped metric.Int64Counter

	// WindowsCompleted counts windows handed to the classifier.
	WindowsCompleted metric.Int64Counter

	// WindowCollection tracks the wall time taken to fill one window.
	WindowCollection metric.Float64Histogram

	// InferenceDuration tracks classifier round-trip latency.
	InferenceDuration metric.Float64Histogram

	// InferenceRequests counts classifier calls. Attribute: outcome.
	InferenceRequests metric.Int64Counter

	// SensorGaps counts channels sampled before their first device event.
	// Attribute: channel.
	SensorGaps metric.Int64Counter

	// EventsDropped counts device events rejected or dropped before the
	// engine saw them. Attribute: reason.
	EventsDropped metric.Int64Counter

	// DeviceMessages counts websocket messages from device bridges.
	// Attribute: type.
	DeviceMessages metric.Int64Counter

	// ConnectedDevices tracks live device bridge connections.
	ConnectedDevices metric.Int64UpDownCounter
}

// collectionBuckets covers windows of a few hundred milliseconds up to
// stalled feeds; 130 samples at 50 Hz is 2.6 s.
var collectionBuckets = []float64{0.5, 1, 2, 2.5, 2.6, 2.75, 3, 4, 6, 10}

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SamplesTaken, err = m.Int64Counter("gesture.samples",
		metric.WithDescription("Samples appended to a window."),
	); err != nil {
		return nil, err
	}
	if met.TicksSkipped, err = m.Int64Counter("gesture.ticks.skipped",
		metric.WithDescription("Sampler ticks dropped while collection was idle."),
	); err != nil {
		return nil, err
	}
	if met.WindowsCompleted, err = m.Int64Counter("gesture.windows",
		metric.WithDescription("Completed windows handed to the classifier."),
	); err != nil {
		return nil, err
	}
	if met.WindowCollection, err = m.Float64Histogram("gesture.window.collection",
		metric.WithDescription("Time taken to fill one window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(collectionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceDuration, err = m.Float64Histogram("gesture.inference.duration",
		metric.WithDescription("Classifier round-trip latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceRequests, err = m.Int64Counter("gesture.inference.requests",
		metric.WithDescription("Classifier requests by outcome."),
	); err != nil {
		return nil, err
	}
	if met.SensorGaps, err = m.Int64Counter("gesture.sensor.gaps",
		metric.WithDescription("Channels sampled before any device event arrived."),
	); err != nil {
		return nil, err
	}
	if met.EventsDropped, err = m.Int64Counter("gesture.events.dropped",
		metric.WithDescription("Device events rejected or dropped by reason."),
	); err != nil {
		return nil, err
	}
	if met.DeviceMessages, err = m.Int64Counter("gesture.device.messages",
		metric.WithDescription("Websocket messages received from device bridges."),
	); err != nil {
		return nil, err
	}
	if met.ConnectedDevices, err = m.Int64UpDownCounter("gesture.device.connected",
		metric.WithDescription("Live device bridge connections."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built from the global
// meter provider. Panics if instrument creation fails.
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

// RecordInference records one classifier round trip.
func (m *Metrics) RecordInference(ctx context.Context, outcome string, seconds float64) {
	m.InferenceRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.InferenceDuration.Record(ctx, seconds)
}

// RecordSensorGap records a channel that had never fired when sampled.
func (m *Metrics) RecordSensorGap(ctx context.Context, channel string) {
	m.SensorGaps.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}

// RecordDropped records a device event that never reached the cache.
func (m *Metrics) RecordDropped(ctx context.Context, reason string) {
	m.EventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordDeviceMessage records one inbound device message by type.
func (m *Metrics) RecordDeviceMessage(ctx context.Context, msgType string) {
	m.DeviceMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("type", msgType)))
}
