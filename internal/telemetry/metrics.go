package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/funkctl"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Backend API metrics
	APIRequestsTotal   metric.Int64Counter
	APIRequestErrors   metric.Int64Counter
	APIRequestDuration metric.Float64Histogram

	// Poller metrics
	PollTicksTotal      metric.Int64Counter
	ViewLoadsTotal      metric.Int64Counter
	StaleResponsesTotal metric.Int64Counter

	// Upload metrics
	UploadBytesTotal metric.Int64Counter
	UploadsTotal     metric.Int64Counter

	// Alert metrics
	AlertsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.APIRequestsTotal, _ = meter.Int64Counter(
		"funkctl.api.requests.total",
		metric.WithDescription("Total number of backend API requests"),
		metric.WithUnit("{request}"),
	)

	m.APIRequestErrors, _ = meter.Int64Counter(
		"funkctl.api.requests.errors.total",
		metric.WithDescription("Total number of failed backend API requests"),
		metric.WithUnit("{error}"),
	)

	m.APIRequestDuration, _ = meter.Float64Histogram(
		"funkctl.api.requests.duration",
		metric.WithDescription("Duration of backend API requests"),
		metric.WithUnit("ms"),
	)

	m.PollTicksTotal, _ = meter.Int64Counter(
		"funkctl.poller.ticks.total",
		metric.WithDescription("Total number of refresh ticks"),
		metric.WithUnit("{tick}"),
	)

	m.ViewLoadsTotal, _ = meter.Int64Counter(
		"funkctl.poller.loads.total",
		metric.WithDescription("Total number of view loads started"),
		metric.WithUnit("{load}"),
	)

	m.StaleResponsesTotal, _ = meter.Int64Counter(
		"funkctl.poller.stale_responses.total",
		metric.WithDescription("Total number of view responses discarded because a newer one was rendered"),
		metric.WithUnit("{response}"),
	)

	m.UploadBytesTotal, _ = meter.Int64Counter(
		"funkctl.uploads.bytes.total",
		metric.WithDescription("Total number of artifact bytes sent"),
		metric.WithUnit("By"),
	)

	m.UploadsTotal, _ = meter.Int64Counter(
		"funkctl.uploads.total",
		metric.WithDescription("Total number of artifact uploads by outcome"),
		metric.WithUnit("{upload}"),
	)

	m.AlertsTotal, _ = meter.Int64Counter(
		"funkctl.alerts.total",
		metric.WithDescription("Total number of operator alerts by severity"),
		metric.WithUnit("{alert}"),
	)

	return m
}
