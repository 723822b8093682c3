// Package observability wires OpenTelemetry metrics to a Prometheus endpoint.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ali123/ali123/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const MeterName = "github.com/ali123/ali123"

// InitMetrics installs a global MeterProvider backed by the Prometheus
// exporter and returns the /metrics handler with its shutdown function.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// Metrics holds the pipeline instruments. A nil *Metrics records nothing.
type Metrics struct {
	importsClaimed   metric.Int64Counter
	importsCompleted metric.Int64Counter
	importsFailed    metric.Int64Counter
	processDuration  metric.Float64Histogram
	trackingSynced   metric.Int64Counter
	trackingErrors   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.importsClaimed, err = meter.Int64Counter("ali123_imports_claimed_total",
		metric.WithDescription("Import queue entries claimed for processing.")); err != nil {
		return nil, err
	}
	if m.importsCompleted, err = meter.Int64Counter("ali123_imports_completed_total",
		metric.WithDescription("Import queue entries synced into the catalog.")); err != nil {
		return nil, err
	}
	if m.importsFailed, err = meter.Int64Counter("ali123_imports_failed_total",
		metric.WithDescription("Import queue entries that failed.")); err != nil {
		return nil, err
	}
	if m.processDuration, err = meter.Float64Histogram("ali123_process_queue_duration_seconds",
		metric.WithDescription("Duration of process_queue runs."),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.trackingSynced, err = meter.Int64Counter("ali123_tracking_synced_total",
		metric.WithDescription("Orders marked fulfilled by tracking sync.")); err != nil {
		return nil, err
	}
	if m.trackingErrors, err = meter.Int64Counter("ali123_tracking_errors_total",
		metric.WithDescription("Orders whose tracking lookup or update failed.")); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewGlobalMetrics builds Metrics on the global MeterProvider.
func NewGlobalMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(MeterName))
}

func (m *Metrics) RecordProcessRun(ctx context.Context, stats types.ProcessStats, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.importsClaimed.Add(ctx, int64(stats.Claimed))
	m.importsCompleted.Add(ctx, int64(stats.Completed))
	m.importsFailed.Add(ctx, int64(stats.Failed))
	m.processDuration.Record(ctx, elapsed.Seconds())
}

func (m *Metrics) RecordTrackingSync(ctx context.Context, stats types.TrackingSyncStats) {
	if m == nil {
		return
	}
	m.trackingSynced.Add(ctx, int64(stats.Synced))
	m.trackingErrors.Add(ctx, int64(stats.Errors))
}
