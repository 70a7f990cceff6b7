// Package telemetry provides OpenTelemetry instrumentation for the sync server.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/andestraining/sence-sync-server/sync"
)

// SyncMetrics holds the OpenTelemetry instruments for declaration-sync metrics
type SyncMetrics struct {
	syncDuration      metric.Float64Histogram
	declarationsTotal metric.Int64Counter
	sessionsExpired   metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"sence_sync_duration_seconds",
		metric.WithDescription("Duration of declaration sync cycles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 180, 300),
	)
	if err != nil {
		return nil, err
	}

	declarationsTotal, err := meter.Int64Counter(
		"sence_sync_declarations_total",
		metric.WithDescription("Declaration records processed by reconciliation"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	sessionsExpired, err := meter.Int64Counter(
		"sence_sync_sessions_expired_total",
		metric.WithDescription("Sync sessions purged by the expiry sweeper"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration:      syncDuration,
		declarationsTotal: declarationsTotal,
		sessionsExpired:   sessionsExpired,
	}, nil
}

// RecordSyncDuration records the duration of a sync cycle for a course
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, courseRef string, duration time.Duration, success bool) {
	if m == nil || m.syncDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("course", courseRef),
		attribute.Bool("success", success),
	}

	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordDeclarations records reconciliation outcomes for a batch
func (m *SyncMetrics) RecordDeclarations(ctx context.Context, processed, failed int) {
	if m == nil || m.declarationsTotal == nil {
		return
	}

	m.declarationsTotal.Add(ctx, int64(processed),
		metric.WithAttributes(attribute.String("outcome", "processed")))
	if failed > 0 {
		m.declarationsTotal.Add(ctx, int64(failed),
			metric.WithAttributes(attribute.String("outcome", "failed")))
	}
}

// RecordSessionsExpired records sessions purged by one sweep pass
func (m *SyncMetrics) RecordSessionsExpired(ctx context.Context, count int) {
	if m == nil || m.sessionsExpired == nil || count == 0 {
		return
	}

	m.sessionsExpired.Add(ctx, int64(count))
}
