package journal

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/thebtf/moodlens/internal/journal"

// Metrics tracks remote write outcomes.
type Metrics struct {
	writes    metric.Int64Counter
	rollbacks metric.Int64Counter

	totalWrites    atomic.Int64
	totalRollbacks atomic.Int64
	fallbackLoads  atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	RemoteWrites  int64 `json:"remote_writes"`
	Rollbacks     int64 `json:"rollbacks"`
	FallbackLoads int64 `json:"fallback_loads"`
}

// NewMetrics registers the journal instruments on the global meter provider.
func NewMetrics() *Metrics {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	var err error
	m.writes, err = meter.Int64Counter(
		"moodlens.journal.remote_writes_total",
		metric.WithDescription("Remote store writes labeled by operation"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create remote writes counter")
	}

	m.rollbacks, err = meter.Int64Counter(
		"moodlens.journal.rollbacks_total",
		metric.WithDescription("Optimistic updates rolled back after a remote write failed"),
		metric.WithUnit("{rollback}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create rollbacks counter")
	}

	return m
}

// RecordWrite counts a remote write attempt.
func (m *Metrics) RecordWrite(ctx context.Context, op string) {
	m.totalWrites.Add(1)
	if m.writes != nil {
		m.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

// RecordRollback counts a rolled back mutation.
func (m *Metrics) RecordRollback(ctx context.Context, op string) {
	m.totalRollbacks.Add(1)
	if m.rollbacks != nil {
		m.rollbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

// RecordFallbackLoad counts a load that had to use seed data.
func (m *Metrics) RecordFallbackLoad() {
	m.fallbackLoads.Add(1)
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		RemoteWrites:  m.totalWrites.Load(),
		Rollbacks:     m.totalRollbacks.Load(),
		FallbackLoads: m.fallbackLoads.Load(),
	}
}
