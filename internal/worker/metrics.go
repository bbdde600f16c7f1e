package worker

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/thebtf/moodlens/internal/worker"

// Metrics holds the HTTP instruments.
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics registers the HTTP instruments on the global meter provider.
func NewMetrics() *Metrics {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	var err error
	m.requests, err = meter.Int64Counter(
		"moodlens.http.requests_total",
		metric.WithDescription("HTTP requests labeled by method, route and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create HTTP requests counter")
	}

	m.duration, err = meter.Float64Histogram(
		"moodlens.http.request_duration_ms",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create HTTP duration histogram")
	}

	return m
}

func (m *Metrics) recordRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	if m.requests != nil {
		m.requests.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}
