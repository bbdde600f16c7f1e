package companion

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/thebtf/moodlens/internal/companion"

// Metrics counts companion activity.
type Metrics struct {
	turns     metric.Int64Counter
	proactive metric.Int64Counter
}

// NewMetrics registers the companion instruments on the global meter provider.
func NewMetrics() *Metrics {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	var err error
	m.turns, err = meter.Int64Counter(
		"moodlens.companion.turns_total",
		metric.WithDescription("Chat turns answered, labeled by matched rule"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create chat turns counter")
	}

	m.proactive, err = meter.Int64Counter(
		"moodlens.companion.proactive_total",
		metric.WithDescription("Proactive messages appended to a conversation"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create proactive messages counter")
	}

	return m
}

func (m *Metrics) recordTurn(ctx context.Context, rule string) {
	if m != nil && m.turns != nil {
		m.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
	}
}

func (m *Metrics) recordProactive(ctx context.Context, trigger string) {
	if m != nil && m.proactive != nil {
		m.proactive.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger)))
	}
}
