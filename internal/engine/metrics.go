package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/abporter521/CS3500-TankWars/internal/engine"

type metrics struct {
	ticks        metric.Int64Counter
	tickDuration metric.Float64Histogram
	players      metric.Int64Gauge
	projectiles  metric.Int64Gauge
}

func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.ticks, err = m.Int64Counter("engine.ticks",
		metric.WithDescription("Simulation ticks completed"))
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	out.tickDuration, err = m.Float64Histogram("engine.tick.duration",
		metric.WithDescription("Time spent in one simulation step"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}
	out.players, err = m.Int64Gauge("engine.players",
		metric.WithDescription("Tanks in the world"))
	if err != nil {
		return nil, fmt.Errorf("creating players gauge: %w", err)
	}
	out.projectiles, err = m.Int64Gauge("engine.projectiles",
		metric.WithDescription("Projectiles in flight"))
	if err != nil {
		return nil, fmt.Errorf("creating projectiles gauge: %w", err)
	}
	return out, nil
}

func (m *metrics) record(s *Stats) {
	ctx := context.Background()
	m.ticks.Add(ctx, 1)
	m.tickDuration.Record(ctx, float64(s.TickDuration.Microseconds())/1000)
	m.players.Record(ctx, int64(s.Players))
	m.projectiles.Record(ctx, int64(s.Projectiles))
}
