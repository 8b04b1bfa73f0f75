// Package worker turns engine events into recorded match data: it keeps the
// player cache current and forwards every event to the storage backend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/cache"
	"github.com/abporter521/CS3500-TankWars/internal/match"
	"github.com/abporter521/CS3500-TankWars/internal/storage"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// ErrTooEarlyForAssociation is returned when an event names a tank whose
// join has not been recorded yet.
var ErrTooEarlyForAssociation = errors.New("too early for player association")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Players *cache.PlayerCache
	Match   *match.Context
	Logger  *slog.Logger
}

// Manager records engine events into a storage backend.
type Manager struct {
	deps    Dependencies
	log     *slog.Logger
	backend storage.Backend
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Players == nil {
		deps.Players = cache.NewPlayerCache()
	}
	if deps.Match == nil {
		deps.Match = match.NewContext()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps:    deps,
		log:     deps.Logger.With("component", "worker"),
		backend: backend,
	}
}

// StartMatch makes m the current match and hands it to the backend. The
// returned copy carries the UUID and the backend-assigned ID.
func (m *Manager) StartMatch(settings core.Match, start time.Time) (core.Match, error) {
	m.deps.Players.Reset()
	cur := m.deps.Match.Begin(settings, start)
	if err := m.backend.StartMatch(&cur); err != nil {
		return cur, fmt.Errorf("start match: %w", err)
	}
	m.deps.Match.SetID(cur.ID)

	attrs := m.deps.Match.LogAttrs(context.Background())
	m.log.LogAttrs(context.Background(), slog.LevelInfo, "Match started",
		append(attrs, slog.Int("walls", len(cur.Walls)))...)
	return cur, nil
}

// EndMatch closes the current match in the backend and returns it together
// with the final scoreboard.
func (m *Manager) EndMatch(end time.Time) (core.Match, map[string]int, error) {
	cur := m.deps.Match.End(end)
	scores := m.deps.Players.Scores()
	if err := m.backend.EndMatch(); err != nil {
		return cur, scores, fmt.Errorf("end match: %w", err)
	}
	m.log.Info("Match ended", "match", cur.UUID, "duration", cur.Duration(), "players", len(scores))
	return cur, scores, nil
}

// Players returns the recorded players ordered by tank id.
func (m *Manager) Players() []core.Player {
	return m.deps.Players.Players()
}

// Scores returns the scoreboard keyed by core.ScoreKey.
func (m *Manager) Scores() map[string]int {
	return m.deps.Players.Scores()
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
