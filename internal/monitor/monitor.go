// Package monitor samples the running engine once per interval, keeps a
// human-readable status file current and forwards samples and scores to
// InfluxDB.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/abporter521/CS3500-TankWars/internal/engine"
	"github.com/abporter521/CS3500-TankWars/internal/influx"
	"github.com/abporter521/CS3500-TankWars/internal/match"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// StatsSource is the running simulation.
type StatsSource interface {
	Stats() engine.Stats
}

// WriteDurationSource reports how long the recorder's last DB write took.
type WriteDurationSource interface {
	GetLastDBWriteDuration() time.Duration
}

// PointWriter accepts InfluxDB points.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

var _ PointWriter = (*influx.Manager)(nil)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Engine   StatsSource
	Match    *match.Context
	Recorder WriteDurationSource // optional
	Influx   PointWriter         // optional
	Logger   *slog.Logger

	StatusFile string // "" disables the status file
	Interval   time.Duration
	Now        func() time.Time
}

// Status is one sample of the server state.
type Status struct {
	Time           time.Time      `json:"time"`
	Match          string         `json:"match"`
	Tick           uint64         `json:"tick"`
	Players        int            `json:"players"`
	Projectiles    int            `json:"projectiles"`
	PowerUps       int            `json:"powerUps"`
	QueueLength    int            `json:"queueLength"`
	TickDurationMs float64        `json:"tickDurationMs"`
	LastWriteMs    float64        `json:"lastWriteMs"`
	Scores         map[string]int `json:"scores"`
}

// TickStats converts the sample for InfluxDB.
func (s Status) TickStats() core.TickStats {
	return core.TickStats{
		Time:         s.Time,
		Tick:         s.Tick,
		Players:      s.Players,
		Projectiles:  s.Projectiles,
		PowerUps:     s.PowerUps,
		QueueLength:  s.QueueLength,
		TickDuration: time.Duration(s.TickDurationMs * float64(time.Millisecond)),
	}
}

// Lines renders the sample for the status file.
func (s Status) Lines() []string {
	lines := []string{
		fmt.Sprintf("time:        %s", s.Time.Format(time.RFC3339)),
		fmt.Sprintf("match:       %s", s.Match),
		fmt.Sprintf("tick:        %d (%.2f ms)", s.Tick, s.TickDurationMs),
		fmt.Sprintf("players:     %d", s.Players),
		fmt.Sprintf("projectiles: %d", s.Projectiles),
		fmt.Sprintf("powerups:    %d", s.PowerUps),
		fmt.Sprintf("queue:       %d", s.QueueLength),
		fmt.Sprintf("last write:  %.2f ms", s.LastWriteMs),
	}
	names := make([]string, 0, len(s.Scores))
	for name := range s.Scores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("score %-16s %d", name, s.Scores[name]))
	}
	return lines
}

// Service manages status monitoring
type Service struct {
	deps Dependencies
	log  *slog.Logger

	mu        sync.RWMutex
	isRunning bool
	last      Status
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, log: deps.Logger.With("component", "monitor")}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent sample.
func (s *Service) Last() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Sample reads the current engine state.
func (s *Service) Sample() Status {
	st := s.deps.Engine.Stats()
	out := Status{
		Time:           s.deps.Now(),
		Match:          s.deps.Match.Get().UUID,
		Tick:           st.Tick,
		Players:        st.Players,
		Projectiles:    st.Projectiles,
		PowerUps:       st.PowerUps,
		QueueLength:    st.QueueLength,
		TickDurationMs: float64(st.TickDuration.Microseconds()) / 1000,
		Scores:         st.Scores,
	}
	if s.deps.Recorder != nil {
		out.LastWriteMs = float64(s.deps.Recorder.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return out
}

// Poll takes one sample, writes it out and returns it. Nothing is written
// while no match is running.
func (s *Service) Poll() (Status, error) {
	st := s.Sample()
	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
	if st.Match == "" {
		return st, nil
	}

	var errs []error
	if s.deps.StatusFile != "" {
		if err := writeStatus(s.deps.StatusFile, st); err != nil {
			errs = append(errs, err)
		}
	}
	if s.deps.Influx != nil {
		points := append([]*influxdb2_write.Point{influx.TickStatsPoint(st.Match, st.TickStats())},
			influx.ScorePoints(st.Match, st.Scores, st.Time)...)
		for _, p := range points {
			if err := s.deps.Influx.WritePoint(p); err != nil {
				errs = append(errs, fmt.Errorf("influx: %w", err))
				break
			}
		}
	}
	return st, errors.Join(errs...)
}

// writeStatus replaces path with the sample, as text followed by JSON.
func writeStatus(path string, st Status) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating status dir: %w", err)
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	var body []byte
	for _, line := range st.Lines() {
		body = append(body, line...)
		body = append(body, '\n')
	}
	body = append(body, '\n')
	body = append(body, raw...)
	body = append(body, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return fmt.Errorf("writing status file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if s.deps.Engine == nil || s.deps.Match == nil {
		return errors.New("monitor needs an engine and a match context")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stopChan, s.done)
	return nil
}

func (s *Service) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	s.log.Debug("Starting status monitor", "interval", s.deps.Interval, "statusFile", s.deps.StatusFile)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.Poll(); err != nil {
				s.log.Error("Status poll failed", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
