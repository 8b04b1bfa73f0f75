// Package memory implements storage.Backend by keeping the whole match in
// memory and exporting it to a file when the match ends.
package memory

import (
	"errors"

	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/internal/config"
	v1 "github.com/abporter521/CS3500-TankWars/internal/storage/memory/export/v1"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// ErrNoMatch is returned when events arrive before StartMatch.
var ErrNoMatch = errors.New("no match started")

// Backend stores match data in memory and exports it on EndMatch
type Backend struct {
	cfg config.MemoryConfig

	mu       deadlock.RWMutex
	data     *v1.MatchData
	playerID uint

	lastExportPath     string
	lastExportMetadata core.UploadMetadata
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match, dropping anything recorded before.
func (b *Backend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = &v1.MatchData{Match: *m}
	b.playerID = 0
	return nil
}

// EndMatch stamps the end time when the caller has not and writes the export.
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.data == nil {
		return ErrNoMatch
	}
	return b.export()
}

// AddPlayer registers a player and assigns its ID.
func (b *Backend) AddPlayer(p *core.Player) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.data == nil {
		return ErrNoMatch
	}
	b.playerID++
	p.ID = b.playerID
	b.data.Players = append(b.data.Players, *p)
	return nil
}

func (b *Backend) RecordShot(e *core.ShotEvent) error {
	return b.record(func(d *v1.MatchData) { d.Shots = append(d.Shots, *e) })
}

func (b *Backend) RecordHit(e *core.HitEvent) error {
	return b.record(func(d *v1.MatchData) { d.Hits = append(d.Hits, *e) })
}

func (b *Backend) RecordKill(e *core.KillEvent) error {
	return b.record(func(d *v1.MatchData) { d.Kills = append(d.Kills, *e) })
}

func (b *Backend) RecordBeam(e *core.BeamEvent) error {
	return b.record(func(d *v1.MatchData) { d.Beams = append(d.Beams, *e) })
}

func (b *Backend) RecordPowerUp(e *core.PowerUpEvent) error {
	return b.record(func(d *v1.MatchData) { d.PowerUps = append(d.PowerUps, *e) })
}

func (b *Backend) RecordLifecycle(e *core.LifecycleEvent) error {
	return b.record(func(d *v1.MatchData) { d.Lifecycle = append(d.Lifecycle, *e) })
}

func (b *Backend) RecordTickStats(s *core.TickStats) error {
	return b.record(func(d *v1.MatchData) { d.TickStats = append(d.TickStats, *s) })
}

func (b *Backend) record(fn func(*v1.MatchData)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return ErrNoMatch
	}
	fn(b.data)
	return nil
}

// Counts reports how many events of each kind are held, keyed by kind.
func (b *Backend) Counts() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return map[string]int{}
	}
	d := b.data
	return map[string]int{
		"players":   len(d.Players),
		"shots":     len(d.Shots),
		"hits":      len(d.Hits),
		"kills":     len(d.Kills),
		"beams":     len(d.Beams),
		"powerUps":  len(d.PowerUps),
		"lifecycle": len(d.Lifecycle),
		"tickStats": len(d.TickStats),
	}
}

// GetExportedFilePath returns the path of the last export, or "".
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}
