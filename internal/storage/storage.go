// Package storage defines the interface every match recorder backend
// implements.
package storage

import "github.com/abporter521/CS3500-TankWars/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management
	StartMatch(m *core.Match) error
	EndMatch() error

	// Player registration (assigns ID to the passed pointer)
	AddPlayer(p *core.Player) error

	// Event recording
	RecordShot(e *core.ShotEvent) error
	RecordHit(e *core.HitEvent) error
	RecordKill(e *core.KillEvent) error
	RecordBeam(e *core.BeamEvent) error
	RecordPowerUp(e *core.PowerUpEvent) error
	RecordLifecycle(e *core.LifecycleEvent) error
	RecordTickStats(s *core.TickStats) error
}

// Uploadable is an optional interface for storage backends that produce
// a file suitable for upload to the leaderboard service.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
