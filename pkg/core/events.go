package core

import (
	"time"
)

// Weapons
const (
	WeaponMain = "main"
	WeaponBeam = "beam"
)

// Lifecycle event kinds
const (
	LifecycleJoined    = "joined"
	LifecycleLeft      = "left"
	LifecycleRespawned = "respawned"
)

// Power-up event kinds
const (
	PowerUpSpawned   = "spawned"
	PowerUpCollected = "collected"
)

// ShotEvent is a projectile leaving a tank's gun.
type ShotEvent struct {
	Time         time.Time  `json:"time" msgpack:"time"`
	Tick         uint64     `json:"tick" msgpack:"tick"`
	TankID       int        `json:"tankId" msgpack:"tankId"`
	ProjectileID int        `json:"projectileId" msgpack:"projectileId"`
	Origin       Position2D `json:"origin" msgpack:"origin"`
	Direction    Position2D `json:"direction" msgpack:"direction"`
}

// HitEvent is a projectile damaging a tank.
type HitEvent struct {
	Time         time.Time  `json:"time" msgpack:"time"`
	Tick         uint64     `json:"tick" msgpack:"tick"`
	ShooterID    int        `json:"shooterId" msgpack:"shooterId"`
	VictimID     int        `json:"victimId" msgpack:"victimId"`
	ProjectileID int        `json:"projectileId" msgpack:"projectileId"`
	Position     Position2D `json:"position" msgpack:"position"`
	RemainingHP  int        `json:"remainingHp" msgpack:"remainingHp"`
}

// KillEvent is a tank reduced to zero health.
type KillEvent struct {
	Time     time.Time  `json:"time" msgpack:"time"`
	Tick     uint64     `json:"tick" msgpack:"tick"`
	KillerID int        `json:"killerId" msgpack:"killerId"`
	VictimID int        `json:"victimId" msgpack:"victimId"`
	Weapon   string     `json:"weapon" msgpack:"weapon"`
	Position Position2D `json:"position" msgpack:"position"`
	Distance float64    `json:"distance" msgpack:"distance"`
}

// BeamEvent is an alt-fire shot and every tank it destroyed.
type BeamEvent struct {
	Time      time.Time  `json:"time" msgpack:"time"`
	Tick      uint64     `json:"tick" msgpack:"tick"`
	TankID    int        `json:"tankId" msgpack:"tankId"`
	BeamID    int        `json:"beamId" msgpack:"beamId"`
	Origin    Position2D `json:"origin" msgpack:"origin"`
	Direction Position2D `json:"direction" msgpack:"direction"`
	Victims   []int      `json:"victims" msgpack:"victims"`
}

// PowerUpEvent is a power-up appearing or being picked up.
// TankID is -1 for spawns.
type PowerUpEvent struct {
	Time      time.Time  `json:"time" msgpack:"time"`
	Tick      uint64     `json:"tick" msgpack:"tick"`
	PowerUpID int        `json:"powerUpId" msgpack:"powerUpId"`
	TankID    int        `json:"tankId" msgpack:"tankId"`
	Kind      string     `json:"kind" msgpack:"kind"`
	Position  Position2D `json:"position" msgpack:"position"`
}

// LifecycleEvent is a tank joining, leaving or respawning.
type LifecycleEvent struct {
	Time     time.Time  `json:"time" msgpack:"time"`
	Tick     uint64     `json:"tick" msgpack:"tick"`
	TankID   int        `json:"tankId" msgpack:"tankId"`
	Name     string     `json:"name" msgpack:"name"`
	Address  string     `json:"address,omitempty" msgpack:"address,omitempty"`
	Kind     string     `json:"kind" msgpack:"kind"`
	Score    int        `json:"score" msgpack:"score"`
	Position Position2D `json:"position" msgpack:"position"`
}

// TickStats is a periodic sample of simulation load.
type TickStats struct {
	Time         time.Time     `json:"time" msgpack:"time"`
	Tick         uint64        `json:"tick" msgpack:"tick"`
	Players      int           `json:"players" msgpack:"players"`
	Projectiles  int           `json:"projectiles" msgpack:"projectiles"`
	PowerUps     int           `json:"powerUps" msgpack:"powerUps"`
	QueueLength  int           `json:"queueLength" msgpack:"queueLength"`
	TickDuration time.Duration `json:"tickDuration" msgpack:"tickDuration"`
}
