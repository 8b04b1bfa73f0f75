// Package model holds the GORM schema for recorded matches.
package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&ServerInfo{},
	&Match{},
	&Wall{},
	&Player{},
	&ShotEvent{},
	&HitEvent{},
	&KillEvent{},
	&BeamEvent{},
	&PowerUpEvent{},
	&LifecycleEvent{},
	&TickStats{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ServerInfo describes the server instance owning the database
type ServerInfo struct {
	gorm.Model
	ServerName  string `json:"serverName" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Website     string `json:"website" gorm:"size:255"`
}

func (*ServerInfo) TableName() string {
	return "server_infos"
}

// TickStats is a periodic sample of simulation load
type TickStats struct {
	ID             uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time `json:"time" gorm:"index:idx_tickstats_time"`
	MatchID        uint      `json:"matchId" gorm:"index:idx_tickstats_match_id"`
	Match          Match     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick           uint64    `json:"tick"`
	Players        uint16    `json:"players"`
	Projectiles    uint16    `json:"projectiles"`
	PowerUps       uint16    `json:"powerUps"`
	QueueLength    uint16    `json:"queueLength"`
	TickDurationMs float32   `json:"tickDurationMs"`
}

func (*TickStats) TableName() string {
	return "tick_stats"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Match is one server session
type Match struct {
	gorm.Model
	UUID          string         `json:"uuid" gorm:"size:36;uniqueIndex:idx_match_uuid"`
	ServerName    string         `json:"serverName" gorm:"size:127"`
	Tag           string         `json:"tag" gorm:"size:32"`
	ServerVersion string         `json:"serverVersion" gorm:"size:64"`
	StartTime     time.Time      `json:"startTime" gorm:"index:idx_match_start"`
	EndTime       sql.NullTime   `json:"endTime"`
	ArenaSize     int            `json:"arenaSize"`
	Settings      datatypes.JSON `json:"settings"` // MatchSettings as JSON
	Walls         []Wall         `json:"walls"`
	Players       []Player       `json:"players"`
}

func (*Match) TableName() string {
	return "matches"
}

// MatchSettings is the tuning a match ran with, stored in Match.Settings
type MatchSettings struct {
	MSPerFrame      int `json:"msPerFrame"`
	FramesPerShot   int `json:"framesPerShot"`
	RespawnRate     int `json:"respawnRate"`
	MaxPowerUps     int `json:"maxPowerUps"`
	PowerUpInterval int `json:"powerUpInterval"`
}

// Wall is a wall segment of a match
type Wall struct {
	ID      uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID uint            `json:"matchId" gorm:"index:idx_wall_match_id"`
	WallID  int             `json:"wallId"` // id on the wire
	Segment geom.LineString `json:"segment"`
}

func (*Wall) TableName() string {
	return "walls"
}

// Player is a client that joined a match
type Player struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID  uint      `json:"matchId" gorm:"index:idx_player_match_id"`
	TankID   int       `json:"tankId" gorm:"index:idx_player_tank_id"`
	Name     string    `json:"name" gorm:"size:16"`
	Address  string    `json:"address" gorm:"size:64"`
	JoinTime time.Time `json:"joinTime"`
	JoinTick uint64    `json:"joinTick"`
}

func (*Player) TableName() string {
	return "players"
}

////////////////////////
// EVENT MODELS
////////////////////////

// ShotEvent is a projectile leaving a tank
type ShotEvent struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time"`
	MatchID      uint       `json:"matchId" gorm:"index:idx_shotevent_match_id"`
	Match        Match      `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick         uint64     `json:"tick" gorm:"index:idx_shotevent_tick"`
	TankID       int        `json:"tankId" gorm:"index:idx_shotevent_tank_id"`
	ProjectileID int        `json:"projectileId"`
	Origin       geom.Point `json:"origin"`
	Direction    geom.Point `json:"direction"` // unit vector
}

func (*ShotEvent) TableName() string {
	return "shot_events"
}

// HitEvent is a projectile damaging a tank
type HitEvent struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time"`
	MatchID      uint       `json:"matchId" gorm:"index:idx_hitevent_match_id"`
	Match        Match      `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick         uint64     `json:"tick" gorm:"index:idx_hitevent_tick"`
	ShooterID    int        `json:"shooterId" gorm:"index:idx_hitevent_shooter_id"`
	VictimID     int        `json:"victimId" gorm:"index:idx_hitevent_victim_id"`
	ProjectileID int        `json:"projectileId"`
	Position     geom.Point `json:"position"`
	RemainingHP  uint8      `json:"remainingHp"`
}

func (*HitEvent) TableName() string {
	return "hit_events"
}

// KillEvent is a tank destroyed by a projectile or a beam
type KillEvent struct {
	ID       uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time  `json:"time"`
	MatchID  uint       `json:"matchId" gorm:"index:idx_killevent_match_id"`
	Match    Match      `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick     uint64     `json:"tick" gorm:"index:idx_killevent_tick"`
	KillerID int        `json:"killerId" gorm:"index:idx_killevent_killer_id"`
	VictimID int        `json:"victimId" gorm:"index:idx_killevent_victim_id"`
	Weapon   string     `json:"weapon" gorm:"size:16"`
	Position geom.Point `json:"position"` // victim position
	Distance float32    `json:"distance"`
}

func (*KillEvent) TableName() string {
	return "kill_events"
}

// BeamEvent is an alt-fire shot. Ray runs from the firing tank to the arena
// edge.
type BeamEvent struct {
	ID      uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time    time.Time       `json:"time"`
	MatchID uint            `json:"matchId" gorm:"index:idx_beamevent_match_id"`
	Match   Match           `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick    uint64          `json:"tick"`
	TankID  int             `json:"tankId"`
	BeamID  int             `json:"beamId"`
	Ray     geom.LineString `json:"ray"`
	Victims datatypes.JSON  `json:"victims"` // tank ids as JSON array
}

func (*BeamEvent) TableName() string {
	return "beam_events"
}

// PowerUpEvent is a power-up spawning or being collected. TankID is NULL for
// spawns.
type PowerUpEvent struct {
	ID        uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time     `json:"time"`
	MatchID   uint          `json:"matchId" gorm:"index:idx_powerupevent_match_id"`
	Match     Match         `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick      uint64        `json:"tick"`
	PowerUpID int           `json:"powerUpId"`
	TankID    sql.NullInt32 `json:"tankId" gorm:"default:NULL"`
	Kind      string        `json:"kind" gorm:"size:16"`
	Position  geom.Point    `json:"position"`
}

func (*PowerUpEvent) TableName() string {
	return "power_up_events"
}

// LifecycleEvent is a tank joining, leaving or respawning
type LifecycleEvent struct {
	ID       uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time  `json:"time"`
	MatchID  uint       `json:"matchId" gorm:"index:idx_lifecycleevent_match_id"`
	Match    Match      `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick     uint64     `json:"tick"`
	TankID   int        `json:"tankId" gorm:"index:idx_lifecycleevent_tank_id"`
	Name     string     `json:"name" gorm:"size:16"`
	Kind     string     `json:"kind" gorm:"size:16"`
	Score    int        `json:"score"`
	Position geom.Point `json:"position"`
}

func (*LifecycleEvent) TableName() string {
	return "lifecycle_events"
}
