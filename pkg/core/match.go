// Package core holds the storage-agnostic types shared by the engine, the
// recorder workers and every storage backend.
package core

import (
	"strconv"
	"time"
)

// Position2D is an arena coordinate.
type Position2D struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// WallSegment is a wall as configured for a match
type WallSegment struct {
	ID int        `json:"id" msgpack:"id"`
	P1 Position2D `json:"p1" msgpack:"p1"`
	P2 Position2D `json:"p2" msgpack:"p2"`
}

// Match is one recorded server session
type Match struct {
	ID              uint          `json:"id" msgpack:"id"`
	UUID            string        `json:"uuid" msgpack:"uuid"`
	ServerName      string        `json:"serverName" msgpack:"serverName"`
	Tag             string        `json:"tag" msgpack:"tag"`
	ServerVersion   string        `json:"serverVersion" msgpack:"serverVersion"`
	StartTime       time.Time     `json:"startTime" msgpack:"startTime"`
	EndTime         time.Time     `json:"endTime" msgpack:"endTime"`
	ArenaSize       int           `json:"arenaSize" msgpack:"arenaSize"`
	MSPerFrame      int           `json:"msPerFrame" msgpack:"msPerFrame"`
	FramesPerShot   int           `json:"framesPerShot" msgpack:"framesPerShot"`
	RespawnRate     int           `json:"respawnRate" msgpack:"respawnRate"`
	MaxPowerUps     int           `json:"maxPowerUps" msgpack:"maxPowerUps"`
	PowerUpInterval int           `json:"powerUpInterval" msgpack:"powerUpInterval"`
	Walls           []WallSegment `json:"walls" msgpack:"walls"`
}

// Duration returns the elapsed match time, or zero while the match is running.
func (m Match) Duration() time.Duration {
	if m.EndTime.IsZero() {
		return 0
	}
	return m.EndTime.Sub(m.StartTime)
}

// Player is a connected client and its tank
type Player struct {
	ID       uint      `json:"id" msgpack:"id"` // assigned by the storage backend
	TankID   int       `json:"tankId" msgpack:"tankId"`
	Name     string    `json:"name" msgpack:"name"`
	Address  string    `json:"address" msgpack:"address"`
	JoinTime time.Time `json:"joinTime" msgpack:"joinTime"`
	JoinTick uint64    `json:"joinTick" msgpack:"joinTick"`
}

// ScoreKey labels a scoreboard entry as "name#tankID" so players sharing a
// name stay apart.
func ScoreKey(name string, tankID int) string {
	return name + "#" + strconv.Itoa(tankID)
}

// UploadMetadata describes an exported match file
type UploadMetadata struct {
	MatchName string
	ArenaSize int
	Duration  float64 // seconds
	Tag       string
}
