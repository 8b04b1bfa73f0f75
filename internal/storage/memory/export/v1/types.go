// Package v1 contains the v1 export format for recorded TankWars matches.
package v1

// FormatVersion is written into every Export.
const FormatVersion = "1"

// Export is the root structure for the v1 format
type Export struct {
	Version       string   `json:"version" msgpack:"version"`
	MatchUUID     string   `json:"matchUuid" msgpack:"matchUuid"`
	ServerName    string   `json:"serverName" msgpack:"serverName"`
	ServerVersion string   `json:"serverVersion" msgpack:"serverVersion"`
	Tags          string   `json:"tags" msgpack:"tags"`
	StartTime     string   `json:"startTime" msgpack:"startTime"`
	EndTime       string   `json:"endTime" msgpack:"endTime"`
	EndTick       uint64   `json:"endTick" msgpack:"endTick"`
	ArenaSize     int      `json:"arenaSize" msgpack:"arenaSize"`
	Settings      Settings `json:"settings" msgpack:"settings"`
	Walls         [][]any  `json:"walls" msgpack:"walls"`
	Players       []Player `json:"players" msgpack:"players"`
	Events        [][]any  `json:"events" msgpack:"events"`
	Performance   [][]any  `json:"performance" msgpack:"performance"`
}

// Settings is the simulation tuning of the match
type Settings struct {
	MSPerFrame      int `json:"msPerFrame" msgpack:"msPerFrame"`
	FramesPerShot   int `json:"framesPerShot" msgpack:"framesPerShot"`
	RespawnRate     int `json:"respawnRate" msgpack:"respawnRate"`
	MaxPowerUps     int `json:"maxPowerUps" msgpack:"maxPowerUps"`
	PowerUpInterval int `json:"powerUpInterval" msgpack:"powerUpInterval"`
}

// Player is one tank and its match totals
type Player struct {
	ID         int     `json:"id" msgpack:"id"`                                   // tank id
	Name       string  `json:"name" msgpack:"name"`
	JoinTick   uint64  `json:"joinTick" msgpack:"joinTick"`
	LeaveTick  uint64  `json:"leaveTick,omitempty" msgpack:"leaveTick,omitempty"`
	Score      int     `json:"score" msgpack:"score"`
	Kills      int     `json:"kills" msgpack:"kills"`
	Deaths     int     `json:"deaths" msgpack:"deaths"`
	Hits       int     `json:"hits" msgpack:"hits"`
	Beams      int     `json:"beams" msgpack:"beams"`
	PowerUps   int     `json:"powerUps" msgpack:"powerUps"`
	Accuracy   float64 `json:"accuracy" msgpack:"accuracy"`                       // hits per shot
	ShotsFired [][]any `json:"shotsFired" msgpack:"shotsFired"`                   // [tick, x, y, dx, dy]
}
