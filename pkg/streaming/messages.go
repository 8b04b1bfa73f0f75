// Package streaming defines the envelopes the websocket recorder sends to a
// live match viewer.
package streaming

import (
	"encoding/json"

	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// Message types.
const (
	TypeStartMatch = "start_match"
	TypeEndMatch   = "end_match"
	TypeAddPlayer  = "add_player"
	TypeShot       = "shot"
	TypeHit        = "hit"
	TypeKill       = "kill"
	TypeBeam       = "beam"
	TypePowerUp    = "power_up"
	TypeLifecycle  = "lifecycle"
	TypeTickStats  = "tick_stats"
)

// TypeAck is the Type of every AckMessage.
const TypeAck = "ack"

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the viewer's acknowledgement of a start or end message.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"` // the message type being acknowledged
}

// StartMatchPayload carries the match settings and walls.
type StartMatchPayload struct {
	Match *core.Match `json:"match"`
}

// EndMatchPayload carries the final scoreboard keyed by player name.
type EndMatchPayload struct {
	UUID   string         `json:"uuid"`
	Scores map[string]int `json:"scores,omitempty"`
}
