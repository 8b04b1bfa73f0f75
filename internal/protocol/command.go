package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/abporter521/CS3500-TankWars/internal/vector"
)

// Movement is the requested direction of travel for one tick.
type Movement string

const (
	MoveNone  Movement = "none"
	MoveUp    Movement = "up"
	MoveDown  Movement = "down"
	MoveLeft  Movement = "left"
	MoveRight Movement = "right"
)

// Valid reports whether m is a known movement.
func (m Movement) Valid() bool {
	switch m {
	case MoveNone, MoveUp, MoveDown, MoveLeft, MoveRight:
		return true
	}
	return false
}

// Delta returns the unit displacement for m.
func (m Movement) Delta() vector.Vector2D {
	switch m {
	case MoveUp:
		return vector.New(0, -1)
	case MoveDown:
		return vector.New(0, 1)
	case MoveLeft:
		return vector.New(-1, 0)
	case MoveRight:
		return vector.New(1, 0)
	}
	return vector.Vector2D{}
}

// FireMode selects the weapon fired this tick.
type FireMode string

const (
	FireNone FireMode = "none"
	FireMain FireMode = "main"
	FireAlt  FireMode = "alt"
)

// Valid reports whether f is a known fire mode.
func (f FireMode) Valid() bool {
	switch f {
	case FireNone, FireMain, FireAlt:
		return true
	}
	return false
}

// ControlCommand is the client's intent for its tank.
type ControlCommand struct {
	Moving Movement        `json:"moving"`
	Fire   FireMode        `json:"fire"`
	Aim    vector.Vector2D `json:"tdir"`
}

// IdleCommand is the command in effect before a client sends anything.
var IdleCommand = ControlCommand{Moving: MoveNone, Fire: FireNone, Aim: vector.Up}

// EncodeCommand returns the JSON line for c with its aim normalized.
func EncodeCommand(c ControlCommand) ([]byte, error) {
	c.Aim = c.Aim.Normalize()
	if c.Moving == "" {
		c.Moving = MoveNone
	}
	if c.Fire == "" {
		c.Fire = FireNone
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeCommand parses one command line. Missing fields default to none;
// unknown values are rejected.
func DecodeCommand(line []byte) (ControlCommand, error) {
	var c ControlCommand
	if err := json.Unmarshal(line, &c); err != nil {
		return ControlCommand{}, malformed(line, "invalid command json", err)
	}
	if c.Moving == "" {
		c.Moving = MoveNone
	}
	if c.Fire == "" {
		c.Fire = FireNone
	}
	if !c.Moving.Valid() {
		return ControlCommand{}, malformed(line, fmt.Sprintf("unknown movement %q", c.Moving), nil)
	}
	if !c.Fire.Valid() {
		return ControlCommand{}, malformed(line, fmt.Sprintf("unknown fire mode %q", c.Fire), nil)
	}
	return c, nil
}

// ConsumeCommands decodes every complete command line in buf with the same
// partial-line contract as Consume.
func ConsumeCommands(buf []byte) ([]ControlCommand, int, []error) {
	var (
		cmds []ControlCommand
		errs []error
	)
	consumed := eachLine(buf, func(line []byte) {
		c, err := DecodeCommand(line)
		if err != nil {
			errs = append(errs, err)
			return
		}
		cmds = append(cmds, c)
	})
	return cmds, consumed, errs
}
