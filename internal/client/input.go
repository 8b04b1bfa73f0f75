package client

import (
	"slices"

	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	"github.com/abporter521/CS3500-TankWars/internal/vector"
)

// inputState tracks held movement keys, aim and a pending fire request.
// The most recently pressed key that is still held decides the movement.
type inputState struct {
	held []protocol.Movement
	aim  vector.Vector2D
	fire protocol.FireMode
}

func newInputState() inputState {
	return inputState{aim: vector.Up, fire: protocol.FireNone}
}

func (s *inputState) press(m protocol.Movement) bool {
	if m == protocol.MoveNone || !m.Valid() {
		return false
	}
	before := s.moving()
	s.held = slices.DeleteFunc(s.held, func(h protocol.Movement) bool { return h == m })
	s.held = append(s.held, m)
	return s.moving() != before
}

func (s *inputState) release(m protocol.Movement) bool {
	before := s.moving()
	s.held = slices.DeleteFunc(s.held, func(h protocol.Movement) bool { return h == m })
	return s.moving() != before
}

func (s *inputState) moving() protocol.Movement {
	if len(s.held) == 0 {
		return protocol.MoveNone
	}
	return s.held[len(s.held)-1]
}

// command returns the command to send and clears the fire request.
func (s *inputState) command() protocol.ControlCommand {
	cmd := protocol.ControlCommand{Moving: s.moving(), Fire: s.fire, Aim: s.aim}
	s.fire = protocol.FireNone
	return cmd
}
