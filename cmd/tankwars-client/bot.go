package main

import (
	"math"
	"math/rand"

	"github.com/abporter521/CS3500-TankWars/internal/protocol"
)

// Controls is the part of the session controller the bot drives.
type Controls interface {
	KeyDown(protocol.Movement) error
	KeyUp(protocol.Movement) error
	Aim(x, y float64) error
	Fire(protocol.FireMode) error
}

var directions = []protocol.Movement{
	protocol.MoveUp, protocol.MoveDown, protocol.MoveLeft, protocol.MoveRight,
}

// Bot wanders, turns its turret and fires at random.
type Bot struct {
	rng     *rand.Rand
	held    protocol.Movement
	altOdds float64
}

func NewBot(rng *rand.Rand) *Bot {
	return &Bot{rng: rng, held: protocol.MoveNone, altOdds: 0.02}
}

// Step makes one round of decisions. The first error stops the round.
func (b *Bot) Step(c Controls) error {
	if b.held == protocol.MoveNone || b.rng.Intn(4) == 0 {
		next := directions[b.rng.Intn(len(directions))]
		if next != b.held {
			if b.held != protocol.MoveNone {
				if err := c.KeyUp(b.held); err != nil {
					return err
				}
			}
			if err := c.KeyDown(next); err != nil {
				return err
			}
			b.held = next
		}
	}

	angle := b.rng.Float64() * 2 * math.Pi
	if err := c.Aim(math.Cos(angle), math.Sin(angle)); err != nil {
		return err
	}

	mode := protocol.FireMain
	if b.rng.Float64() < b.altOdds {
		mode = protocol.FireAlt
	}
	return c.Fire(mode)
}
