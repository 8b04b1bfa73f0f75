package main

import (
	"github.com/abporter521/CS3500-TankWars/internal/config"
	"github.com/abporter521/CS3500-TankWars/internal/engine"
	"github.com/abporter521/CS3500-TankWars/internal/vector"
	"github.com/abporter521/CS3500-TankWars/internal/world"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// engineSettings converts validated game settings. Wall ids follow the order
// of game.walls.
func engineSettings(gs config.GameSettings) engine.Settings {
	walls := make([]world.Wall, len(gs.Walls))
	for i, w := range gs.Walls {
		walls[i] = world.Wall{
			ID: i,
			P1: vector.New(w.P1.X, w.P1.Y),
			P2: vector.New(w.P2.X, w.P2.Y),
		}
	}
	return engine.Settings{
		UniverseSize:    gs.UniverseSize,
		MSPerFrame:      gs.MSPerFrame,
		FramesPerShot:   gs.FramesPerShot,
		RespawnRate:     gs.RespawnRate,
		MaxPowerUps:     gs.MaxPowerUps,
		PowerUpInterval: gs.PowerUpInterval,
		EngineForce:     gs.EngineForce,
		ProjectileSpeed: gs.ProjectileSpeed,
		Walls:           walls,
	}
}

// matchSettings describes the match the engine is about to run.
func matchSettings(serverName, tag string, s engine.Settings) core.Match {
	walls := make([]core.WallSegment, len(s.Walls))
	for i, w := range s.Walls {
		walls[i] = core.WallSegment{
			ID: w.ID,
			P1: core.Position2D{X: w.P1.X, Y: w.P1.Y},
			P2: core.Position2D{X: w.P2.X, Y: w.P2.Y},
		}
	}
	return core.Match{
		ServerName:      serverName,
		Tag:             tag,
		ServerVersion:   Version,
		ArenaSize:       s.UniverseSize,
		MSPerFrame:      s.MSPerFrame,
		FramesPerShot:   s.FramesPerShot,
		RespawnRate:     s.RespawnRate,
		MaxPowerUps:     s.MaxPowerUps,
		PowerUpInterval: s.PowerUpInterval,
		Walls:           walls,
	}
}
