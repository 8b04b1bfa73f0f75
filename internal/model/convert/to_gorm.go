// Package convert maps pkg/core types onto the GORM schema and back.
package convert

import (
	"database/sql"
	"encoding/json"
	"math"

	"github.com/abporter521/CS3500-TankWars/internal/geo"
	"github.com/abporter521/CS3500-TankWars/internal/model"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
	"gorm.io/datatypes"
)

// CoreToMatch converts a core.Match, walls included, to a GORM model.
func CoreToMatch(m core.Match) model.Match {
	settings, _ := json.Marshal(model.MatchSettings{
		MSPerFrame:      m.MSPerFrame,
		FramesPerShot:   m.FramesPerShot,
		RespawnRate:     m.RespawnRate,
		MaxPowerUps:     m.MaxPowerUps,
		PowerUpInterval: m.PowerUpInterval,
	})
	out := model.Match{
		UUID:          m.UUID,
		ServerName:    m.ServerName,
		Tag:           m.Tag,
		ServerVersion: m.ServerVersion,
		StartTime:     m.StartTime,
		ArenaSize:     m.ArenaSize,
		Settings:      datatypes.JSON(settings),
	}
	out.ID = m.ID
	if !m.EndTime.IsZero() {
		out.EndTime = sql.NullTime{Time: m.EndTime, Valid: true}
	}
	for _, w := range m.Walls {
		out.Walls = append(out.Walls, model.Wall{
			WallID:  w.ID,
			Segment: geo.Segment(w.P1, w.P2),
		})
	}
	return out
}

// CoreToPlayer converts a core.Player to a GORM model.
func CoreToPlayer(p core.Player) model.Player {
	return model.Player{
		ID:       p.ID,
		TankID:   p.TankID,
		Name:     p.Name,
		Address:  p.Address,
		JoinTime: p.JoinTime,
		JoinTick: p.JoinTick,
	}
}

// CoreToShotEvent converts a core.ShotEvent to a GORM model.
func CoreToShotEvent(e core.ShotEvent) model.ShotEvent {
	return model.ShotEvent{
		Time:         e.Time,
		Tick:         e.Tick,
		TankID:       e.TankID,
		ProjectileID: e.ProjectileID,
		Origin:       geo.Point(e.Origin),
		Direction:    geo.Point(e.Direction),
	}
}

// CoreToHitEvent converts a core.HitEvent to a GORM model.
func CoreToHitEvent(e core.HitEvent) model.HitEvent {
	return model.HitEvent{
		Time:         e.Time,
		Tick:         e.Tick,
		ShooterID:    e.ShooterID,
		VictimID:     e.VictimID,
		ProjectileID: e.ProjectileID,
		Position:     geo.Point(e.Position),
		RemainingHP:  uint8(max(e.RemainingHP, 0)),
	}
}

// CoreToKillEvent converts a core.KillEvent to a GORM model.
func CoreToKillEvent(e core.KillEvent) model.KillEvent {
	return model.KillEvent{
		Time:     e.Time,
		Tick:     e.Tick,
		KillerID: e.KillerID,
		VictimID: e.VictimID,
		Weapon:   e.Weapon,
		Position: geo.Point(e.Position),
		Distance: float32(e.Distance),
	}
}

// CoreToBeamEvent converts a core.BeamEvent to a GORM model. The stored ray
// is clipped to an arena of arenaSize.
func CoreToBeamEvent(e core.BeamEvent, arenaSize int) model.BeamEvent {
	victims := e.Victims
	if victims == nil {
		victims = []int{}
	}
	raw, _ := json.Marshal(victims)
	return model.BeamEvent{
		Time:    e.Time,
		Tick:    e.Tick,
		TankID:  e.TankID,
		BeamID:  e.BeamID,
		Ray:     geo.Ray(e.Origin, e.Direction, arenaSize),
		Victims: datatypes.JSON(raw),
	}
}

// CoreToPowerUpEvent converts a core.PowerUpEvent to a GORM model. A
// negative TankID becomes NULL.
func CoreToPowerUpEvent(e core.PowerUpEvent) model.PowerUpEvent {
	out := model.PowerUpEvent{
		Time:      e.Time,
		Tick:      e.Tick,
		PowerUpID: e.PowerUpID,
		Kind:      e.Kind,
		Position:  geo.Point(e.Position),
	}
	if e.TankID >= 0 && e.TankID <= math.MaxInt32 {
		out.TankID = sql.NullInt32{Int32: int32(e.TankID), Valid: true}
	}
	return out
}

// CoreToLifecycleEvent converts a core.LifecycleEvent to a GORM model.
func CoreToLifecycleEvent(e core.LifecycleEvent) model.LifecycleEvent {
	return model.LifecycleEvent{
		Time:     e.Time,
		Tick:     e.Tick,
		TankID:   e.TankID,
		Name:     e.Name,
		Kind:     e.Kind,
		Score:    e.Score,
		Position: geo.Point(e.Position),
	}
}

// CoreToTickStats converts a core.TickStats to a GORM model. Counts saturate
// at the column width.
func CoreToTickStats(s core.TickStats) model.TickStats {
	return model.TickStats{
		Time:           s.Time,
		Tick:           s.Tick,
		Players:        clampUint16(s.Players),
		Projectiles:    clampUint16(s.Projectiles),
		PowerUps:       clampUint16(s.PowerUps),
		QueueLength:    clampUint16(s.QueueLength),
		TickDurationMs: float32(s.TickDuration.Microseconds()) / 1000,
	}
}

func clampUint16(n int) uint16 {
	switch {
	case n < 0:
		return 0
	case n > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(n)
}
