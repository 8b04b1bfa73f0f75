package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/geo"
	"github.com/abporter521/CS3500-TankWars/internal/model"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// MatchToCore converts a GORM match, walls included, back to core.
func MatchToCore(m model.Match) (core.Match, error) {
	out := core.Match{
		ID:            m.ID,
		UUID:          m.UUID,
		ServerName:    m.ServerName,
		Tag:           m.Tag,
		ServerVersion: m.ServerVersion,
		StartTime:     m.StartTime,
		ArenaSize:     m.ArenaSize,
	}
	if m.EndTime.Valid {
		out.EndTime = m.EndTime.Time
	}
	if len(m.Settings) > 0 {
		var s model.MatchSettings
		if err := json.Unmarshal(m.Settings, &s); err != nil {
			return out, fmt.Errorf("match %d settings: %w", m.ID, err)
		}
		out.MSPerFrame = s.MSPerFrame
		out.FramesPerShot = s.FramesPerShot
		out.RespawnRate = s.RespawnRate
		out.MaxPowerUps = s.MaxPowerUps
		out.PowerUpInterval = s.PowerUpInterval
	}
	for _, w := range m.Walls {
		p1, p2, ok := geo.Endpoints(w.Segment)
		if !ok {
			return out, fmt.Errorf("match %d wall %d: empty segment", m.ID, w.WallID)
		}
		out.Walls = append(out.Walls, core.WallSegment{ID: w.WallID, P1: p1, P2: p2})
	}
	return out, nil
}

// PlayerToCore converts a GORM player back to core.
func PlayerToCore(p model.Player) core.Player {
	return core.Player{
		ID:       p.ID,
		TankID:   p.TankID,
		Name:     p.Name,
		Address:  p.Address,
		JoinTime: p.JoinTime,
		JoinTick: p.JoinTick,
	}
}

// ShotEventToCore converts a GORM shot back to core.
func ShotEventToCore(e model.ShotEvent) core.ShotEvent {
	origin, _ := geo.Position(e.Origin)
	dir, _ := geo.Position(e.Direction)
	return core.ShotEvent{
		Time:         e.Time,
		Tick:         e.Tick,
		TankID:       e.TankID,
		ProjectileID: e.ProjectileID,
		Origin:       origin,
		Direction:    dir,
	}
}

// HitEventToCore converts a GORM hit back to core.
func HitEventToCore(e model.HitEvent) core.HitEvent {
	pos, _ := geo.Position(e.Position)
	return core.HitEvent{
		Time:         e.Time,
		Tick:         e.Tick,
		ShooterID:    e.ShooterID,
		VictimID:     e.VictimID,
		ProjectileID: e.ProjectileID,
		Position:     pos,
		RemainingHP:  int(e.RemainingHP),
	}
}

// KillEventToCore converts a GORM kill back to core.
func KillEventToCore(e model.KillEvent) core.KillEvent {
	pos, _ := geo.Position(e.Position)
	return core.KillEvent{
		Time:     e.Time,
		Tick:     e.Tick,
		KillerID: e.KillerID,
		VictimID: e.VictimID,
		Weapon:   e.Weapon,
		Position: pos,
		Distance: float64(e.Distance),
	}
}

// BeamEventToCore converts a GORM beam back to core. Direction is the
// normalized ray direction.
func BeamEventToCore(e model.BeamEvent) (core.BeamEvent, error) {
	out := core.BeamEvent{
		Time:   e.Time,
		Tick:   e.Tick,
		TankID: e.TankID,
		BeamID: e.BeamID,
	}
	if p1, p2, ok := geo.Endpoints(e.Ray); ok {
		out.Origin = p1
		out.Direction = unit(p1, p2)
	}
	if len(e.Victims) > 0 {
		if err := json.Unmarshal(e.Victims, &out.Victims); err != nil {
			return out, fmt.Errorf("beam %d victims: %w", e.BeamID, err)
		}
	}
	return out, nil
}

// PowerUpEventToCore converts a GORM power-up event back to core. A NULL
// tank becomes -1.
func PowerUpEventToCore(e model.PowerUpEvent) core.PowerUpEvent {
	pos, _ := geo.Position(e.Position)
	tank := -1
	if e.TankID.Valid {
		tank = int(e.TankID.Int32)
	}
	return core.PowerUpEvent{
		Time:      e.Time,
		Tick:      e.Tick,
		PowerUpID: e.PowerUpID,
		TankID:    tank,
		Kind:      e.Kind,
		Position:  pos,
	}
}

// LifecycleEventToCore converts a GORM lifecycle event back to core.
func LifecycleEventToCore(e model.LifecycleEvent) core.LifecycleEvent {
	pos, _ := geo.Position(e.Position)
	return core.LifecycleEvent{
		Time:     e.Time,
		Tick:     e.Tick,
		TankID:   e.TankID,
		Name:     e.Name,
		Kind:     e.Kind,
		Score:    e.Score,
		Position: pos,
	}
}

// TickStatsToCore converts GORM tick stats back to core.
func TickStatsToCore(s model.TickStats) core.TickStats {
	return core.TickStats{
		Time:         s.Time,
		Tick:         s.Tick,
		Players:      int(s.Players),
		Projectiles:  int(s.Projectiles),
		PowerUps:     int(s.PowerUps),
		QueueLength:  int(s.QueueLength),
		TickDuration: time.Duration(float64(s.TickDurationMs) * float64(time.Millisecond)),
	}
}

func unit(from, to core.Position2D) core.Position2D {
	dx, dy := to.X-from.X, to.Y-from.Y
	l := dx*dx + dy*dy
	if l == 0 {
		return core.Position2D{}
	}
	n := 1 / math.Sqrt(l)
	return core.Position2D{X: dx * n, Y: dy * n}
}
