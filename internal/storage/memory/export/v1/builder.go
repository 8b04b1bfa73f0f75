package v1

import (
	"sort"
	"time"

	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// Event names in Export.Events. Every event array starts with
// [tick, name, ...].
const (
	EventJoined    = "joined"    // tank, name
	EventLeft      = "left"      // tank, score
	EventRespawned = "respawned" // tank, x, y
	EventHit       = "hit"       // victim, shooter, remaining hp
	EventKilled    = "killed"    // victim, killer, weapon, distance
	EventBeam      = "beam"      // tank, x, y, dx, dy, victims
	EventPowerUp   = "powerup"   // kind, power-up id, tank (-1 for spawns), x, y
)

// MatchData is everything a backend recorded for one match.
type MatchData struct {
	Match     core.Match
	Players   []core.Player
	Shots     []core.ShotEvent
	Hits      []core.HitEvent
	Kills     []core.KillEvent
	Beams     []core.BeamEvent
	PowerUps  []core.PowerUpEvent
	Lifecycle []core.LifecycleEvent
	TickStats []core.TickStats
}

// Build converts recorded match data into the v1 export format.
func Build(data *MatchData) Export {
	m := data.Match
	export := Export{
		Version:       FormatVersion,
		MatchUUID:     m.UUID,
		ServerName:    m.ServerName,
		ServerVersion: m.ServerVersion,
		Tags:          m.Tag,
		StartTime:     formatTime(m.StartTime),
		EndTime:       formatTime(m.EndTime),
		ArenaSize:     m.ArenaSize,
		Settings: Settings{
			MSPerFrame:      m.MSPerFrame,
			FramesPerShot:   m.FramesPerShot,
			RespawnRate:     m.RespawnRate,
			MaxPowerUps:     m.MaxPowerUps,
			PowerUpInterval: m.PowerUpInterval,
		},
		Walls:       make([][]any, 0, len(m.Walls)),
		Players:     make([]Player, 0, len(data.Players)),
		Events:      [][]any{},
		Performance: make([][]any, 0, len(data.TickStats)),
	}

	for _, w := range m.Walls {
		export.Walls = append(export.Walls, []any{w.ID, w.P1.X, w.P1.Y, w.P2.X, w.P2.Y})
	}

	players := make(map[int]*Player, len(data.Players))
	order := make([]int, 0, len(data.Players))
	for _, p := range data.Players {
		if _, dup := players[p.TankID]; dup {
			continue
		}
		players[p.TankID] = &Player{
			ID:         p.TankID,
			Name:       p.Name,
			JoinTick:   p.JoinTick,
			ShotsFired: [][]any{},
		}
		order = append(order, p.TankID)
	}
	player := func(id int) *Player {
		if p, ok := players[id]; ok {
			return p
		}
		return &Player{} // events for unknown tanks still appear in Events
	}

	var endTick uint64
	seen := func(tick uint64) {
		if tick > endTick {
			endTick = tick
		}
	}

	for _, s := range data.Shots {
		seen(s.Tick)
		p := player(s.TankID)
		p.ShotsFired = append(p.ShotsFired, []any{s.Tick, s.Origin.X, s.Origin.Y, s.Direction.X, s.Direction.Y})
	}

	type tickEvent struct {
		tick uint64
		seq  int
		ev   []any
	}
	var events []tickEvent
	add := func(tick uint64, ev ...any) {
		seen(tick)
		events = append(events, tickEvent{tick: tick, seq: len(events), ev: append([]any{tick}, ev...)})
	}

	for _, e := range data.Lifecycle {
		switch e.Kind {
		case core.LifecycleJoined:
			add(e.Tick, EventJoined, e.TankID, e.Name)
		case core.LifecycleLeft:
			add(e.Tick, EventLeft, e.TankID, e.Score)
			p := player(e.TankID)
			p.LeaveTick = e.Tick
			p.Score = e.Score
		case core.LifecycleRespawned:
			add(e.Tick, EventRespawned, e.TankID, e.Position.X, e.Position.Y)
		}
	}
	for _, e := range data.Hits {
		add(e.Tick, EventHit, e.VictimID, e.ShooterID, e.RemainingHP)
		player(e.ShooterID).Hits++
	}
	for _, e := range data.Kills {
		add(e.Tick, EventKilled, e.VictimID, e.KillerID, e.Weapon, e.Distance)
		player(e.KillerID).Kills++
		player(e.VictimID).Deaths++
	}
	for _, e := range data.Beams {
		victims := e.Victims
		if victims == nil {
			victims = []int{}
		}
		add(e.Tick, EventBeam, e.TankID, e.Origin.X, e.Origin.Y, e.Direction.X, e.Direction.Y, victims)
		player(e.TankID).Beams++
	}
	for _, e := range data.PowerUps {
		add(e.Tick, EventPowerUp, e.Kind, e.PowerUpID, e.TankID, e.Position.X, e.Position.Y)
		if e.Kind == core.PowerUpCollected {
			player(e.TankID).PowerUps++
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].seq < events[j].seq
	})
	for _, e := range events {
		export.Events = append(export.Events, e.ev)
	}

	for _, s := range data.TickStats {
		seen(s.Tick)
		export.Performance = append(export.Performance, []any{
			s.Tick, s.Players, s.Projectiles, s.PowerUps, float64(s.TickDuration.Microseconds()) / 1000,
		})
	}

	for _, id := range order {
		p := players[id]
		// players still connected at the end never reported a final score
		if p.LeaveTick == 0 {
			p.Score = p.Kills
		}
		if n := len(p.ShotsFired); n > 0 {
			p.Accuracy = float64(p.Hits) / float64(n)
		}
		export.Players = append(export.Players, *p)
	}
	export.EndTick = endTick
	return export
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
