package engine

import (
	"maps"
	"slices"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	"github.com/abporter521/CS3500-TankWars/internal/vector"
	"github.com/abporter521/CS3500-TankWars/internal/world"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// Step advances the world by one tick and returns the frame handed to the
// broadcaster.
func (e *Engine) Step() []byte {
	start := time.Now()
	e.now = start
	e.tick++

	e.ingest()
	e.applyCommands()
	e.fire()
	e.advanceProjectiles()
	e.spawnPowerUp()
	e.collectPowerUps()
	e.respawn()
	e.reap()

	frame, err := protocol.EncodeSnapshot(e.world.Snapshot())
	if err != nil {
		e.log.Error("Dropped entities from frame", "tick", e.tick, "error", err)
	}
	e.broadcaster.Broadcast(frame)
	e.cleanup()

	e.publishStats(time.Since(start))
	return frame
}

func (e *Engine) ingest() {
	for _, in := range e.inbox.GetAndEmpty() {
		switch in := in.(type) {
		case Join:
			e.join(in)
		case Command:
			e.command(in)
		case Leave:
			if t, ok := e.world.Tanks[in.TankID]; ok {
				t.Disconnected = true
			}
		}
	}
}

func (e *Engine) join(in Join) {
	if _, exists := e.world.Tanks[in.TankID]; exists {
		e.log.Warn("Duplicate join ignored", "tankID", in.TankID)
		return
	}
	tank := world.NewTank(in.TankID, in.Name, e.randomLocation())
	e.world.Tanks[in.TankID] = &tank
	e.latest[in.TankID] = protocol.IdleCommand

	e.log.Info("Tank joined", "tankID", tank.ID, "name", tank.Name, "address", in.Address)
	e.emit(CmdPlayerJoin, core.LifecycleEvent{
		Time:     e.now,
		Tick:     e.tick,
		TankID:   tank.ID,
		Name:     tank.Name,
		Address:  in.Address,
		Kind:     core.LifecycleJoined,
		Position: position(tank.Location),
	})
}

func (e *Engine) command(in Command) {
	t, ok := e.world.Tanks[in.TankID]
	if !ok || t.Disconnected {
		return
	}
	cmd := in.Command
	if cmd.Fire != protocol.FireNone && cmd.Fire != "" {
		e.pendingFire[in.TankID] = cmd.Fire
	}
	cmd.Fire = protocol.FireNone
	e.latest[in.TankID] = cmd
}

func (e *Engine) applyCommands() {
	for _, t := range e.tanks() {
		if !t.Alive() {
			continue
		}
		cmd := e.latest[t.ID]
		if aim := cmd.Aim.Normalize(); !aim.IsZero() {
			t.Aim = aim
		}
		e.move(t, cmd.Moving)
	}
}

func (e *Engine) move(t *world.Tank, m protocol.Movement) {
	dir := m.Delta()
	if dir.IsZero() {
		return
	}
	t.Orientation = dir

	next := t.Location.Add(dir.Scale(e.cfg.EngineForce))
	if e.world.HitsWall(next, world.TankRadius) {
		return
	}
	t.Location = next.Clamp(e.world.Half())
}

func (e *Engine) fire() {
	for _, t := range e.tanks() {
		if t.Cooldown > 0 {
			t.Cooldown--
		}
		mode, requested := e.pendingFire[t.ID]
		delete(e.pendingFire, t.ID)
		if !requested || !t.Alive() {
			continue
		}

		switch mode {
		case protocol.FireMain:
			if t.Cooldown == 0 {
				e.fireMain(t)
			}
		case protocol.FireAlt:
			if t.PowerUps > 0 {
				e.fireBeam(t)
			}
		}
	}
}

func (e *Engine) fireMain(t *world.Tank) {
	p := &world.Projectile{
		ID:        e.nextProjectile,
		Location:  t.Location,
		Direction: t.Aim,
		Owner:     t.ID,
	}
	e.nextProjectile++
	e.world.Projectiles[p.ID] = p
	t.Cooldown = e.cfg.FramesPerShot

	e.emit(CmdShot, core.ShotEvent{
		Time:         e.now,
		Tick:         e.tick,
		TankID:       t.ID,
		ProjectileID: p.ID,
		Origin:       position(p.Location),
		Direction:    position(p.Direction),
	})
}

func (e *Engine) fireBeam(t *world.Tank) {
	t.PowerUps--
	b := &world.Beam{
		ID:        e.nextBeam,
		Origin:    t.Location,
		Direction: t.Aim,
		Owner:     t.ID,
	}
	e.nextBeam++
	e.world.Beams[b.ID] = b

	var victims []int
	for _, other := range e.tanks() {
		if other.ID == t.ID || !other.Alive() {
			continue
		}
		if !rayHitsCircle(b.Origin, b.Direction, other.Location, world.TankRadius) {
			continue
		}
		other.HitPoints = 0
		other.Died = true
		t.Score++
		victims = append(victims, other.ID)
		e.emitKill(t, other, core.WeaponBeam)
	}

	e.emit(CmdBeam, core.BeamEvent{
		Time:      e.now,
		Tick:      e.tick,
		TankID:    t.ID,
		BeamID:    b.ID,
		Origin:    position(b.Origin),
		Direction: position(b.Direction),
		Victims:   victims,
	})
}

func (e *Engine) advanceProjectiles() {
	tanks := e.tanks()
	for _, id := range slices.Sorted(maps.Keys(e.world.Projectiles)) {
		p := e.world.Projectiles[id]
		if p.Died {
			continue
		}
		p.Location = p.Location.Add(p.Direction.Scale(e.cfg.ProjectileSpeed))
		if !e.world.InBounds(p.Location) || e.world.HitsWall(p.Location, 0) {
			p.Died = true
			continue
		}

		for _, t := range tanks {
			if t.ID == p.Owner || !t.Alive() {
				continue
			}
			if t.Location.Distance(p.Location) > world.TankRadius {
				continue
			}
			p.Died = true
			t.HitPoints--
			e.emit(CmdHit, core.HitEvent{
				Time:         e.now,
				Tick:         e.tick,
				ShooterID:    p.Owner,
				VictimID:     t.ID,
				ProjectileID: p.ID,
				Position:     position(p.Location),
				RemainingHP:  t.HitPoints,
			})
			if t.HitPoints == 0 {
				t.Died = true
				if owner, ok := e.world.Tanks[p.Owner]; ok {
					owner.Score++
					e.emitKill(owner, t, core.WeaponMain)
				}
			}
			break
		}
	}
}

func (e *Engine) spawnPowerUp() {
	e.powerUpTicks++
	if e.powerUpTicks <= e.cfg.PowerUpInterval {
		return
	}
	live := 0
	for _, pu := range e.world.PowerUps {
		if !pu.Collected {
			live++
		}
	}
	if live >= e.cfg.MaxPowerUps {
		return
	}

	pu := &world.PowerUp{ID: e.nextPowerUp, Location: e.randomLocation()}
	e.nextPowerUp++
	e.world.PowerUps[pu.ID] = pu
	e.powerUpTicks = 0

	e.emit(CmdPowerUp, core.PowerUpEvent{
		Time:      e.now,
		Tick:      e.tick,
		PowerUpID: pu.ID,
		TankID:    -1,
		Kind:      core.PowerUpSpawned,
		Position:  position(pu.Location),
	})
}

func (e *Engine) collectPowerUps() {
	tanks := e.tanks()
	for _, id := range slices.Sorted(maps.Keys(e.world.PowerUps)) {
		pu := e.world.PowerUps[id]
		if pu.Collected {
			continue
		}
		for _, t := range tanks {
			if !t.Alive() || t.Location.Distance(pu.Location) > world.PowerUpRadius {
				continue
			}
			pu.Collected = true
			t.PowerUps++
			e.emit(CmdPowerUp, core.PowerUpEvent{
				Time:      e.now,
				Tick:      e.tick,
				PowerUpID: pu.ID,
				TankID:    t.ID,
				Kind:      core.PowerUpCollected,
				Position:  position(pu.Location),
			})
			break
		}
	}
}

func (e *Engine) respawn() {
	for _, t := range e.tanks() {
		// Tanks that died this tick wait until their death has been broadcast.
		if t.Disconnected || t.HitPoints > 0 || t.Died {
			continue
		}
		t.RespawnWait++
		if t.RespawnWait < e.cfg.RespawnRate {
			continue
		}
		t.HitPoints = world.MaxHitPoints
		t.RespawnWait = 0
		t.Cooldown = 0
		t.Location = e.randomLocation()

		e.emit(CmdRespawn, core.LifecycleEvent{
			Time:     e.now,
			Tick:     e.tick,
			TankID:   t.ID,
			Name:     t.Name,
			Kind:     core.LifecycleRespawned,
			Score:    t.Score,
			Position: position(t.Location),
		})
	}
}

func (e *Engine) reap() {
	for _, t := range e.world.Tanks {
		if t.Disconnected {
			t.HitPoints = 0
			t.Died = true
		}
	}
}

func (e *Engine) cleanup() {
	clear(e.world.Beams)
	for id, p := range e.world.Projectiles {
		if p.Died {
			delete(e.world.Projectiles, id)
		}
	}
	for id, pu := range e.world.PowerUps {
		if pu.Collected {
			delete(e.world.PowerUps, id)
		}
	}
	for id, t := range e.world.Tanks {
		if t.Disconnected {
			delete(e.world.Tanks, id)
			delete(e.latest, id)
			delete(e.pendingFire, id)
			e.log.Info("Tank removed", "tankID", id, "name", t.Name, "score", t.Score)
			e.emit(CmdPlayerLeave, core.LifecycleEvent{
				Time:     e.now,
				Tick:     e.tick,
				TankID:   id,
				Name:     t.Name,
				Kind:     core.LifecycleLeft,
				Score:    t.Score,
				Position: position(t.Location),
			})
			continue
		}
		t.Died = false
		t.Joined = false
	}
}

// tanks returns the live map's tanks in id order.
func (e *Engine) tanks() []*world.Tank {
	ids := slices.Sorted(maps.Keys(e.world.Tanks))
	out := make([]*world.Tank, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.world.Tanks[id])
	}
	return out
}

func (e *Engine) publishStats(d time.Duration) {
	s := &Stats{
		Tick:         e.tick,
		Players:      len(e.world.Tanks),
		Projectiles:  len(e.world.Projectiles),
		PowerUps:     len(e.world.PowerUps),
		QueueLength:  e.inbox.Len(),
		TickDuration: d,
		Scores:       make(map[string]int, len(e.world.Tanks)),
	}
	for _, t := range e.world.Tanks {
		s.Scores[core.ScoreKey(t.Name, t.ID)] = t.Score
	}
	e.stats.Store(s)
	e.metrics.record(s)

	if e.tick%statsEveryTicks == 0 {
		e.emit(CmdTickStats, core.TickStats{
			Time:         e.now,
			Tick:         s.Tick,
			Players:      s.Players,
			Projectiles:  s.Projectiles,
			PowerUps:     s.PowerUps,
			QueueLength:  s.QueueLength,
			TickDuration: s.TickDuration,
		})
	}
}

func position(v vector.Vector2D) core.Position2D {
	return core.Position2D{X: v.X, Y: v.Y}
}
