package engine

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/dispatcher"
	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	"github.com/abporter521/CS3500-TankWars/internal/vector"
	"github.com/abporter521/CS3500-TankWars/internal/world"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *frameSink) Broadcast(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

func (f *frameSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

type eventLog struct {
	events []dispatcher.Event
}

func (l *eventLog) Dispatch(e dispatcher.Event) (any, error) {
	l.events = append(l.events, e)
	return nil, nil
}

func (l *eventLog) commands(cmd string) []dispatcher.Event {
	var out []dispatcher.Event
	for _, e := range l.events {
		if e.Command == cmd {
			out = append(out, e)
		}
	}
	return out
}

func testSettings() Settings {
	return Settings{
		UniverseSize:    2000,
		MSPerFrame:      17,
		FramesPerShot:   80,
		RespawnRate:     300,
		MaxPowerUps:     0,
		PowerUpInterval: 1650,
	}
}

func newTestEngine(t *testing.T, mutate ...func(*Settings)) (*Engine, *eventLog) {
	t.Helper()
	s := testSettings()
	for _, m := range mutate {
		m(&s)
	}
	rec := &eventLog{}
	e, err := New(Dependencies{
		Settings:    s,
		Broadcaster: &frameSink{},
		Recorder:    rec,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Rand:        rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	return e, rec
}

func addTank(e *Engine, id int, x, y float64) *world.Tank {
	tank := world.NewTank(id, "p", vector.New(x, y))
	tank.Joined = false
	e.world.Tanks[id] = &tank
	e.latest[id] = protocol.IdleCommand
	return &tank
}

func decodeFrame(t *testing.T, frame []byte) []protocol.Entity {
	t.Helper()
	entities, consumed, errs := protocol.Consume(frame)
	require.Empty(t, errs)
	require.Equal(t, len(frame), consumed)
	return entities
}

func frameTank(t *testing.T, frame []byte, id int) world.Tank {
	t.Helper()
	for _, ent := range decodeFrame(t, frame) {
		if tank, ok := ent.(world.Tank); ok && tank.ID == id {
			return tank
		}
	}
	t.Fatalf("tank %d not in frame", id)
	return world.Tank{}
}

func TestStep_MoveLeftTurnsAndDisplaces(t *testing.T) {
	e, _ := newTestEngine(t)
	tank := addTank(e, 0, 0, 0)

	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{
		Moving: protocol.MoveLeft,
		Fire:   protocol.FireNone,
		Aim:    vector.New(0, -1),
	}})
	frame := e.Step()

	assert.InDelta(t, -DefaultEngineForce, tank.Location.X, 1e-9)
	assert.Equal(t, vector.New(-1, 0), tank.Orientation)
	assert.Equal(t, tank.Location, frameTank(t, frame, 0).Location)

	// The standing command keeps applying until replaced.
	e.Step()
	assert.InDelta(t, -2*DefaultEngineForce, tank.Location.X, 1e-9)
}

func TestStep_AimIsNormalizedAndZeroKeepsOld(t *testing.T) {
	e, _ := newTestEngine(t)
	tank := addTank(e, 0, 0, 0)

	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveNone, Aim: vector.New(3, 4)}})
	e.Step()
	assert.InDelta(t, 0.6, tank.Aim.X, 1e-9)
	assert.InDelta(t, 0.8, tank.Aim.Y, 1e-9)

	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveNone}})
	e.Step()
	assert.InDelta(t, 0.6, tank.Aim.X, 1e-9)
}

func TestStep_WallBlocksMovement(t *testing.T) {
	e, _ := newTestEngine(t, func(s *Settings) {
		s.Walls = []world.Wall{{P1: vector.New(0, -100), P2: vector.New(0, 100)}}
	})
	// Wall rectangle grown by the tank radius spans x in [-55, 55].
	tank := addTank(e, 0, -56, 0)
	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveRight, Aim: vector.Up}})
	e.Step()

	assert.Equal(t, -56.0, tank.Location.X)
	assert.Equal(t, vector.New(1, 0), tank.Orientation)
}

func TestStep_TankClampedToArena(t *testing.T) {
	e, _ := newTestEngine(t, func(s *Settings) { s.UniverseSize = 200 })
	tank := addTank(e, 0, 0, 99)
	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveDown, Aim: vector.Up}})
	e.Step()

	assert.Equal(t, 100.0, tank.Location.Y)
}

func TestStep_MainFireRespectsCooldown(t *testing.T) {
	e, rec := newTestEngine(t, func(s *Settings) { s.FramesPerShot = 3 })
	addTank(e, 0, 0, 0)

	fire := Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveNone, Fire: protocol.FireMain, Aim: vector.Up}}
	fired := []bool{}
	for range 5 {
		e.Submit(fire)
		before := len(rec.commands(CmdShot))
		e.Step()
		fired = append(fired, len(rec.commands(CmdShot)) > before)
	}

	assert.Equal(t, []bool{true, false, false, true, false}, fired)
	shots := rec.commands(CmdShot)
	assert.Equal(t, 0, shots[0].Payload.(core.ShotEvent).ProjectileID)
	assert.Equal(t, 1, shots[1].Payload.(core.ShotEvent).ProjectileID)
}

func TestStep_FireRequestIsOneShot(t *testing.T) {
	e, rec := newTestEngine(t, func(s *Settings) { s.FramesPerShot = 0 })
	addTank(e, 0, 0, 0)

	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveNone, Fire: protocol.FireMain, Aim: vector.Up}})
	e.Step()
	e.Step()
	e.Step()

	assert.Len(t, rec.commands(CmdShot), 1)
}

func TestStep_ProjectileAdvancesAndLeavesArena(t *testing.T) {
	e, _ := newTestEngine(t, func(s *Settings) { s.UniverseSize = 100 })
	addTank(e, 0, 0, 0)
	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveNone, Fire: protocol.FireMain, Aim: vector.Up}})

	e.Step()
	require.Len(t, e.world.Projectiles, 1)
	assert.Equal(t, vector.New(0, -25), e.world.Projectiles[0].Location)

	e.Step()
	require.Len(t, e.world.Projectiles, 1)
	frame := e.Step()

	var died bool
	for _, ent := range decodeFrame(t, frame) {
		if p, ok := ent.(world.Projectile); ok {
			died = p.Died
		}
	}
	assert.True(t, died, "projectile past the edge is reported dead once")
	assert.Empty(t, e.world.Projectiles)
}

func TestStep_ProjectileStopsAtWall(t *testing.T) {
	e, _ := newTestEngine(t, func(s *Settings) {
		s.Walls = []world.Wall{{P1: vector.New(-100, -50), P2: vector.New(100, -50)}}
	})
	e.world.Projectiles[0] = &world.Projectile{ID: 0, Location: vector.New(0, 0), Direction: vector.Up, Owner: 7}

	e.Step()
	assert.Empty(t, e.world.Projectiles)
}

func TestStep_ProjectileHitsTank(t *testing.T) {
	e, rec := newTestEngine(t)
	victim := addTank(e, 0, 0, 0)
	addTank(e, 1, 500, 500)
	e.world.Projectiles[0] = &world.Projectile{ID: 0, Location: vector.New(0, 40), Direction: vector.Up, Owner: 1}

	frame := e.Step()

	assert.Equal(t, 2, victim.HitPoints)
	for _, ent := range decodeFrame(t, frame) {
		if p, ok := ent.(world.Projectile); ok {
			assert.True(t, p.Died)
		}
	}
	assert.Empty(t, e.world.Projectiles)
	hits := rec.commands(CmdHit)
	require.Len(t, hits, 1)
	assert.Equal(t, core.HitEvent{
		Time:         hits[0].Timestamp,
		Tick:         1,
		ShooterID:    1,
		VictimID:     0,
		ProjectileID: 0,
		Position:     core.Position2D{X: 0, Y: 15},
		RemainingHP:  2,
	}, hits[0].Payload)
}

func TestStep_ProjectileIgnoresOwner(t *testing.T) {
	e, _ := newTestEngine(t)
	owner := addTank(e, 0, 0, 0)
	e.world.Projectiles[0] = &world.Projectile{ID: 0, Location: vector.New(0, 20), Direction: vector.Up, Owner: 0}

	e.Step()
	assert.Equal(t, world.MaxHitPoints, owner.HitPoints)
	assert.Len(t, e.world.Projectiles, 1)
}

func TestStep_LastHitKillsAndScores(t *testing.T) {
	e, rec := newTestEngine(t)
	victim := addTank(e, 0, 0, 0)
	victim.HitPoints = 1
	shooter := addTank(e, 1, 500, 500)
	e.world.Projectiles[0] = &world.Projectile{ID: 0, Location: vector.New(0, 40), Direction: vector.Up, Owner: 1}

	frame := e.Step()

	got := frameTank(t, frame, 0)
	assert.Equal(t, 0, got.HitPoints)
	assert.True(t, got.Died)
	assert.Equal(t, 1, shooter.Score)
	assert.False(t, victim.Died, "died flag is cleared after the broadcast")
	require.Len(t, rec.commands(CmdKill), 1)
	assert.Equal(t, core.WeaponMain, rec.commands(CmdKill)[0].Payload.(core.KillEvent).Weapon)
}

func TestStep_BeamKillsTanksAhead(t *testing.T) {
	e, rec := newTestEngine(t)
	shooter := addTank(e, 0, 0, 0)
	shooter.PowerUps = 1
	ahead := addTank(e, 1, 10, -300)
	behind := addTank(e, 2, 0, 300)
	aside := addTank(e, 3, 200, -300)

	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveNone, Fire: protocol.FireAlt, Aim: vector.Up}})
	frame := e.Step()

	assert.Equal(t, 0, ahead.HitPoints)
	assert.Equal(t, world.MaxHitPoints, behind.HitPoints)
	assert.Equal(t, world.MaxHitPoints, aside.HitPoints)
	assert.Equal(t, 1, shooter.Score)
	assert.Equal(t, 0, shooter.PowerUps)

	var beams []world.Beam
	for _, ent := range decodeFrame(t, frame) {
		if b, ok := ent.(world.Beam); ok {
			beams = append(beams, b)
		}
	}
	require.Len(t, beams, 1)
	assert.Equal(t, 0, beams[0].Owner)
	assert.Empty(t, e.world.Beams, "beams live for one frame")

	beamEvents := rec.commands(CmdBeam)
	require.Len(t, beamEvents, 1)
	assert.Equal(t, []int{1}, beamEvents[0].Payload.(core.BeamEvent).Victims)
}

func TestStep_AltFireWithoutPowerUpDoesNothing(t *testing.T) {
	e, rec := newTestEngine(t)
	addTank(e, 0, 0, 0)
	target := addTank(e, 1, 0, -300)

	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveNone, Fire: protocol.FireAlt, Aim: vector.Up}})
	e.Step()

	assert.Equal(t, world.MaxHitPoints, target.HitPoints)
	assert.Empty(t, rec.commands(CmdBeam))
}

func TestStep_PowerUpCollected(t *testing.T) {
	e, rec := newTestEngine(t)
	tank := addTank(e, 0, 0, 0)
	e.world.PowerUps[0] = &world.PowerUp{ID: 0, Location: vector.New(10, 0)}

	frame := e.Step()

	assert.Equal(t, 1, tank.PowerUps)
	for _, ent := range decodeFrame(t, frame) {
		if pu, ok := ent.(world.PowerUp); ok {
			assert.True(t, pu.Collected)
		}
	}
	assert.Empty(t, e.world.PowerUps)
	require.Len(t, rec.commands(CmdPowerUp), 1)
	assert.Equal(t, core.PowerUpCollected, rec.commands(CmdPowerUp)[0].Payload.(core.PowerUpEvent).Kind)
}

func TestStep_PowerUpSpawnRespectsIntervalAndCap(t *testing.T) {
	e, rec := newTestEngine(t, func(s *Settings) {
		s.MaxPowerUps = 1
		s.PowerUpInterval = 2
	})

	e.Step()
	e.Step()
	assert.Empty(t, e.world.PowerUps)
	e.Step()
	assert.Len(t, e.world.PowerUps, 1)

	for range 10 {
		e.Step()
	}
	assert.Len(t, e.world.PowerUps, 1)
	spawn := rec.commands(CmdPowerUp)[0].Payload.(core.PowerUpEvent)
	assert.Equal(t, -1, spawn.TankID)
	assert.True(t, e.world.InBounds(e.world.PowerUps[0].Location))
}

func TestStep_RespawnAfterWait(t *testing.T) {
	e, rec := newTestEngine(t, func(s *Settings) { s.RespawnRate = 5 })
	tank := addTank(e, 0, 0, 0)
	tank.HitPoints = 0
	tank.RespawnWait = 4

	e.Step()

	assert.Equal(t, world.MaxHitPoints, tank.HitPoints)
	assert.False(t, tank.Died)
	assert.Equal(t, 0, tank.RespawnWait)
	assert.Len(t, rec.commands(CmdRespawn), 1)
}

func TestStep_DeadTankWaitsBeforeRespawn(t *testing.T) {
	e, _ := newTestEngine(t, func(s *Settings) { s.RespawnRate = 2 })
	victim := addTank(e, 0, 0, 0)
	victim.HitPoints = 1
	addTank(e, 1, 500, 500)
	e.world.Projectiles[0] = &world.Projectile{ID: 0, Location: vector.New(0, 40), Direction: vector.Up, Owner: 1}

	e.Step()
	assert.Equal(t, 0, victim.HitPoints)
	e.Step()
	assert.Equal(t, 0, victim.HitPoints)
	e.Step()
	assert.Equal(t, world.MaxHitPoints, victim.HitPoints)
}

func TestStep_DeadTankIgnoresCommands(t *testing.T) {
	e, rec := newTestEngine(t)
	tank := addTank(e, 0, 0, 0)
	tank.HitPoints = 0

	e.Submit(Command{TankID: 0, Command: protocol.ControlCommand{Moving: protocol.MoveLeft, Fire: protocol.FireMain, Aim: vector.Up}})
	e.Step()

	assert.Equal(t, 0.0, tank.Location.X)
	assert.Empty(t, rec.commands(CmdShot))
}

func TestStep_JoinAndLeave(t *testing.T) {
	e, rec := newTestEngine(t)

	id := e.NextTankID()
	assert.Equal(t, 0, id)
	assert.Equal(t, 1, e.NextTankID())

	e.Submit(Join{TankID: id, Name: "alice", Address: "127.0.0.1:5000"})
	frame := e.Step()
	joined := frameTank(t, frame, id)
	assert.True(t, joined.Joined)
	assert.Equal(t, "alice", joined.Name)
	assert.Equal(t, world.MaxHitPoints, joined.HitPoints)
	assert.False(t, e.world.Tanks[id].Joined)

	e.Submit(Leave{TankID: id})
	frame = e.Step()
	left := frameTank(t, frame, id)
	assert.True(t, left.Disconnected)
	assert.True(t, left.Died)
	assert.Equal(t, 0, left.HitPoints)
	assert.NotContains(t, e.world.Tanks, id)

	frame = e.Step()
	for _, ent := range decodeFrame(t, frame) {
		_, isTank := ent.(world.Tank)
		assert.False(t, isTank)
	}

	require.Len(t, rec.commands(CmdPlayerJoin), 1)
	join := rec.commands(CmdPlayerJoin)[0].Payload.(core.LifecycleEvent)
	assert.Equal(t, "127.0.0.1:5000", join.Address)
	assert.Len(t, rec.commands(CmdPlayerLeave), 1)
}

func TestStep_SpawnAvoidsWalls(t *testing.T) {
	e, _ := newTestEngine(t, func(s *Settings) {
		s.UniverseSize = 400
		s.Walls = []world.Wall{
			{P1: vector.New(-200, 0), P2: vector.New(200, 0)},
			{P1: vector.New(0, -200), P2: vector.New(0, 200)},
		}
	})
	for range 8 {
		e.Submit(Join{TankID: e.NextTankID(), Name: "t"})
	}
	e.Step()

	require.Len(t, e.world.Tanks, 8)
	for _, tank := range e.world.Tanks {
		assert.False(t, e.world.HitsWall(tank.Location, world.TankRadius), "tank %d spawned in a wall", tank.ID)
	}
}

func TestStep_StatsAndFrameCount(t *testing.T) {
	e, _ := newTestEngine(t)
	addTank(e, 0, 0, 0)
	e.Step()
	e.Step()

	s := e.Stats()
	assert.Equal(t, uint64(2), s.Tick)
	assert.Equal(t, 1, s.Players)
	assert.Equal(t, map[string]int{"p#0": 0}, s.Scores)
	assert.Equal(t, 2, e.broadcaster.(*frameSink).count())
}

func TestStep_StatsKeepSameNamesApart(t *testing.T) {
	e, _ := newTestEngine(t)
	addTank(e, 0, -500, -500).Score = 2
	addTank(e, 1, 500, 500).Score = 3
	e.Step()

	assert.Equal(t, map[string]int{"p#0": 2, "p#1": 3}, e.Stats().Scores)
}

func TestRun_StopsOnCancel(t *testing.T) {
	sink := &frameSink{}
	e, err := New(Dependencies{
		Settings:    Settings{UniverseSize: 500, MSPerFrame: 1, RespawnRate: 1},
		Broadcaster: sink,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	assert.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNew_RejectsBadSettings(t *testing.T) {
	_, err := New(Dependencies{Settings: Settings{UniverseSize: 10, MSPerFrame: 17, RespawnRate: 1}, Broadcaster: &frameSink{}})
	assert.Error(t, err)

	_, err = New(Dependencies{Settings: testSettings()})
	assert.Error(t, err)
}

func TestNew_WallIDsFollowOrder(t *testing.T) {
	e, _ := newTestEngine(t, func(s *Settings) {
		s.Walls = []world.Wall{
			{P1: vector.New(0, 0), P2: vector.New(0, 100)},
			{P1: vector.New(100, 0), P2: vector.New(200, 0)},
		}
	})
	walls := e.Walls()
	require.Len(t, walls, 2)
	assert.Equal(t, 0, walls[0].ID)
	assert.Equal(t, 1, walls[1].ID)
}

func TestRayHitsCircle(t *testing.T) {
	tests := []struct {
		name   string
		origin vector.Vector2D
		dir    vector.Vector2D
		center vector.Vector2D
		want   bool
	}{
		{"ahead", vector.New(0, 0), vector.Up, vector.New(0, -100), true},
		{"grazing", vector.New(0, 0), vector.Up, vector.New(30, -100), true},
		{"beside", vector.New(0, 0), vector.Up, vector.New(31, -100), false},
		{"behind", vector.New(0, 0), vector.Up, vector.New(0, 100), false},
		{"origin inside", vector.New(0, 0), vector.Up, vector.New(0, 10), true},
		{"zero direction", vector.New(0, 0), vector.Vector2D{}, vector.New(0, -100), false},
		{"diagonal", vector.New(0, 0), vector.New(1, 1), vector.New(100, 100), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rayHitsCircle(tt.origin, tt.dir, tt.center, world.TankRadius))
		})
	}
}
