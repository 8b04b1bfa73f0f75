package engine

import (
	"github.com/abporter521/CS3500-TankWars/internal/dispatcher"
	"github.com/abporter521/CS3500-TankWars/internal/world"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// Recorder commands. Payloads are the pkg/core event types noted beside each.
const (
	CmdPlayerJoin  = ":PLAYER:JOIN:"    // core.LifecycleEvent
	CmdPlayerLeave = ":PLAYER:LEAVE:"   // core.LifecycleEvent
	CmdRespawn     = ":PLAYER:RESPAWN:" // core.LifecycleEvent
	CmdShot        = ":SHOT:"           // core.ShotEvent
	CmdHit         = ":HIT:"            // core.HitEvent
	CmdKill        = ":KILL:"           // core.KillEvent
	CmdBeam        = ":BEAM:"           // core.BeamEvent
	CmdPowerUp     = ":POWERUP:"        // core.PowerUpEvent
	CmdTickStats   = ":TICK:STATS:"     // core.TickStats
)

// Commands lists every command the engine emits.
var Commands = []string{
	CmdPlayerJoin, CmdPlayerLeave, CmdRespawn,
	CmdShot, CmdHit, CmdKill, CmdBeam, CmdPowerUp, CmdTickStats,
}

// statsEveryTicks spaces out CmdTickStats samples, roughly once a second
// at the default frame time.
const statsEveryTicks = 60

func (e *Engine) emit(command string, payload any) {
	if e.recorder == nil {
		return
	}
	if _, err := e.recorder.Dispatch(dispatcher.Event{
		Command:   command,
		Payload:   payload,
		Timestamp: e.now,
	}); err != nil {
		e.log.Debug("Recorder rejected event", "command", command, "error", err)
	}
}

func (e *Engine) emitKill(killer, victim *world.Tank, weapon string) {
	e.log.Debug("Tank destroyed", "killer", killer.ID, "victim", victim.ID, "weapon", weapon)
	e.emit(CmdKill, core.KillEvent{
		Time:     e.now,
		Tick:     e.tick,
		KillerID: killer.ID,
		VictimID: victim.ID,
		Weapon:   weapon,
		Position: position(victim.Location),
		Distance: killer.Location.Distance(victim.Location),
	})
}
