package worker

import (
	"fmt"

	"github.com/abporter521/CS3500-TankWars/internal/dispatcher"
	"github.com/abporter521/CS3500-TankWars/internal/engine"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// cmdStorePlayer carries a join from the tick to the storage writer.
const cmdStorePlayer = ":PLAYER:STORE:"

// RegisterHandlers registers a handler for every engine command.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// The join caches the player on the tick so the tank's first events
	// resolve; the backend insert runs behind a buffer.
	d.Register(cmdStorePlayer, m.handleStorePlayer, dispatcher.Buffered(500), dispatcher.Logged())
	d.Register(engine.CmdPlayerJoin, func(e dispatcher.Event) (any, error) {
		if _, err := m.handleJoin(e); err != nil {
			return nil, err
		}
		return d.Dispatch(dispatcher.Event{Command: cmdStorePlayer, Payload: e.Payload, Timestamp: e.Timestamp})
	}, dispatcher.Logged())

	d.Register(engine.CmdPlayerLeave, m.handleLifecycle, dispatcher.Buffered(500), dispatcher.Logged())
	d.Register(engine.CmdRespawn, m.handleLifecycle, dispatcher.Buffered(500), dispatcher.Logged())

	// combat events are the high-volume ones
	d.Register(engine.CmdShot, m.handleShot, dispatcher.Buffered(5000), dispatcher.Logged())
	d.Register(engine.CmdHit, m.handleHit, dispatcher.Buffered(5000), dispatcher.Logged())
	d.Register(engine.CmdKill, m.handleKill, dispatcher.Buffered(2000), dispatcher.Logged())
	d.Register(engine.CmdBeam, m.handleBeam, dispatcher.Buffered(1000), dispatcher.Logged())

	d.Register(engine.CmdPowerUp, m.handlePowerUp, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(engine.CmdTickStats, m.handleTickStats, dispatcher.Buffered(100), dispatcher.Logged())
}

// payload extracts a T from an event carrying either T or *T.
func payload[T any](e dispatcher.Event) (T, error) {
	switch v := e.Payload.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s: unexpected payload %T", e.Command, e.Payload)
}

// known fails with ErrTooEarlyForAssociation unless every tank has joined.
func (m *Manager) known(tankIDs ...int) error {
	for _, id := range tankIDs {
		if _, ok := m.deps.Players.Get(id); !ok {
			return fmt.Errorf("tank %d: %w", id, ErrTooEarlyForAssociation)
		}
	}
	return nil
}

func newPlayer(ev core.LifecycleEvent) core.Player {
	return core.Player{
		TankID:   ev.TankID,
		Name:     ev.Name,
		Address:  ev.Address,
		JoinTime: ev.Time,
		JoinTick: ev.Tick,
	}
}

// handleJoin only touches the player cache, so it is safe on the tick.
func (m *Manager) handleJoin(e dispatcher.Event) (any, error) {
	ev, err := payload[core.LifecycleEvent](e)
	if err != nil {
		return nil, err
	}
	m.deps.Players.Add(newPlayer(ev))
	return nil, nil
}

// handleStorePlayer writes a joined player to the backend and copies the
// assigned id into the cache.
func (m *Manager) handleStorePlayer(e dispatcher.Event) (any, error) {
	ev, err := payload[core.LifecycleEvent](e)
	if err != nil {
		return nil, err
	}

	player := newPlayer(ev)
	if err := m.backend.AddPlayer(&player); err != nil {
		return nil, fmt.Errorf("failed to add player %q: %w", ev.Name, err)
	}
	m.deps.Players.SetID(ev.TankID, player.ID)

	if err := m.backend.RecordLifecycle(&ev); err != nil {
		return nil, fmt.Errorf("failed to record join: %w", err)
	}
	return player.ID, nil
}

func (m *Manager) handleLifecycle(e dispatcher.Event) (any, error) {
	ev, err := payload[core.LifecycleEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.known(ev.TankID); err != nil {
		return nil, err
	}
	if ev.Name == "" {
		p, _ := m.deps.Players.Get(ev.TankID)
		ev.Name = p.Name
	}
	if ev.Kind == core.LifecycleLeft {
		m.deps.Players.SetScore(ev.TankID, ev.Score)
	}
	return nil, m.backend.RecordLifecycle(&ev)
}

func (m *Manager) handleShot(e dispatcher.Event) (any, error) {
	ev, err := payload[core.ShotEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.known(ev.TankID); err != nil {
		return nil, err
	}
	return nil, m.backend.RecordShot(&ev)
}

func (m *Manager) handleHit(e dispatcher.Event) (any, error) {
	ev, err := payload[core.HitEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.known(ev.ShooterID, ev.VictimID); err != nil {
		return nil, err
	}
	return nil, m.backend.RecordHit(&ev)
}

func (m *Manager) handleKill(e dispatcher.Event) (any, error) {
	ev, err := payload[core.KillEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.known(ev.KillerID, ev.VictimID); err != nil {
		return nil, err
	}
	m.deps.Players.AddKill(ev.KillerID)
	return nil, m.backend.RecordKill(&ev)
}

func (m *Manager) handleBeam(e dispatcher.Event) (any, error) {
	ev, err := payload[core.BeamEvent](e)
	if err != nil {
		return nil, err
	}
	if err := m.known(ev.TankID); err != nil {
		return nil, err
	}
	return nil, m.backend.RecordBeam(&ev)
}

func (m *Manager) handlePowerUp(e dispatcher.Event) (any, error) {
	ev, err := payload[core.PowerUpEvent](e)
	if err != nil {
		return nil, err
	}
	if ev.Kind == core.PowerUpCollected {
		if err := m.known(ev.TankID); err != nil {
			return nil, err
		}
	}
	return nil, m.backend.RecordPowerUp(&ev)
}

func (m *Manager) handleTickStats(e dispatcher.Event) (any, error) {
	s, err := payload[core.TickStats](e)
	if err != nil {
		return nil, err
	}
	return nil, m.backend.RecordTickStats(&s)
}
