package client

import (
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/internal/protocol"
	"github.com/abporter521/CS3500-TankWars/internal/world"
)

// BeamLifetime is how long a beam stays visible after it arrives.
const BeamLifetime = 500 * time.Millisecond

// Mirror is the client's copy of the world, rebuilt from server frames.
// It is safe for concurrent use; renderers should read through View or
// Snapshot.
type Mirror struct {
	mu       deadlock.RWMutex
	playerID int
	world    *world.World
	beamsEnd map[int]time.Time
}

// NewMirror returns an empty mirror for the player the handshake named.
func NewMirror(playerID, size int) *Mirror {
	return &Mirror{
		playerID: playerID,
		world:    world.New(size),
		beamsEnd: make(map[int]time.Time),
	}
}

// PlayerID is the id of this client's own tank.
func (m *Mirror) PlayerID() int {
	return m.playerID
}

// Size returns the arena side length.
func (m *Mirror) Size() int {
	return m.world.Size
}

// Apply merges decoded entities into the mirror and drops expired beams.
func (m *Mirror) Apply(entities []protocol.Entity, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ent := range entities {
		switch v := ent.(type) {
		case world.Tank:
			if v.Disconnected {
				delete(m.world.Tanks, v.ID)
				continue
			}
			// A tank at zero health stays in the mirror so it can be drawn
			// as destroyed until it respawns.
			m.world.Tanks[v.ID] = &v
		case world.Projectile:
			if v.Died {
				delete(m.world.Projectiles, v.ID)
				continue
			}
			m.world.Projectiles[v.ID] = &v
		case world.PowerUp:
			if v.Collected {
				delete(m.world.PowerUps, v.ID)
				continue
			}
			m.world.PowerUps[v.ID] = &v
		case world.Wall:
			m.world.Walls[v.ID] = &v
		case world.Beam:
			m.world.Beams[v.ID] = &v
			m.beamsEnd[v.ID] = now.Add(BeamLifetime)
		}
	}
	m.expire(now)
}

// Expire drops beams older than BeamLifetime.
func (m *Mirror) Expire(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire(now)
}

func (m *Mirror) expire(now time.Time) {
	for id, end := range m.beamsEnd {
		if !now.Before(end) {
			delete(m.world.Beams, id)
			delete(m.beamsEnd, id)
		}
	}
}

// View runs fn with read access to the mirrored world. fn must not keep
// references past its return.
func (m *Mirror) View(fn func(w *world.World)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.world)
}

// Snapshot copies the mirrored world.
func (m *Mirror) Snapshot() world.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.world.Snapshot()
}

// Player returns this client's tank, if the server has sent it yet.
func (m *Mirror) Player() (world.Tank, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.world.Tanks[m.playerID]
	if !ok {
		return world.Tank{}, false
	}
	return *t, true
}
