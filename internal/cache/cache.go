// Package cache keeps the players of the running match in memory so event
// handlers can resolve tank ids without a database read.
package cache

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

// PlayerCache maps tank ids to the players recorded for the current match.
// Entries stay until Reset so events for a tank that already left still
// resolve.
type PlayerCache struct {
	mu      deadlock.RWMutex
	players map[int]core.Player
	scores  map[int]int
}

func NewPlayerCache() *PlayerCache {
	return &PlayerCache{
		players: make(map[int]core.Player),
		scores:  make(map[int]int),
	}
}

// Reset drops every player, e.g. when a new match starts.
func (c *PlayerCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players = make(map[int]core.Player)
	c.scores = make(map[int]int)
}

func (c *PlayerCache) Add(p core.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players[p.TankID] = p
}

// SetID stores the backend id of a cached player. Unknown tanks are ignored.
func (c *PlayerCache) SetID(tankID int, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.players[tankID]; ok {
		p.ID = id
		c.players[tankID] = p
	}
}

func (c *PlayerCache) Get(tankID int) (core.Player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.players[tankID]
	return p, ok
}

// SetScore records the latest score reported for tankID.
func (c *PlayerCache) SetScore(tankID, score int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.players[tankID]; ok {
		c.scores[tankID] = score
	}
}

// AddKill increments the score of tankID by one.
func (c *PlayerCache) AddKill(tankID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.players[tankID]; ok {
		c.scores[tankID]++
	}
}

// Scores returns the scoreboard keyed by core.ScoreKey.
func (c *PlayerCache) Scores() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.players))
	for id, p := range c.players {
		out[core.ScoreKey(p.Name, id)] = c.scores[id]
	}
	return out
}

// Players returns every cached player ordered by tank id.
func (c *PlayerCache) Players() []core.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Player, 0, len(c.players))
	for _, p := range c.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TankID < out[j].TankID })
	return out
}

func (c *PlayerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.players)
}
