package cache

import (
	"sync"
	"testing"

	"github.com/abporter521/CS3500-TankWars/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerCache_AddGet(t *testing.T) {
	c := NewPlayerCache()

	_, ok := c.Get(0)
	assert.False(t, ok)

	c.Add(core.Player{TankID: 0, Name: "alice"})
	c.Add(core.Player{TankID: 1, Name: "bob"})

	p, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "bob", p.Name)
	assert.Equal(t, 2, c.Len())
}

func TestPlayerCache_SetID(t *testing.T) {
	c := NewPlayerCache()
	c.Add(core.Player{TankID: 3, Name: "alice"})
	c.AddKill(3)

	c.SetID(3, 12)
	c.SetID(4, 13)

	p, ok := c.Get(3)
	require.True(t, ok)
	assert.Equal(t, uint(12), p.ID)
	assert.Equal(t, "alice", p.Name)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, map[string]int{"alice#3": 1}, c.Scores())
}

func TestPlayerCache_Reset(t *testing.T) {
	c := NewPlayerCache()
	c.Add(core.Player{TankID: 0, Name: "alice"})
	c.AddKill(0)

	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Scores())
}

func TestPlayerCache_Scores(t *testing.T) {
	c := NewPlayerCache()
	c.Add(core.Player{TankID: 0, Name: "alice"})
	c.Add(core.Player{TankID: 1, Name: "bob"})
	c.Add(core.Player{TankID: 2, Name: "alice"})

	c.AddKill(0)
	c.AddKill(0)
	c.AddKill(2)
	c.SetScore(1, 5)
	c.AddKill(9) // unknown tanks are ignored
	c.SetScore(9, 3)

	assert.Equal(t, map[string]int{"alice#0": 2, "bob#1": 5, "alice#2": 1}, c.Scores())
}

func TestPlayerCache_PlayersSorted(t *testing.T) {
	c := NewPlayerCache()
	for _, id := range []int{3, 0, 2} {
		c.Add(core.Player{TankID: id})
	}

	var ids []int
	for _, p := range c.Players() {
		ids = append(ids, p.TankID)
	}
	assert.Equal(t, []int{0, 2, 3}, ids)
}

func TestPlayerCache_Concurrent(t *testing.T) {
	c := NewPlayerCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.Add(core.Player{TankID: id, Name: "p"})
			c.AddKill(id)
			_, _ = c.Get(id)
			_ = c.Scores()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
	scores := c.Scores()
	assert.Len(t, scores, 50)
	assert.Equal(t, 1, scores["p#49"])
}
