package gormstorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/abporter521/CS3500-TankWars/internal/storage/memory/export/v1"
	"github.com/abporter521/CS3500-TankWars/pkg/core"
)

func TestLoadMatch_RoundTrip(t *testing.T) {
	b := newTestBackend(t)
	m := startMatch(t, b)

	alice := &core.Player{TankID: 0, Name: "alice", JoinTime: start}
	bob := &core.Player{TankID: 1, Name: "bob", JoinTime: start}
	require.NoError(t, b.AddPlayer(alice))
	require.NoError(t, b.AddPlayer(bob))

	require.NoError(t, b.RecordShot(&core.ShotEvent{Time: start, Tick: 7, TankID: 0, Direction: core.Position2D{X: 1}}))
	require.NoError(t, b.RecordShot(&core.ShotEvent{Time: start, Tick: 3, TankID: 1, Direction: core.Position2D{Y: 1}}))
	require.NoError(t, b.RecordKill(&core.KillEvent{Time: start, Tick: 9, KillerID: 0, VictimID: 1, Weapon: core.WeaponBeam}))
	require.NoError(t, b.RecordBeam(&core.BeamEvent{Time: start, Tick: 9, TankID: 0, Direction: core.Position2D{X: 1}, Victims: []int{1}}))
	require.NoError(t, b.RecordTickStats(&core.TickStats{Time: start, Tick: 60, Players: 2}))
	require.NoError(t, b.EndMatch())

	data, err := LoadMatch(b.DB(), m.ID)
	require.NoError(t, err)

	assert.Equal(t, "m-1", data.Match.UUID)
	assert.Len(t, data.Match.Walls, 2)
	assert.False(t, data.Match.EndTime.IsZero())
	require.Len(t, data.Players, 2)
	assert.Equal(t, "alice", data.Players[0].Name)

	require.Len(t, data.Shots, 2)
	assert.Equal(t, uint64(3), data.Shots[0].Tick)
	assert.Equal(t, uint64(7), data.Shots[1].Tick)
	require.Len(t, data.Kills, 1)
	assert.Equal(t, core.WeaponBeam, data.Kills[0].Weapon)
	require.Len(t, data.Beams, 1)
	assert.Equal(t, []int{1}, data.Beams[0].Victims)
	assert.Len(t, data.TickStats, 1)

	export := v1.Build(data)
	assert.Equal(t, "m-1", export.MatchUUID)
	assert.Len(t, export.Players, 2)
}

func TestLoadMatch_Missing(t *testing.T) {
	b := newTestBackend(t)
	_, err := LoadMatch(b.DB(), 42)
	assert.ErrorContains(t, err, "error getting match 42")
}
