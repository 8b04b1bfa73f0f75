package protocol

import (
	"errors"
	"math"
	"testing"

	"github.com/abporter521/CS3500-TankWars/internal/vector"
	"github.com/abporter521/CS3500-TankWars/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_AllKinds(t *testing.T) {
	tank := world.Tank{
		ID:           7,
		Location:     vector.New(-12.5, 300.25),
		Orientation:  vector.New(-1, 0),
		Aim:          vector.New(0.6, -0.8),
		Name:         "alice",
		HitPoints:    2,
		Score:        5,
		Died:         true,
		Disconnected: true,
		Joined:       true,
		PowerUps:     1,
	}
	entities := []Entity{
		tank,
		world.Wall{ID: 3, P1: vector.New(-475, 475), P2: vector.New(475, 475)},
		world.Projectile{ID: 11, Location: vector.New(1.125, 2), Direction: vector.New(0, 1), Died: true, Owner: 7},
		world.PowerUp{ID: 2, Location: vector.New(99, -99), Collected: true},
		world.Beam{ID: 4, Origin: vector.New(10, 10), Direction: vector.New(1, 0), Owner: 7},
	}

	for _, e := range entities {
		t.Run(string(e.Kind()), func(t *testing.T) {
			line, err := EncodeEntity(e)
			require.NoError(t, err)
			assert.Equal(t, byte('\n'), line[len(line)-1])

			decoded, err := DecodeLine(line[:len(line)-1])
			require.NoError(t, err)
			assert.Equal(t, e, decoded)
		})
	}
}

func TestEncode_ServerCountersNotSent(t *testing.T) {
	tank := world.NewTank(1, "bob", vector.Vector2D{})
	tank.Cooldown = 5
	tank.RespawnWait = 9

	line, err := EncodeEntity(tank)
	require.NoError(t, err)
	assert.NotContains(t, string(line), "Cooldown")
	assert.NotContains(t, string(line), "RespawnWait")
	assert.Contains(t, string(line), `"tank":1`)
}

func TestDecodeLine_OriginalClientFields(t *testing.T) {
	line := []byte(`{"tank":0,"loc":{"x":10,"y":-20},"bdir":{"x":0,"y":-1},"tdir":{"x":1,"y":0},"name":"a","hp":3,"score":0,"died":false,"dc":false,"join":true}`)

	e, err := DecodeLine(line)
	require.NoError(t, err)
	tank, ok := e.(world.Tank)
	require.True(t, ok)
	assert.Equal(t, vector.New(10, -20), tank.Location)
	assert.Equal(t, 3, tank.HitPoints)
	assert.True(t, tank.Joined)
}

func TestDecodeLine_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"invalid json", `{"tank":`},
		{"no discriminator", `{"loc":{"x":1,"y":2}}`},
		{"two discriminators", `{"tank":1,"proj":2}`},
		{"not an object", `[1,2,3]`},
		{"bad field type", `{"proj":"seven"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLine([]byte(tt.line))
			require.Error(t, err)
			var mm *MalformedMessage
			assert.True(t, errors.As(err, &mm))
		})
	}
}

func TestConsume_RetainsPartialLine(t *testing.T) {
	buf := []byte("{\"wall\":0,\"p1\":{\"x\":0,\"y\":0},\"p2\":{\"x\":0,\"y\":100}}\n{\"proj\":1,\"loc\":{\"x\":0,")

	entities, consumed, errs := Consume(buf)
	assert.Empty(t, errs)
	require.Len(t, entities, 1)
	assert.Equal(t, world.KindWall, entities[0].Kind())
	assert.Equal(t, `{"proj":1,"loc":{"x":0,`, string(buf[consumed:]))
}

func TestConsume_NoNewline(t *testing.T) {
	entities, consumed, errs := Consume([]byte(`{"tank":1}`))
	assert.Empty(t, entities)
	assert.Empty(t, errs)
	assert.Equal(t, 0, consumed)
}

func TestConsume_SkipsMalformedLines(t *testing.T) {
	buf := []byte("garbage\n{\"power\":3,\"loc\":{\"x\":1,\"y\":1},\"died\":false}\n\n{\"what\":1}\n")

	entities, consumed, errs := Consume(buf)
	assert.Len(t, errs, 2)
	require.Len(t, entities, 1)
	assert.Equal(t, world.PowerUp{ID: 3, Location: vector.New(1, 1)}, entities[0])
	assert.Equal(t, len(buf), consumed)
}

func TestEncodeSnapshot_OrderAndWallsExcluded(t *testing.T) {
	w := world.New(1000)
	w.Walls[0] = &world.Wall{ID: 0}
	tank := world.NewTank(1, "a", vector.Vector2D{})
	w.Tanks[1] = &tank
	w.Projectiles[5] = &world.Projectile{ID: 5}
	w.Beams[2] = &world.Beam{ID: 2}
	w.PowerUps[9] = &world.PowerUp{ID: 9}

	frame, err := EncodeSnapshot(w.Snapshot())
	require.NoError(t, err)
	entities, consumed, errs := Consume(frame)
	assert.Empty(t, errs)
	assert.Positive(t, consumed)
	require.Len(t, entities, 4)
	assert.Equal(t, world.KindTank, entities[0].Kind())
	assert.Equal(t, world.KindProjectile, entities[1].Kind())
	assert.Equal(t, world.KindBeam, entities[2].Kind())
	assert.Equal(t, world.KindPowerUp, entities[3].Kind())
}

func TestEncodeSnapshot_SkipsUnencodableEntity(t *testing.T) {
	w := world.New(1000)
	good := world.NewTank(1, "a", vector.Vector2D{})
	bad := world.NewTank(2, "b", vector.New(math.NaN(), 0))
	w.Tanks[1] = &good
	w.Tanks[2] = &bad
	w.PowerUps[9] = &world.PowerUp{ID: 9}

	frame, err := EncodeSnapshot(w.Snapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode tank")

	entities, _, errs := Consume(frame)
	assert.Empty(t, errs)
	require.Len(t, entities, 2)
	assert.Equal(t, 1, entities[0].(world.Tank).ID)
	assert.Equal(t, world.KindPowerUp, entities[1].Kind())
}
