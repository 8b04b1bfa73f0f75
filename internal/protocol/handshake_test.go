package protocol

import (
	"testing"

	"github.com/abporter521/CS3500-TankWars/internal/vector"
	"github.com/abporter521/CS3500-TankWars/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshake_RoundTrip(t *testing.T) {
	walls := []world.Wall{
		{ID: 0, P1: vector.New(-100, 0), P2: vector.New(100, 0)},
		{ID: 1, P1: vector.New(0, -100), P2: vector.New(0, 100)},
	}
	buf, err := EncodeHandshake(4, 2000, walls)
	require.NoError(t, err)

	h, consumed, ok, err := ParseHandshake(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Handshake{PlayerID: 4, Size: 2000}, h)
	assert.Equal(t, "4\n2000\n", string(buf[:consumed]))

	entities, _, errs := Consume(buf[consumed:])
	assert.Empty(t, errs)
	require.Len(t, entities, 2)
	assert.Equal(t, walls[0], entities[0])
	assert.Equal(t, walls[1], entities[1])
}

func TestParseHandshake_Incomplete(t *testing.T) {
	for _, buf := range []string{"", "4", "4\n", "4\n200"} {
		_, consumed, ok, err := ParseHandshake([]byte(buf))
		assert.NoError(t, err, buf)
		assert.False(t, ok, buf)
		assert.Zero(t, consumed, buf)
	}
}

func TestParseHandshake_NotIntegers(t *testing.T) {
	_, _, ok, err := ParseHandshake([]byte("four\n2000\n"))
	assert.False(t, ok)
	var mm *MalformedMessage
	assert.ErrorAs(t, err, &mm)
}

func TestParsePlayerName(t *testing.T) {
	name, consumed := ParsePlayerName([]byte("alice\n{\"moving\""))
	assert.Equal(t, "alice", name)
	assert.Equal(t, 6, consumed)

	name, consumed = ParsePlayerName([]byte("  bob  "))
	assert.Equal(t, "bob", name)
	assert.Equal(t, 7, consumed)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, DefaultPlayerName, SanitizeName("   "))
	assert.Equal(t, "ab", SanitizeName("a\x00b"))
	assert.Equal(t, "abcdefghijklmnop", SanitizeName("abcdefghijklmnopqrstuvwxyz"))
}
