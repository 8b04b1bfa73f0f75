package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_CoversEveryLine(t *testing.T) {
	s := Schema()

	assert.Len(t, s.OneOf, 5)
	for _, kind := range []string{"tank", "wall", "proj", "power", "beam", "command"} {
		require.Contains(t, s.Definitions, kind)
		assert.Equal(t, kind, s.Definitions[kind].Title)
	}
	assert.Equal(t, "#/$defs/tank", s.OneOf[0].Ref)
}

func TestSchema_Marshals(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	defs := doc["$defs"].(map[string]any)

	tank := defs["tank"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, tank, "tdir")
	assert.Contains(t, tank, "dc")
	assert.NotContains(t, tank, "Cooldown")
	assert.NotContains(t, tank, "RespawnWait")

	cmd := defs["command"].(map[string]any)["properties"].(map[string]any)
	moving := cmd["moving"].(map[string]any)
	assert.Equal(t, []any{"none", "up", "down", "left", "right"}, moving["enum"])
}
