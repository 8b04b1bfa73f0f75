package protocol

import (
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/abporter521/CS3500-TankWars/internal/world"
)

// Schema describes every line of the wire protocol: the five server entity
// kinds and the client control command. Server-only counters are left out.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		Mapper:         enumSchema,
	}

	defs := jsonschema.Definitions{}
	entities := []Entity{world.Tank{}, world.Wall{}, world.Projectile{}, world.PowerUp{}, world.Beam{}}
	oneOf := make([]*jsonschema.Schema, 0, len(entities))
	for _, e := range entities {
		kind := string(e.Kind())
		s := reflector.ReflectFromType(reflect.TypeOf(e))
		s.Version = ""
		s.Title = kind
		defs[kind] = s
		oneOf = append(oneOf, &jsonschema.Schema{Ref: "#/$defs/" + kind})
	}

	cmd := reflector.ReflectFromType(reflect.TypeOf(ControlCommand{}))
	cmd.Version = ""
	cmd.Title = "command"
	cmd.Description = "Sent by clients after the handshake, one per line."
	defs["command"] = cmd

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "TankWars wire protocol",
		Description: "One JSON object per newline-terminated line. Server lines are identified by their discriminator key.",
		Definitions: defs,
		OneOf:       oneOf,
	}
}

func enumSchema(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(Movement("")):
		return &jsonschema.Schema{Type: "string", Enum: []any{MoveNone, MoveUp, MoveDown, MoveLeft, MoveRight}}
	case reflect.TypeOf(FireMode("")):
		return &jsonschema.Schema{Type: "string", Enum: []any{FireNone, FireMain, FireAlt}}
	}
	return nil
}
