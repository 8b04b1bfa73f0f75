// Package protocol implements the TankWars wire format: newline-terminated
// JSON objects, one entity per line, tagged by a discriminator key.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abporter521/CS3500-TankWars/internal/world"
)

// Entity is one of world.Tank, world.Wall, world.Projectile, world.PowerUp
// or world.Beam.
type Entity interface {
	Kind() world.Kind
}

// EncodeEntity returns the JSON line for e, newline included.
func EncodeEntity(e Entity) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return append(b, '\n'), nil
}

// EncodeSnapshot serializes every tank, projectile, beam and power-up of a
// snapshot into one buffer. Walls are only sent during the handshake.
// Entities that fail to encode (a NaN coordinate, say) are left out of the
// frame and reported together in the error; the frame is still usable.
func EncodeSnapshot(s world.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	var errs []error
	errs = encodeAll(enc, s.Tanks, errs)
	errs = encodeAll(enc, s.Projectiles, errs)
	errs = encodeAll(enc, s.Beams, errs)
	errs = encodeAll(enc, s.PowerUps, errs)
	return buf.Bytes(), errors.Join(errs...)
}

// encodeAll writes one line per item. A failed item writes nothing.
func encodeAll[T Entity](enc *json.Encoder, items []T, errs []error) []error {
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			errs = append(errs, fmt.Errorf("encode %s #%d: %w", items[i].Kind(), i, err))
		}
	}
	return errs
}

// DecodeLine decodes one line (without its newline) into the entity named by
// its discriminator key.
func DecodeLine(line []byte) (Entity, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, malformed(line, "invalid json", err)
	}

	var kind world.Kind
	for _, k := range world.Kinds {
		if _, ok := fields[string(k)]; !ok {
			continue
		}
		if kind != "" {
			return nil, malformed(line, fmt.Sprintf("both %q and %q present", kind, k), nil)
		}
		kind = k
	}

	switch kind {
	case world.KindTank:
		return decodeAs[world.Tank](line)
	case world.KindWall:
		return decodeAs[world.Wall](line)
	case world.KindProjectile:
		return decodeAs[world.Projectile](line)
	case world.KindPowerUp:
		return decodeAs[world.PowerUp](line)
	case world.KindBeam:
		return decodeAs[world.Beam](line)
	default:
		return nil, malformed(line, "no discriminator key", nil)
	}
}

func decodeAs[T Entity](line []byte) (Entity, error) {
	var v T
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, malformed(line, "bad "+string(v.Kind())+" fields", err)
	}
	return v, nil
}

// Consume decodes every complete line in buf. It returns the decoded
// entities, the number of bytes that may be discarded (through the last
// newline) and one error per skipped line. A trailing partial line is left
// untouched.
func Consume(buf []byte) ([]Entity, int, []error) {
	var (
		entities []Entity
		errs     []error
	)
	consumed := eachLine(buf, func(line []byte) {
		e, err := DecodeLine(line)
		if err != nil {
			errs = append(errs, err)
			return
		}
		entities = append(entities, e)
	})
	return entities, consumed, errs
}

// eachLine calls fn for every non-blank complete line and returns the offset
// just past the last newline.
func eachLine(buf []byte, fn func(line []byte)) int {
	last := bytes.LastIndexByte(buf, '\n')
	if last < 0 {
		return 0
	}
	for _, line := range bytes.Split(buf[:last], []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	return last + 1
}
