package engine

import (
	"math"

	"github.com/abporter521/CS3500-TankWars/internal/vector"
	"github.com/abporter521/CS3500-TankWars/internal/world"
)

// rayHitsCircle reports whether the ray from origin along dir passes within
// r of center. Circles entirely behind the origin are missed; a circle that
// contains the origin is hit.
func rayHitsCircle(origin, dir, center vector.Vector2D, r float64) bool {
	d := dir.Normalize()
	if d.IsZero() {
		return false
	}
	f := origin.Sub(center)
	b := 2 * f.Dot(d)
	c := f.Dot(f) - r*r
	disc := b*b - 4*c
	if disc < 0 {
		return false
	}
	far := (-b + math.Sqrt(disc)) / 2
	return far >= 0
}

// randomLocation picks a spot clear of walls and other tanks. After
// maxSpawnAttempts it settles for the last candidate.
func (e *Engine) randomLocation() vector.Vector2D {
	half := e.world.Half() - world.TankRadius
	var p vector.Vector2D
	for range maxSpawnAttempts {
		p = vector.New((e.rng.Float64()*2-1)*half, (e.rng.Float64()*2-1)*half)
		if e.world.HitsWall(p, world.TankRadius) || e.nearTank(p) {
			continue
		}
		return p
	}
	e.log.Warn("No clear spawn location found", "attempts", maxSpawnAttempts)
	return p
}

func (e *Engine) nearTank(p vector.Vector2D) bool {
	for _, t := range e.world.Tanks {
		if t.Alive() && t.Location.Distance(p) < world.TankSize {
			return true
		}
	}
	return false
}
