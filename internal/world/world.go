// Package world holds the arena model: the five entity collections and the
// arena size. A World is not safe for concurrent use; the server's World is
// owned by the engine goroutine and the client's mirror is guarded by the
// session controller.
package world

import (
	"maps"
	"slices"

	"github.com/abporter521/CS3500-TankWars/internal/vector"
)

// World is the aggregate of all entities plus the arena size.
type World struct {
	Size        int
	Tanks       map[int]*Tank
	Walls       map[int]*Wall
	Projectiles map[int]*Projectile
	Beams       map[int]*Beam
	PowerUps    map[int]*PowerUp
}

// New returns an empty world with the given side length.
func New(size int) *World {
	return &World{
		Size:        size,
		Tanks:       make(map[int]*Tank),
		Walls:       make(map[int]*Wall),
		Projectiles: make(map[int]*Projectile),
		Beams:       make(map[int]*Beam),
		PowerUps:    make(map[int]*PowerUp),
	}
}

// Half returns the coordinate bound on either axis.
func (w *World) Half() float64 {
	return float64(w.Size) / 2
}

// InBounds reports whether p is inside the arena.
func (w *World) InBounds(p vector.Vector2D) bool {
	return p.Within(w.Half())
}

// HitsWall reports whether p lies inside any wall grown by margin.
func (w *World) HitsWall(p vector.Vector2D, margin float64) bool {
	for _, wall := range w.Walls {
		if wall.Bounds(margin).Contains(p) {
			return true
		}
	}
	return false
}

// Snapshot is a value copy of the world, ordered by id.
type Snapshot struct {
	Size        int
	Tanks       []Tank
	Walls       []Wall
	Projectiles []Projectile
	Beams       []Beam
	PowerUps    []PowerUp
}

// Snapshot copies every entity so the result can be serialized or read
// while the world keeps changing.
func (w *World) Snapshot() Snapshot {
	return Snapshot{
		Size:        w.Size,
		Tanks:       copyValues(w.Tanks),
		Walls:       copyValues(w.Walls),
		Projectiles: copyValues(w.Projectiles),
		Beams:       copyValues(w.Beams),
		PowerUps:    copyValues(w.PowerUps),
	}
}

// WallList returns the walls ordered by id.
func (w *World) WallList() []Wall {
	return copyValues(w.Walls)
}

func copyValues[T any](m map[int]*T) []T {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m[id])
	}
	return out
}
