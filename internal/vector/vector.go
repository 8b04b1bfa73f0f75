// Package vector provides the 2D vector type shared by the world model, the
// wire protocol and the simulation.
package vector

import "math"

// Vector2D is a point or direction in arena coordinates. The y axis points
// down, so "up" decreases y.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// New returns a vector with the given components.
func New(x, y float64) Vector2D {
	return Vector2D{X: x, Y: y}
}

// Up is the default orientation of a freshly spawned tank.
var Up = Vector2D{X: 0, Y: -1}

func (v Vector2D) Add(o Vector2D) Vector2D {
	return Vector2D{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector2D) Sub(o Vector2D) Vector2D {
	return Vector2D{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vector2D) Scale(s float64) Vector2D {
	return Vector2D{X: v.X * s, Y: v.Y * s}
}

func (v Vector2D) Dot(o Vector2D) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Length returns the euclidean norm.
func (v Vector2D) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Distance returns the euclidean distance between v and o.
func (v Vector2D) Distance(o Vector2D) float64 {
	return v.Sub(o).Length()
}

// IsZero reports whether both components are zero.
func (v Vector2D) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Normalize returns the unit vector in the direction of v. The zero vector
// normalizes to itself.
func (v Vector2D) Normalize() Vector2D {
	l := v.Length()
	if l == 0 {
		return v
	}
	return Vector2D{X: v.X / l, Y: v.Y / l}
}

// Clamp limits both components to [-half, half].
func (v Vector2D) Clamp(half float64) Vector2D {
	return Vector2D{X: clamp(v.X, -half, half), Y: clamp(v.Y, -half, half)}
}

// Within reports whether both components lie in [-half, half].
func (v Vector2D) Within(half float64) bool {
	return v.X >= -half && v.X <= half && v.Y >= -half && v.Y <= half
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
