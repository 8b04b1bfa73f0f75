// Package geo converts arena coordinates to and from the simplefeatures
// geometries stored by the SQL backends. Geometry is written as WKB, which
// both Postgres and SQLite can hold without spatial extensions.
package geo

import (
	"math"

	"github.com/abporter521/CS3500-TankWars/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Point returns p as an XY point.
func Point(p core.Position2D) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Type: geom.DimXY,
	})
}

// Position returns the coordinates of pt. An empty point yields the origin
// and false.
func Position(pt geom.Point) (core.Position2D, bool) {
	c, ok := pt.Coordinates()
	if !ok {
		return core.Position2D{}, false
	}
	return core.Position2D{X: c.X, Y: c.Y}, true
}

// Segment returns the line from p1 to p2.
func Segment(p1, p2 core.Position2D) geom.LineString {
	seq := geom.NewSequence([]float64{p1.X, p1.Y, p2.X, p2.Y}, geom.DimXY)
	return geom.NewLineString(seq)
}

// Ray returns the segment from origin along dir until it leaves a square
// arena of the given size centered on the origin. dir need not be normalized;
// a zero dir yields a degenerate segment at origin.
func Ray(origin, dir core.Position2D, arenaSize int) geom.LineString {
	length := math.Hypot(dir.X, dir.Y)
	if length == 0 {
		return Segment(origin, origin)
	}
	dx, dy := dir.X/length, dir.Y/length
	half := float64(arenaSize) / 2

	t := math.Inf(1)
	for _, axis := range [][2]float64{{origin.X, dx}, {origin.Y, dy}} {
		o, d := axis[0], axis[1]
		switch {
		case d > 0:
			t = math.Min(t, (half-o)/d)
		case d < 0:
			t = math.Min(t, (-half-o)/d)
		}
	}
	if t < 0 {
		t = 0
	}
	return Segment(origin, core.Position2D{X: origin.X + dx*t, Y: origin.Y + dy*t})
}

// Endpoints returns the first and last point of ls.
func Endpoints(ls geom.LineString) (p1, p2 core.Position2D, ok bool) {
	seq := ls.Coordinates()
	n := seq.Length()
	if n < 2 {
		return p1, p2, false
	}
	a, b := seq.GetXY(0), seq.GetXY(n-1)
	return core.Position2D{X: a.X, Y: a.Y}, core.Position2D{X: b.X, Y: b.Y}, true
}
