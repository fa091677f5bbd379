// Package geometry provides the planar types and projective transforms used
// to turn IR blob observations into display coordinates.
package geometry

import (
	"math"
	"sort"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Quad holds four points, typically the corners of a quadrilateral.
type Quad [4]Point2D

// OrderCorners returns the four points in a canonical cyclic order that does
// not depend on the order they were observed in.
//
// Points are sorted ascending by y (x breaks ties). The low-y pair is then
// made ascending in x and the high-y pair descending in x, which yields
// low-left, low-right, high-right, high-left. Points sharing a y value still
// order deterministically, but the cyclic meaning may not hold for them.
func OrderCorners(q Quad) Quad {
	out := q
	sort.Slice(out[:], func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})

	if out[0].X > out[1].X {
		out[0], out[1] = out[1], out[0]
	}
	if out[2].X < out[3].X {
		out[2], out[3] = out[3], out[2]
	}

	return out
}

// DisplayCorners returns the corners of a width x height display rectangle,
// index-aligned with the output of OrderCorners.
//
// With invertY the low-y corners of the camera image are paired with the
// bottom edge of the display, which is what an upward-y IR sensor needs.
func DisplayCorners(width, height float64, invertY bool) Quad {
	if invertY {
		return Quad{
			{X: 0, Y: height},
			{X: width, Y: height},
			{X: width, Y: 0},
			{X: 0, Y: 0},
		}
	}
	return Quad{
		{X: 0, Y: 0},
		{X: width, Y: 0},
		{X: width, Y: height},
		{X: 0, Y: height},
	}
}
