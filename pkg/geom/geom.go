// Package geom is the path model shared by every generator: 2D contours and
// open/closed paths in millimetres, 3D sweep paths, and the degeneracy
// filtering that runs before triangulation or sweeping.
package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Epsilon is the distance below which two points are treated as the same
// point, in millimetres.
const Epsilon = 1e-6

// Contour is a closed loop; the last point implicitly joins the first.
// Positive signed area (counter-clockwise) marks an outer boundary,
// negative a hole.
type Contour []v2.Vec

// Path is an ordered 2D point sequence as produced by the upstream path
// producers (font outlines, strokes, traced images).
type Path struct {
	Points []v2.Vec
	Closed bool
}

// SweepPath is the centreline a tube or channel follows.
type SweepPath struct {
	Points []v3.Vec
	Closed bool
}

// SignedArea returns the shoelace area of c.
func (c Contour) SignedArea() float64 {
	n := len(c)
	if n < 3 {
		return 0
	}
	var a float64
	for i := 0; i < n; i++ {
		p, q := c[i], c[(i+1)%n]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// Reversed returns a copy of c with the opposite winding.
func (c Contour) Reversed() Contour {
	r := make(Contour, len(c))
	for i, p := range c {
		r[len(c)-1-i] = p
	}
	return r
}

// CCW returns c wound counter-clockwise.
func (c Contour) CCW() Contour {
	if c.SignedArea() < 0 {
		return c.Reversed()
	}
	return c
}

// CW returns c wound clockwise.
func (c Contour) CW() Contour {
	if c.SignedArea() > 0 {
		return c.Reversed()
	}
	return c
}

// Translate returns c moved by d.
func (c Contour) Translate(d v2.Vec) Contour {
	r := make(Contour, len(c))
	for i, p := range c {
		r[i] = p.Add(d)
	}
	return r
}

// Lift places the contour at height z as a closed sweep path.
func (c Contour) Lift(z float64) SweepPath {
	pts := make([]v3.Vec, len(c))
	for i, p := range c {
		pts[i] = v3.Vec{X: p.X, Y: p.Y, Z: z}
	}
	return SweepPath{Points: pts, Closed: true}
}

// Lift places the path at height z.
func (p Path) Lift(z float64) SweepPath {
	pts := make([]v3.Vec, len(p.Points))
	for i, q := range p.Points {
		pts[i] = v3.Vec{X: q.X, Y: q.Y, Z: z}
	}
	return SweepPath{Points: pts, Closed: p.Closed}
}

// Contour returns the path's points as a contour regardless of Closed.
func (p Path) Contour() Contour {
	return Contour(p.Points)
}

// Length returns the length of the path, including the closing segment for
// closed paths.
func (s SweepPath) Length() float64 {
	var l float64
	for i := 1; i < len(s.Points); i++ {
		l += s.Points[i].Sub(s.Points[i-1]).Length()
	}
	if s.Closed && len(s.Points) > 2 {
		l += s.Points[0].Sub(s.Points[len(s.Points)-1]).Length()
	}
	return l
}

// Circle returns a counter-clockwise regular polygon approximating a circle.
func Circle(center v2.Vec, radius float64, segments int) Contour {
	if segments < 3 {
		segments = 3
	}
	c := make(Contour, segments)
	for i := range c {
		s, co := math.Sincos(2 * math.Pi * float64(i) / float64(segments))
		c[i] = v2.Vec{X: center.X + radius*co, Y: center.Y + radius*s}
	}
	return c
}

// Rect returns the counter-clockwise rectangle with min corner at origin.
func Rect(origin v2.Vec, w, h float64) Contour {
	return Contour{
		origin,
		{X: origin.X + w, Y: origin.Y},
		{X: origin.X + w, Y: origin.Y + h},
		{X: origin.X, Y: origin.Y + h},
	}
}
