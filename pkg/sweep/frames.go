// Package sweep carries a twist-free reference frame along a 3D path and
// sweeps circular tubes with it.
package sweep

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
)

// collapse is the length below which a projected normal is treated as zero.
const collapse = 1e-6

// Frame is an orthonormal basis at one path point. Binormal = Tangent x
// Normal, so (Tangent, Normal, Binormal) is right-handed.
type Frame struct {
	Point    v3.Vec
	Tangent  v3.Vec
	Normal   v3.Vec
	Binormal v3.Vec
}

// Ring returns the point at angle theta on the circle of radius r around
// the frame, measured from Normal towards Binormal.
func (f Frame) Ring(r, theta float64) v3.Vec {
	s, c := math.Sincos(theta)
	return f.Point.Add(f.Normal.MulScalar(r * c)).Add(f.Binormal.MulScalar(r * s))
}

// Local maps profile coordinates (u along Normal, v along Binormal) to world
// space.
func (f Frame) Local(u, v float64) v3.Vec {
	return f.Point.Add(f.Normal.MulScalar(u)).Add(f.Binormal.MulScalar(v))
}

// Frames computes parallel-transport frames for the points of s, which must
// already be free of consecutive duplicates. The first normal is up
// projected onto the plane perpendicular to the first tangent; a zero or
// parallel up falls back to an arbitrary perpendicular. Each later normal is
// the previous one projected onto the plane perpendicular to the new
// tangent, so no rotation accumulates along straight runs.
//
// For closed paths the residual rotation between the last frame and the
// first is spread evenly over the loop so the seam does not twist.
func Frames(s geom.SweepPath, up v3.Vec) []Frame {
	pts := s.Points
	n := len(pts)
	if n < 2 {
		return nil
	}
	closed := s.Closed && n >= 3

	frames := make([]Frame, n)
	for i := range pts {
		frames[i].Point = pts[i]
		frames[i].Tangent = tangent(pts, i, closed)
	}

	t0 := frames[0].Tangent
	nrm := up.Sub(t0.MulScalar(up.Dot(t0)))
	if nrm.Length() < collapse {
		nrm = seed(t0)
	}
	nrm = nrm.MulScalar(1 / nrm.Length())
	frames[0].Normal = nrm
	for i := 1; i < n; i++ {
		nrm = transport(nrm, frames[i].Tangent)
		frames[i].Normal = nrm
	}

	if closed {
		// Carry the last normal once more onto the first tangent and measure
		// how far it has rotated from where it started.
		end := transport(frames[n-1].Normal, t0)
		phi := math.Atan2(frames[0].Normal.Cross(end).Dot(t0), frames[0].Normal.Dot(end))
		if math.Abs(phi) > 1e-12 {
			for i := 1; i < n; i++ {
				f := &frames[i]
				f.Normal = rotate(f.Normal, f.Tangent, -phi*float64(i)/float64(n))
			}
		}
	}

	for i := range frames {
		f := &frames[i]
		f.Binormal = f.Tangent.Cross(f.Normal)
	}
	return frames
}

// tangent returns the unit direction of travel at point i, averaging the
// incoming and outgoing directions at interior points.
func tangent(pts []v3.Vec, i int, closed bool) v3.Vec {
	n := len(pts)
	var in, out v3.Vec
	hasIn, hasOut := i > 0 || closed, i < n-1 || closed
	if hasIn {
		in = unit(pts[i].Sub(pts[(i-1+n)%n]))
	}
	if hasOut {
		out = unit(pts[(i+1)%n].Sub(pts[i]))
	}
	switch {
	case hasIn && hasOut:
		t := in.Add(out)
		if t.Length() < collapse {
			// The path doubles back on itself.
			return in
		}
		return unit(t)
	case hasIn:
		return in
	default:
		return out
	}
}

// transport projects the normal onto the plane perpendicular to t and
// re-normalizes it, re-seeding from a world axis if it collapses.
func transport(nrm, t v3.Vec) v3.Vec {
	p := nrm.Sub(t.MulScalar(nrm.Dot(t)))
	l := p.Length()
	if l < collapse {
		kernel.Logger().Debug().Msg("sweep: transported normal collapsed, re-seeding")
		return seed(t)
	}
	return p.MulScalar(1 / l)
}

// seed returns a unit vector perpendicular to t, built from the world axis
// least parallel to it.
func seed(t v3.Vec) v3.Vec {
	axis := v3.Vec{X: 1}
	ax, ay, az := math.Abs(t.X), math.Abs(t.Y), math.Abs(t.Z)
	switch {
	case ay < ax && ay <= az:
		axis = v3.Vec{Y: 1}
	case az < ax && az < ay:
		axis = v3.Vec{Z: 1}
	}
	return unit(t.Cross(axis))
}

// rotate turns v about the unit axis k by angle a (Rodrigues).
func rotate(v, k v3.Vec, a float64) v3.Vec {
	s, c := math.Sincos(a)
	return v.MulScalar(c).Add(k.Cross(v).MulScalar(s)).Add(k.MulScalar(k.Dot(v) * (1 - c)))
}

func unit(v v3.Vec) v3.Vec {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.MulScalar(1 / l)
}
