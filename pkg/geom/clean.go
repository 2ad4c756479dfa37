package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// CleanContour drops near-duplicate points (including a last point that
// repeats the first) and collinear-redundant points, including zero-width
// spikes. It returns nil if fewer than 3 points survive.
func CleanContour(c Contour, eps float64) Contour {
	if eps <= 0 {
		eps = Epsilon
	}
	out := dedupe2(c, eps)
	for len(out) > 1 && out[len(out)-1].Sub(out[0]).Length() <= eps {
		out = out[:len(out)-1]
	}
	// Removing one point can make its neighbour redundant, so repeat until a
	// pass removes nothing. Each pass removes at least one point or stops.
	for len(out) >= 3 {
		next := dropCollinear(out, eps)
		if len(next) == len(out) {
			break
		}
		out = next
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// CleanPath drops near-duplicate consecutive points. Closed paths also lose a
// last point repeating the first; they are otherwise treated like contours.
func CleanPath(p Path, eps float64) Path {
	if eps <= 0 {
		eps = Epsilon
	}
	if p.Closed {
		return Path{Points: CleanContour(p.Points, eps), Closed: true}
	}
	return Path{Points: dedupe2(p.Points, eps)}
}

// CleanSweep drops consecutive duplicate points, which would otherwise give a
// zero tangent. A closed path also loses a last point repeating the first.
func CleanSweep(s SweepPath, eps float64) SweepPath {
	if eps <= 0 {
		eps = Epsilon
	}
	out := make([]v3.Vec, 0, len(s.Points))
	for _, p := range s.Points {
		if !finite3(p) {
			continue
		}
		if len(out) > 0 && p.Sub(out[len(out)-1]).Length() <= eps {
			continue
		}
		out = append(out, p)
	}
	if s.Closed {
		for len(out) > 1 && out[len(out)-1].Sub(out[0]).Length() <= eps {
			out = out[:len(out)-1]
		}
		if len(out) < 3 {
			// Two points cannot enclose anything; sweep them as a segment.
			return SweepPath{Points: out}
		}
	}
	return SweepPath{Points: out, Closed: s.Closed}
}

func dedupe2(pts []v2.Vec, eps float64) []v2.Vec {
	out := make([]v2.Vec, 0, len(pts))
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			continue
		}
		if len(out) > 0 && p.Sub(out[len(out)-1]).Length() <= eps {
			continue
		}
		out = append(out, p)
	}
	return out
}

// dropCollinear removes every point that lies within eps of the line through
// its surviving predecessor and its successor.
func dropCollinear(c []v2.Vec, eps float64) []v2.Vec {
	n := len(c)
	out := make([]v2.Vec, 0, n)
	for i := 0; i < n; i++ {
		prev := c[(i+n-1)%n]
		if len(out) > 0 {
			prev = out[len(out)-1]
		}
		if redundant(prev, c[i], c[(i+1)%n], eps) {
			continue
		}
		out = append(out, c[i])
	}
	return out
}

// redundant reports whether p adds nothing to the polyline a-p-b: either a
// and b coincide (p is the tip of a zero-width spike) or p lies on line ab.
func redundant(a, p, b v2.Vec, eps float64) bool {
	ab := b.Sub(a)
	l := ab.Length()
	if l <= eps {
		return true
	}
	ap := p.Sub(a)
	h := math.Abs(ab.X*ap.Y-ab.Y*ap.X) / l
	return h <= eps
}

func finite3(p v3.Vec) bool {
	for _, f := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
