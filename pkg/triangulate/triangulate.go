// Package triangulate ear-clips a contour group into a hole-aware 2D cap.
package triangulate

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/rclancey/earcut"

	"github.com/chazu/glowform/pkg/contour"
	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
)

// Cap is a triangulated planar region. Points holds the outer contour
// followed by every hole; HoleStarts are point offsets into Points. Every
// index triple in Indices is wound counter-clockwise.
type Cap struct {
	Points     []v2.Vec
	Indices    []int
	HoleStarts []int
}

// TriangleCount returns the number of triangles in the cap.
func (c *Cap) TriangleCount() int {
	if c == nil {
		return 0
	}
	return len(c.Indices) / 3
}

// IsEmpty reports whether the cap has no triangles.
func (c *Cap) IsEmpty() bool {
	return c.TriangleCount() == 0
}

// Triangle returns the corners of triangle i.
func (c *Cap) Triangle(i int) [3]v2.Vec {
	return [3]v2.Vec{
		c.Points[c.Indices[3*i]],
		c.Points[c.Indices[3*i+1]],
		c.Points[c.Indices[3*i+2]],
	}
}

// Area returns the summed area of the cap's triangles.
func (c *Cap) Area() float64 {
	var a float64
	for i := 0; i < c.TriangleCount(); i++ {
		t := c.Triangle(i)
		a += cross(t[0], t[1], t[2]) / 2
	}
	return a
}

// Triangulate ear-clips g. A self-intersecting or zero-area group may yield
// a partial or empty index buffer; that result is returned as is.
func Triangulate(g contour.Group) *Cap {
	n := g.PointCount()
	c := &Cap{Points: make([]v2.Vec, 0, n)}
	if len(g.Outer) < 3 {
		return c
	}

	c.Points = append(c.Points, g.Outer...)
	for _, h := range g.Holes {
		c.HoleStarts = append(c.HoleStarts, len(c.Points))
		c.Points = append(c.Points, h...)
	}

	coords := make([]float64, 0, 2*len(c.Points))
	for _, p := range c.Points {
		coords = append(coords, p.X, p.Y)
	}

	idx, err := earcut.Earcut(coords, c.HoleStarts, 2)
	if err != nil {
		kernel.Logger().Warn().Err(err).
			Int("points", len(c.Points)).
			Int("holes", len(c.HoleStarts)).
			Msg("triangulate: earcut failed")
	}
	idx = idx[:len(idx)-len(idx)%3]

	// Orientation of earcut output is not part of its contract.
	for i := 0; i+2 < len(idx); i += 3 {
		a, b, d := idx[i], idx[i+1], idx[i+2]
		if cross(c.Points[a], c.Points[b], c.Points[d]) < 0 {
			idx[i+1], idx[i+2] = d, b
		}
	}
	c.Indices = conform(c.Points, idx)

	if len(idx) == 0 {
		kernel.Logger().Warn().Int("points", len(c.Points)).Msg("triangulate: no triangles produced")
	}
	return c
}

// Contours classifies contours and triangulates every resulting group.
func Contours(contours []geom.Contour) []*Cap {
	groups := contour.Classify(contours)
	caps := make([]*Cap, 0, len(groups))
	for _, g := range groups {
		caps = append(caps, Triangulate(g))
	}
	return caps
}

// conform splits every triangle edge that passes through a point of pts.
// earcut drops collinear points and can bridge holes along a shared line,
// leaving T-junctions; once they are split, every edge interior to the cap
// is used by exactly two triangles. Triangles that collapse onto a repeated
// index carry no area and are dropped.
func conform(pts []v2.Vec, idx []int) []int {
	// Pushed in reverse so unsplit triangles keep their earcut order.
	work := make([][3]int, 0, len(idx)/3)
	for i := len(idx) - 3; i >= 0; i -= 3 {
		work = append(work, [3]int{idx[i], idx[i+1], idx[i+2]})
	}

	out := make([]int, 0, len(idx))
	splits := 0
	for len(work) > 0 {
		t := work[len(work)-1]
		work = work[:len(work)-1]

		split := false
		for k := 0; k < 3 && !split; k++ {
			a, b, d := t[k], t[(k+1)%3], t[(k+2)%3]
			if p := pointOnEdge(pts, a, b); p >= 0 {
				work = append(work, [3]int{a, p, d}, [3]int{p, b, d})
				split = true
				splits++
			}
		}
		if split {
			continue
		}
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			continue
		}
		out = append(out, t[0], t[1], t[2])
	}

	if splits > 0 {
		kernel.Logger().Debug().Int("splits", splits).Msg("triangulate: split T-junctions")
	}
	return out
}

// onEdgeEpsilon is the relative distance within which a point counts as
// lying on an edge.
const onEdgeEpsilon = 1e-9

// pointOnEdge returns the index of a point strictly inside segment a-b, or
// -1. Points sharing a position with either end are ignored.
func pointOnEdge(pts []v2.Vec, a, b int) int {
	pa, pb := pts[a], pts[b]
	dx, dy := pb.X-pa.X, pb.Y-pa.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return -1
	}
	minX, maxX := math.Min(pa.X, pb.X), math.Max(pa.X, pb.X)
	minY, maxY := math.Min(pa.Y, pb.Y), math.Max(pa.Y, pb.Y)
	slack := onEdgeEpsilon * math.Sqrt(l2)

	for i, p := range pts {
		if i == a || i == b || p == pa || p == pb {
			continue
		}
		if p.X < minX-slack || p.X > maxX+slack || p.Y < minY-slack || p.Y > maxY+slack {
			continue
		}
		if math.Abs(cross(pa, pb, p)) > onEdgeEpsilon*l2 {
			continue
		}
		dot := (p.X-pa.X)*dx + (p.Y-pa.Y)*dy
		if dot > onEdgeEpsilon*l2 && dot < l2*(1-onEdgeEpsilon) {
			return i
		}
	}
	return -1
}

func cross(a, b, c v2.Vec) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
