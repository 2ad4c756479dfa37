// Package contour groups a flat list of contours into outer boundaries and
// the holes they own.
package contour

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
)

// Group is one outer boundary plus the holes whose centroid lies inside it.
// Outer is wound counter-clockwise and every hole clockwise.
type Group struct {
	Outer geom.Contour
	Holes []geom.Contour
}

// PointCount returns the number of points across the outer and all holes.
func (g Group) PointCount() int {
	n := len(g.Outer)
	for _, h := range g.Holes {
		n += len(h)
	}
	return n
}

// Area returns the enclosed area, outer minus holes.
func (g Group) Area() float64 {
	a := math.Abs(g.Outer.SignedArea())
	for _, h := range g.Holes {
		a -= math.Abs(h.SignedArea())
	}
	return a
}

type classified struct {
	c        geom.Contour
	area     float64
	centroid orb.Point
	ring     orb.Ring
}

// Classify splits contours into outers (positive area) and holes (negative
// area) and attaches each hole to the first outer that contains its
// centroid. Holes with no owner are dropped. Contours that are degenerate
// after cleaning are skipped.
//
// If the contour with the largest absolute area is negative, the input uses
// the opposite winding convention and every sign is flipped first.
func Classify(contours []geom.Contour) []Group {
	log := kernel.Logger()

	items := make([]classified, 0, len(contours))
	var largest float64
	for i, raw := range contours {
		c := geom.CleanContour(raw, geom.Epsilon)
		if c == nil {
			log.Debug().Int("contour", i).Int("points", len(raw)).Msg("contour: dropped degenerate contour")
			continue
		}
		r := ring(c)
		centroid, area := planar.CentroidArea(r)
		if math.Abs(area) <= geom.Epsilon*geom.Epsilon {
			log.Debug().Int("contour", i).Msg("contour: dropped zero-area contour")
			continue
		}
		if math.Abs(area) > math.Abs(largest) {
			largest = area
		}
		items = append(items, classified{c: c, area: area, centroid: centroid, ring: r})
	}
	if len(items) == 0 {
		return nil
	}

	if largest < 0 {
		log.Debug().Msg("contour: largest contour is clockwise, flipping winding convention")
		for i := range items {
			items[i].area = -items[i].area
		}
	}

	var groups []Group
	var holes []classified
	for _, it := range items {
		if it.area > 0 {
			groups = append(groups, Group{Outer: it.c.CCW()})
		} else {
			holes = append(holes, it)
		}
	}

	// Outer rings are rebuilt after normalization so the index lines up with
	// groups.
	outers := make([]orb.Ring, len(groups))
	for i, g := range groups {
		outers[i] = ring(g.Outer)
	}

	for _, h := range holes {
		owner := -1
		for i, o := range outers {
			if planar.RingContains(o, h.centroid) {
				owner = i
				break
			}
		}
		if owner < 0 {
			log.Warn().
				Float64("x", h.centroid[0]).
				Float64("y", h.centroid[1]).
				Float64("area", math.Abs(h.area)).
				Msg("contour: dropped hole outside every outer contour")
			continue
		}
		groups[owner].Holes = append(groups[owner].Holes, h.c.CW())
	}
	return groups
}

// ring converts c to a closed orb ring, repeating the first point.
func ring(c geom.Contour) orb.Ring {
	r := make(orb.Ring, 0, len(c)+1)
	for _, p := range c {
		r = append(r, orb.Point{p.X, p.Y})
	}
	return append(r, r[0])
}

// Centroid returns the area centroid of c.
func Centroid(c geom.Contour) v2.Vec {
	if len(c) == 0 {
		return v2.Vec{}
	}
	p, _ := planar.CentroidArea(ring(c))
	return v2.Vec{X: p[0], Y: p[1]}
}
