// Package channel sweeps a U-shaped LED channel along a path together with
// the diffuser cap that snaps into it.
//
// Cross sections are laid out in a local (s, z) plane: s is the lateral
// offset to the left of travel and z the height above the path. The channel
// is never mitred at corners, so its width is the same at every station.
package channel

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
	"github.com/chazu/glowform/pkg/sweep"
)

const (
	// MinThickness is the thinnest wall or floor a clamp will produce, in mm.
	MinThickness = 0.4
	// MinInnerWidth is the narrowest channel opening a clamp will produce.
	MinInnerWidth = 0.4
	// DefaultTolerance is the default snap-fit tolerance. Positive values
	// widen the cap into the walls for an interference fit.
	DefaultTolerance = 0.15
)

// Profile is the U cross section. Walls and floor rise from z=0; the rim is
// at WallHeight. CapThickness of zero means WallThickness.
type Profile struct {
	Width          float64 `toml:"width" json:"width"`
	WallThickness  float64 `toml:"wall_thickness" json:"wallThickness"`
	WallHeight     float64 `toml:"wall_height" json:"wallHeight"`
	FloorThickness float64 `toml:"floor_thickness" json:"floorThickness"`
	CapThickness   float64 `toml:"cap_thickness" json:"capThickness"`
}

// DefaultProfile fits a common 10 mm LED strip.
func DefaultProfile() Profile {
	return Profile{
		Width:          12,
		WallThickness:  1.2,
		WallHeight:     8,
		FloorThickness: 1.2,
		CapThickness:   1.2,
	}
}

// Valid reports whether the profile can be built at all. Anything else wrong
// with a valid profile is clamped by Clamped.
func (p Profile) Valid() error {
	if !(p.Width > 0) {
		return fmt.Errorf("channel: width must be positive, got %g", p.Width)
	}
	if !(p.WallHeight > 0) {
		return fmt.Errorf("channel: wall height must be positive, got %g", p.WallHeight)
	}
	return nil
}

// Clamped returns p with every parameter moved to the nearest value that
// gives non-inverted geometry: walls leave an opening of at least
// MinInnerWidth, the floor stays below the rim, and the cap fits between
// floor and rim.
func (p Profile) Clamped() Profile {
	log := kernel.Logger()
	q := p

	if q.WallThickness < MinThickness {
		q.WallThickness = MinThickness
	}
	if q.Width-2*q.WallThickness < MinInnerWidth {
		q.WallThickness = (q.Width - MinInnerWidth) / 2
		if q.WallThickness <= 0 {
			q.WallThickness = q.Width / 4
		}
	}

	if q.FloorThickness < MinThickness {
		q.FloorThickness = MinThickness
	}
	if q.FloorThickness >= q.WallHeight {
		q.FloorThickness = q.WallHeight / 2
	}

	if q.CapThickness <= 0 {
		q.CapThickness = q.WallThickness
	}
	if room := q.WallHeight - q.FloorThickness; q.CapThickness > room {
		q.CapThickness = room
	}

	if q != p {
		log.Debug().
			Interface("from", p).
			Interface("to", q).
			Msg("channel: clamped profile")
	}
	return q
}

// InnerWidth returns the width of the channel opening.
func (p Profile) InnerWidth() float64 {
	return p.Width - 2*p.WallThickness
}

// CapWidth returns the cap cross-section width for the given snap tolerance:
// Width - 2*WallThickness + 2*tolerance. A result that is not positive is
// clamped to MinThickness.
func (p Profile) CapWidth(tolerance float64) float64 {
	w := p.InnerWidth() + 2*tolerance
	if w <= 0 {
		kernel.Logger().Debug().Float64("width", w).Float64("tolerance", tolerance).Msg("channel: clamped cap width")
		return MinThickness
	}
	return w
}

// Section returns the U outline, counter-clockwise in (s, z):
// outer-right rail, rim, inner-right rail, floor, inner-left rail, rim,
// outer-left rail.
func (p Profile) Section() []v2.Vec {
	wo := p.Width / 2
	wi := wo - p.WallThickness
	h, f := p.WallHeight, p.FloorThickness
	return []v2.Vec{
		{X: -wo, Y: 0},
		{X: wo, Y: 0},
		{X: wo, Y: h},
		{X: wi, Y: h},
		{X: wi, Y: f},
		{X: -wi, Y: f},
		{X: -wi, Y: h},
		{X: -wo, Y: h},
	}
}

// CapSection returns the cap rectangle, counter-clockwise in (s, z), with
// its top flush with the rim.
func (p Profile) CapSection(tolerance float64) []v2.Vec {
	c := p.CapWidth(tolerance) / 2
	top := p.WallHeight
	bottom := top - p.CapThickness
	return []v2.Vec{
		{X: -c, Y: bottom},
		{X: c, Y: bottom},
		{X: c, Y: top},
		{X: -c, Y: top},
	}
}

// The U end face is three convex quads that share the diagonals 1-4 and
// 5-0: the floor and the two walls.
var uFaces = [][4]int{
	{0, 1, 4, 5},
	{1, 2, 3, 4},
	{5, 6, 7, 0},
}

var rectFaces = [][4]int{{0, 1, 2, 3}}

// Generate sweeps the channel base and its diffuser cap along path. The two
// meshes are separate parts and never overlap except where the snap
// tolerance is positive. The profile is clamped first; an unbuildable
// profile or a path with fewer than two distinct points gives two empty
// meshes.
func Generate(path geom.SweepPath, p Profile, tolerance float64) (base, lid *kernel.Mesh) {
	log := kernel.Logger()
	if err := p.Valid(); err != nil {
		log.Debug().Err(err).Msg("channel: nothing to build")
		return kernel.NewMesh(0), kernel.NewMesh(0)
	}
	p = p.Clamped()

	clean := geom.CleanSweep(path, geom.Epsilon)
	frames := sweep.Frames(clean, v3.Vec{Z: 1})
	if len(frames) < 2 {
		return kernel.NewMesh(0), kernel.NewMesh(0)
	}

	base = loft(frames, p.Section(), uFaces, clean.Closed)
	lid = loft(frames, p.CapSection(tolerance), rectFaces, clean.Closed)
	return base, lid
}

// rings places the section at every frame. s maps to -Binormal (left of
// travel) and z to Normal, which keeps a counter-clockwise section
// counter-clockwise about the tangent.
func rings(frames []sweep.Frame, section []v2.Vec) [][]v3.Vec {
	out := make([][]v3.Vec, len(frames))
	for i, f := range frames {
		r := make([]v3.Vec, len(section))
		for j, q := range section {
			r[j] = f.Local(q.Y, -q.X)
		}
		out[i] = r
	}
	return out
}

// loft stitches consecutive section rings and, for open paths, closes the
// ends with the given convex faces.
func loft(frames []sweep.Frame, section []v2.Vec, faces [][4]int, closed bool) *kernel.Mesh {
	rs := rings(frames, section)
	n := len(section)
	spans := len(rs) - 1
	if closed {
		spans = len(rs)
	}
	m := kernel.NewMesh(2*n*spans + 4*len(faces))
	for i := 0; i < spans; i++ {
		a, b := rs[i], rs[(i+1)%len(rs)]
		for j := 0; j < n; j++ {
			k := (j + 1) % n
			m.AddQuad(a[j], a[k], b[k], b[j])
		}
	}
	if !closed {
		first, last := rs[0], rs[len(rs)-1]
		for _, f := range faces {
			m.AddQuad(first[f[3]], first[f[2]], first[f[1]], first[f[0]])
			m.AddQuad(last[f[0]], last[f[1]], last[f[2]], last[f[3]])
		}
	}
	return m
}
