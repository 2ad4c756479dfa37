// Package tessellate walks a design graph and produces triangle meshes.
// Each part yields one mesh per printable piece: a channel part gives its
// base and its diffuser cap, a raised part its slab and its relief.
package tessellate

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/glowform/pkg/channel"
	"github.com/chazu/glowform/pkg/design"
	"github.com/chazu/glowform/pkg/extrude"
	"github.com/chazu/glowform/pkg/kernel"
	"github.com/chazu/glowform/pkg/sweep"
)

// Suffixes appended to the part name of secondary meshes.
const (
	CapSuffix    = "-cap"
	ReliefSuffix = "-relief"
)

// Options control tessellation.
type Options struct {
	Limits kernel.Limits
}

// DefaultOptions returns options with the default size ceilings.
func DefaultOptions() Options {
	return Options{Limits: kernel.DefaultLimits()}
}

// transformStack accumulates placements during graph traversal. The
// innermost placement is applied first.
type transformStack struct {
	frames []design.TransformData
}

func (ts *transformStack) push(t design.TransformData) {
	ts.frames = append(ts.frames, t)
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 0 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

// apply moves m into world space: for each placement, innermost first,
// rotation then translation.
func (ts *transformStack) apply(m *kernel.Mesh) {
	for i := len(ts.frames) - 1; i >= 0; i-- {
		t := ts.frames[i]
		m.RotateZ(t.Rotation)
		m.Translate(t.Translation)
	}
}

// Tessellate walks the design graph from its roots and produces the meshes
// of every reachable part, in traversal order. The tessellator never
// mutates the graph. A mesh over the triangle ceiling aborts the walk with
// an error wrapping kernel.ErrLimitExceeded.
func Tessellate(d *design.Design, opts Options) ([]*kernel.Mesh, error) {
	if d == nil {
		return nil, nil
	}

	w := &walker{d: d, opts: opts}
	var meshes []*kernel.Mesh
	for _, rootID := range d.Roots {
		root := d.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := w.walk(root)
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", root.DisplayName(), err)
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

type walker struct {
	d    *design.Design
	opts Options
	ts   transformStack
}

func (w *walker) walk(n *design.Node) ([]*kernel.Mesh, error) {
	switch n.Kind {
	case design.NodePart:
		return w.part(n)
	case design.NodeTransform:
		return w.transform(n)
	case design.NodeGroup:
		return w.children(n)
	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func (w *walker) transform(n *design.Node) ([]*kernel.Mesh, error) {
	td, ok := n.Data.(design.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	w.ts.push(td)
	defer w.ts.pop()
	return w.children(n)
}

func (w *walker) children(n *design.Node) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, child := range w.d.Children(n) {
		collected, err := w.walk(child)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// part generates the meshes for a part node and places them.
func (w *walker) part(n *design.Node) ([]*kernel.Mesh, error) {
	name := n.DisplayName()
	meshes, err := Part(n.Data, name, w.d.Defaults)
	if err != nil {
		return nil, fmt.Errorf("part %q: %w", name, err)
	}
	for _, m := range meshes {
		if err := w.opts.Limits.CheckTriangles(m.TriangleCount()); err != nil {
			return nil, fmt.Errorf("mesh %q: %w", m.PartName, err)
		}
		w.ts.apply(m)
		if m.IsEmpty() {
			kernel.Logger().Debug().Str("part", m.PartName).Msg("tessellate: part produced no triangles")
		}
	}
	return meshes, nil
}

// Part generates the meshes of one part payload in its local frame, named
// after name. A zero tube segment count falls back to the default.
func Part(data design.NodeData, name string, def design.Defaults) ([]*kernel.Mesh, error) {
	switch pd := data.(type) {
	case design.FlatData:
		m := extrude.Contours(pd.Contours, pd.Depth, v3.Vec{})
		return []*kernel.Mesh{named(m, name, pd.Material)}, nil

	case design.RaisedData:
		base := extrude.Contours(pd.Base, pd.BaseDepth, v3.Vec{})
		out := []*kernel.Mesh{named(base, name, pd.Material)}
		if len(pd.Relief) > 0 {
			relief := extrude.Contours(pd.Relief, pd.ReliefDepth, v3.Vec{Z: pd.BaseDepth})
			out = append(out, named(relief, name+ReliefSuffix, pd.ReliefMaterial))
		}
		return out, nil

	case design.OutlineData:
		segments := pd.Segments
		if segments == 0 {
			segments = def.TubeSegments
		}
		m := kernel.NewMesh(0)
		for _, p := range pd.Paths {
			m.Append(sweep.Tube(p, pd.Radius, segments))
		}
		return []*kernel.Mesh{named(m, name, pd.Material)}, nil

	case design.ChannelData:
		base, lid := kernel.NewMesh(0), kernel.NewMesh(0)
		for _, p := range pd.Paths {
			b, l := channel.Generate(p, pd.Profile, pd.Tolerance)
			base.Append(b)
			lid.Append(l)
		}
		return []*kernel.Mesh{
			named(base, name, pd.Material),
			named(lid, name+CapSuffix, pd.CapMaterial),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported part data type %T", data)
	}
}

func named(m *kernel.Mesh, name string, mat kernel.Material) *kernel.Mesh {
	m.PartName = name
	m.Material = mat
	return m
}
