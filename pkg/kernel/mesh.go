package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangle is one facet of a mesh. N is advisory: generators may leave it
// zero or provisional, and Normal recomputes the authoritative value from
// the vertex positions.
type Triangle struct {
	V [3]v3.Vec
	N v3.Vec
}

// NewTriangle builds a triangle with its normal computed from the vertices.
func NewTriangle(a, b, c v3.Vec) Triangle {
	t := Triangle{V: [3]v3.Vec{a, b, c}}
	t.N = t.Normal()
	return t
}

// Normal returns the unit normal implied by the vertex winding (right-hand
// rule). Degenerate triangles return the zero vector.
func (t Triangle) Normal() v3.Vec {
	n := t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0]))
	l := n.Length()
	if l == 0 || math.IsNaN(l) {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}

// Area returns the triangle's surface area.
func (t Triangle) Area() float64 {
	return t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0])).Length() / 2
}

// Mesh is an ordered triangle soup for one printable part.
type Mesh struct {
	Triangles []Triangle `json:"triangles"`
	PartName  string     `json:"partName"` // which design part this came from
	Material  Material   `json:"material"`
}

// NewMesh returns an empty mesh with room for n triangles.
func NewMesh(n int) *Mesh {
	return &Mesh{Triangles: make([]Triangle, 0, n)}
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// VertexCount returns the number of (unshared) vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Triangles) * 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Triangles) == 0
}

// Add appends the triangle (a, b, c).
func (m *Mesh) Add(a, b, c v3.Vec) {
	m.Triangles = append(m.Triangles, NewTriangle(a, b, c))
}

// AddQuad appends the quad (a, b, c, d) as the triangles (a, b, c) and
// (a, c, d). The quad must be given in the winding of its outward face.
func (m *Mesh) AddQuad(a, b, c, d v3.Vec) {
	m.Add(a, b, c)
	m.Add(a, c, d)
}

// Append adds every triangle of other to m.
func (m *Mesh) Append(other *Mesh) {
	if other.IsEmpty() {
		return
	}
	m.Triangles = append(m.Triangles, other.Triangles...)
}

// Translate moves every vertex by d.
func (m *Mesh) Translate(d v3.Vec) {
	if d == (v3.Vec{}) {
		return
	}
	for i := range m.Triangles {
		for j := 0; j < 3; j++ {
			m.Triangles[i].V[j] = m.Triangles[i].V[j].Add(d)
		}
	}
}

// RotateZ rotates every vertex about the Z axis by deg degrees.
func (m *Mesh) RotateZ(deg float64) {
	if deg == 0 {
		return
	}
	s, c := math.Sincos(deg * math.Pi / 180)
	for i := range m.Triangles {
		t := &m.Triangles[i]
		for j := 0; j < 3; j++ {
			p := t.V[j]
			t.V[j] = v3.Vec{X: p.X*c - p.Y*s, Y: p.X*s + p.Y*c, Z: p.Z}
		}
		t.N = t.Normal()
	}
}

// RecomputeNormals replaces every advisory normal with the one implied by
// the vertex positions.
func (m *Mesh) RecomputeNormals() {
	for i := range m.Triangles {
		m.Triangles[i].N = m.Triangles[i].Normal()
	}
}

// Bounds returns the axis-aligned bounding box. An empty mesh returns two
// zero vectors.
func (m *Mesh) Bounds() (min, max v3.Vec) {
	if m.IsEmpty() {
		return min, max
	}
	min = m.Triangles[0].V[0]
	max = min
	for _, t := range m.Triangles {
		for _, p := range t.V {
			min = v3.Vec{X: math.Min(min.X, p.X), Y: math.Min(min.Y, p.Y), Z: math.Min(min.Z, p.Z)}
			max = v3.Vec{X: math.Max(max.X, p.X), Y: math.Max(max.Y, p.Y), Z: math.Max(max.Z, p.Z)}
		}
	}
	return min, max
}
