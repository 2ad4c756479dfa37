package kernel

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// weldTolerance is the grid size used to identify coincident vertices when
// analysing a triangle soup.
const weldTolerance = 1e-6

type vertexKey [3]int64

func keyOf(p v3.Vec) vertexKey {
	return vertexKey{
		int64(math.Round(p.X / weldTolerance)),
		int64(math.Round(p.Y / weldTolerance)),
		int64(math.Round(p.Z / weldTolerance)),
	}
}

// EdgeKey identifies an undirected edge between two welded vertices.
type EdgeKey struct {
	a, b vertexKey
}

func makeEdgeKey(p, q v3.Vec) EdgeKey {
	a, b := keyOf(p), keyOf(q)
	if less(b, a) {
		a, b = b, a
	}
	return EdgeKey{a: a, b: b}
}

func less(a, b vertexKey) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// EdgeCounts returns how many triangles use each undirected edge of the
// mesh after welding coincident vertices.
func EdgeCounts(m *Mesh) map[EdgeKey]int {
	counts := make(map[EdgeKey]int, len(m.Triangles)*3/2)
	for _, t := range m.Triangles {
		for i := 0; i < 3; i++ {
			counts[makeEdgeKey(t.V[i], t.V[(i+1)%3])]++
		}
	}
	return counts
}

// MeshReport summarises the topology of a triangle soup.
type MeshReport struct {
	Triangles     int
	Edges         int
	BoundaryEdges int // used by exactly one triangle
	NonManifold   int // used by more than two triangles
	Degenerate    int // zero-area triangles
}

// Watertight reports whether every edge is shared by exactly two triangles.
func (r MeshReport) Watertight() bool {
	return r.Triangles > 0 && r.BoundaryEdges == 0 && r.NonManifold == 0
}

// Analyze computes the topology report for m.
func Analyze(m *Mesh) MeshReport {
	r := MeshReport{Triangles: m.TriangleCount()}
	for _, t := range m.Triangles {
		if t.Normal() == (v3.Vec{}) {
			r.Degenerate++
		}
	}
	for _, n := range EdgeCounts(m) {
		r.Edges++
		switch {
		case n == 1:
			r.BoundaryEdges++
		case n > 2:
			r.NonManifold++
		}
	}
	return r
}

// IsWatertight reports whether every undirected edge of m is shared by
// exactly two triangles.
func IsWatertight(m *Mesh) bool {
	return Analyze(m).Watertight()
}

// Volume returns the signed volume enclosed by m (divergence theorem).
// It is positive for a closed mesh with outward-facing triangles.
func Volume(m *Mesh) float64 {
	var vol float64
	for _, t := range m.Triangles {
		vol += t.V[0].Dot(t.V[1].Cross(t.V[2]))
	}
	return vol / 6
}

// SurfaceArea returns the total area of all triangles.
func SurfaceArea(m *Mesh) float64 {
	var a float64
	for _, t := range m.Triangles {
		a += t.Area()
	}
	return a
}
