// Package extrude turns a triangulated 2D cap into a closed prism: a bottom
// face, a top face and side walls derived from the cap's boundary edges.
package extrude

import (
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
	"github.com/chazu/glowform/pkg/triangulate"
)

// Edge is a directed edge between two cap point indices.
type Edge struct {
	From, To int
}

type undirected struct {
	a, b int
}

func key(a, b int) undirected {
	if a > b {
		a, b = b, a
	}
	return undirected{a, b}
}

// BoundaryEdges returns the directed edges that belong to exactly one cap
// triangle, in the direction that triangle traverses them. For a
// counter-clockwise cap the solid lies to the left of every returned edge.
func BoundaryEdges(c *triangulate.Cap) []Edge {
	n := c.TriangleCount()
	counts := make(map[undirected]int, 3*n)
	for i := 0; i < 3*n; i += 3 {
		for k := 0; k < 3; k++ {
			counts[key(c.Indices[i+k], c.Indices[i+(k+1)%3])]++
		}
	}
	var edges []Edge
	for i := 0; i < 3*n; i += 3 {
		for k := 0; k < 3; k++ {
			a, b := c.Indices[i+k], c.Indices[i+(k+1)%3]
			if a != b && counts[key(a, b)] == 1 {
				edges = append(edges, Edge{From: a, To: b})
			}
		}
	}
	return edges
}

// BoundaryLoops groups the cap's boundary edges into loops by following
// shared vertices. The outer silhouette and every hole come back as
// separate loops; outer loops run counter-clockwise and hole loops clockwise.
func BoundaryLoops(c *triangulate.Cap) [][]Edge {
	edges := BoundaryEdges(c)
	out := make(map[int][]int, len(edges))
	for i, e := range edges {
		out[e.From] = append(out[e.From], i)
	}
	used := make([]bool, len(edges))

	var loops [][]Edge
	for start := range edges {
		if used[start] {
			continue
		}
		var loop []Edge
		cur := start
		for cur >= 0 {
			used[cur] = true
			e := edges[cur]
			loop = append(loop, e)
			if e.To == edges[start].From {
				break
			}
			cur = -1
			for _, next := range out[e.To] {
				if !used[next] {
					cur = next
					break
				}
			}
		}
		if loop[len(loop)-1].To != loop[0].From {
			kernel.Logger().Debug().Int("edges", len(loop)).Msg("extrude: boundary loop does not close")
		}
		loops = append(loops, loop)
	}
	return loops
}

// Extrude builds the solid between z=0 and z=depth, moved by offset. The
// result is watertight when the cap has no duplicate or zero-length edges;
// nothing is repaired. An empty cap gives an empty mesh.
func Extrude(c *triangulate.Cap, depth float64, offset v3.Vec) *kernel.Mesh {
	if c.IsEmpty() {
		return kernel.NewMesh(0)
	}
	loops := BoundaryLoops(c)
	var walls int
	for _, l := range loops {
		walls += len(l)
	}
	m := kernel.NewMesh(2*c.TriangleCount() + 2*walls)

	lo := func(i int) v3.Vec { return lift(c.Points[i], 0, offset) }
	hi := func(i int) v3.Vec { return lift(c.Points[i], depth, offset) }

	for i := 0; i < len(c.Indices); i += 3 {
		a, b, d := c.Indices[i], c.Indices[i+1], c.Indices[i+2]
		m.Add(lo(a), lo(d), lo(b))
	}
	for i := 0; i < len(c.Indices); i += 3 {
		a, b, d := c.Indices[i], c.Indices[i+1], c.Indices[i+2]
		m.Add(hi(a), hi(b), hi(d))
	}

	// The solid is left of each directed edge, so (a0, b0, b1) faces right:
	// away from the material on outer loops and into the void on hole loops.
	for _, loop := range loops {
		for _, e := range loop {
			m.AddQuad(lo(e.From), lo(e.To), hi(e.To), hi(e.From))
		}
	}
	return m
}

// Contours classifies, triangulates and extrudes a contour set into one
// mesh holding every outer group.
func Contours(contours []geom.Contour, depth float64, offset v3.Vec) *kernel.Mesh {
	m := kernel.NewMesh(0)
	for _, c := range triangulate.Contours(contours) {
		m.Append(Extrude(c, depth, offset))
	}
	return m
}

func lift(p v2.Vec, z float64, offset v3.Vec) v3.Vec {
	return v3.Vec{X: p.X + offset.X, Y: p.Y + offset.Y, Z: z + offset.Z}
}
