package kernel

import (
	"errors"
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitCube returns a closed, outward-facing cube of side s at the origin.
func unitCube(s float64) *Mesh {
	p := func(x, y, z float64) v3.Vec { return v3.Vec{X: x * s, Y: y * s, Z: z * s} }
	m := NewMesh(12)
	m.AddQuad(p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0)) // bottom -z
	m.AddQuad(p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1)) // top +z
	m.AddQuad(p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1)) // front -y
	m.AddQuad(p(0, 1, 0), p(0, 1, 1), p(1, 1, 1), p(1, 1, 0)) // back +y
	m.AddQuad(p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0)) // left -x
	m.AddQuad(p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1)) // right +x
	return m
}

// --- Mesh helper method tests ---

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
		want int
	}{
		{"empty", &Mesh{}, 0},
		{"one quad", func() *Mesh {
			m := NewMesh(2)
			m.AddQuad(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{X: 1, Y: 1}, v3.Vec{Y: 1})
			return m
		}(), 2},
		{"cube", unitCube(1), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mesh.TriangleCount())
			assert.Equal(t, tt.want*3, tt.mesh.VertexCount())
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	var nilMesh *Mesh
	assert.True(t, nilMesh.IsEmpty())
	assert.True(t, (&Mesh{}).IsEmpty())
	assert.False(t, unitCube(1).IsEmpty())
}

func TestTriangleNormal(t *testing.T) {
	tri := Triangle{V: [3]v3.Vec{{}, {X: 1}, {Y: 1}}, N: v3.Vec{Z: -1}}
	n := tri.Normal()
	assert.InDelta(t, 1.0, n.Z, 1e-12, "normal follows winding, not the provisional N")
	assert.InDelta(t, 0.5, tri.Area(), 1e-12)

	degenerate := Triangle{V: [3]v3.Vec{{}, {X: 1}, {X: 2}}}
	assert.Equal(t, v3.Vec{}, degenerate.Normal())
}

func TestCubeAnalysis(t *testing.T) {
	m := unitCube(2)
	r := Analyze(m)
	assert.True(t, r.Watertight())
	assert.Equal(t, 18, r.Edges)
	assert.Zero(t, r.Degenerate)
	assert.InDelta(t, 8.0, Volume(m), 1e-9)
	assert.InDelta(t, 24.0, SurfaceArea(m), 1e-9)

	min, max := m.Bounds()
	assert.Equal(t, v3.Vec{}, min)
	assert.Equal(t, v3.Vec{X: 2, Y: 2, Z: 2}, max)
}

func TestOpenMeshNotWatertight(t *testing.T) {
	m := unitCube(1)
	m.Triangles = m.Triangles[:len(m.Triangles)-1]
	r := Analyze(m)
	assert.False(t, r.Watertight())
	assert.Equal(t, 3, r.BoundaryEdges)
	assert.False(t, IsWatertight(&Mesh{}))
}

func TestTranslateAndRotate(t *testing.T) {
	m := unitCube(1)
	vol := Volume(m)

	m.Translate(v3.Vec{X: 10, Y: -5, Z: 3})
	min, _ := m.Bounds()
	assert.InDelta(t, 10.0, min.X, 1e-12)
	assert.InDelta(t, -5.0, min.Y, 1e-12)
	assert.InDelta(t, 3.0, min.Z, 1e-12)

	m.RotateZ(90)
	assert.InDelta(t, vol, Volume(m), 1e-9, "rotation preserves volume and orientation")
	min, max := m.Bounds()
	assert.InDelta(t, 4.0, min.X, 1e-9)
	assert.InDelta(t, 5.0, max.X, 1e-9)
	assert.InDelta(t, 10.0, min.Y, 1e-9)
}

func TestRecomputeNormals(t *testing.T) {
	m := &Mesh{Triangles: []Triangle{{V: [3]v3.Vec{{}, {X: 1}, {Y: 1}}, N: v3.Vec{X: 1}}}}
	m.RecomputeNormals()
	assert.InDelta(t, 1.0, m.Triangles[0].N.Z, 1e-12)
}

func TestParseMaterial(t *testing.T) {
	tests := []struct {
		in      string
		want    Material
		wantErr bool
	}{
		{"opaque", MaterialOpaque, false},
		{"", MaterialOpaque, false},
		{"translucent", MaterialTranslucent, false},
		{"diffuser", MaterialTranslucent, false},
		{"glass", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMaterial(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "translucent", MaterialTranslucent.String())
}

func TestLimitsCheckTriangles(t *testing.T) {
	l := Limits{MaxTriangles: 10}
	assert.NoError(t, l.CheckTriangles(10))
	err := l.CheckTriangles(11)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLimitExceeded))
	assert.NoError(t, Limits{}.CheckTriangles(math.MaxInt32), "zero ceiling disables the check")
}

func TestLoggerDefaultsToNop(t *testing.T) {
	require.NotNil(t, Logger())
	SetLogger(nil)
	require.NotNil(t, Logger())
}
