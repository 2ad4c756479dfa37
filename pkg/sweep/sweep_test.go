package sweep

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
)

func line(n int, step v3.Vec) geom.SweepPath {
	pts := make([]v3.Vec, n)
	for i := range pts {
		pts[i] = step.MulScalar(float64(i))
	}
	return geom.SweepPath{Points: pts}
}

func assertOrthonormal(t *testing.T, f Frame) {
	t.Helper()
	assert.InDelta(t, 1.0, f.Tangent.Length(), 1e-9)
	assert.InDelta(t, 1.0, f.Normal.Length(), 1e-9)
	assert.InDelta(t, 1.0, f.Binormal.Length(), 1e-9)
	assert.InDelta(t, 0.0, f.Tangent.Dot(f.Normal), 1e-9)
	assert.InDelta(t, 0.0, f.Tangent.Dot(f.Binormal), 1e-9)
}

func TestFramesStraightLineNoTwist(t *testing.T) {
	for _, dir := range []v3.Vec{{X: 1}, {Y: 2}, {Z: -1}, {X: 1, Y: 1, Z: 1}} {
		frames := Frames(line(20, dir), v3.Vec{})
		require.Len(t, frames, 20)
		for _, f := range frames {
			assertOrthonormal(t, f)
			assert.InDelta(t, 0.0, f.Normal.Sub(frames[0].Normal).Length(), 1e-12)
			assert.InDelta(t, 0.0, f.Binormal.Sub(frames[0].Binormal).Length(), 1e-12)
		}
	}
}

func TestFramesUpSeed(t *testing.T) {
	s := geom.SweepPath{Points: []v3.Vec{{}, {X: 10}, {X: 10, Y: 10}, {Y: 10}}}
	frames := Frames(s, v3.Vec{Z: 1})
	for _, f := range frames {
		assert.InDelta(t, 1.0, f.Normal.Z, 1e-12, "planar path keeps the up axis")
	}
	// Binormal is tangent x up, i.e. to the right of travel.
	assert.InDelta(t, -1.0, frames[0].Binormal.Y, 1e-12)
}

func TestFramesRightHanded(t *testing.T) {
	s := geom.SweepPath{Points: []v3.Vec{{}, {X: 3, Y: 1}, {X: 5, Y: 4, Z: 2}, {X: 6, Y: 9, Z: 2}}}
	for _, f := range Frames(s, v3.Vec{}) {
		assertOrthonormal(t, f)
		assert.InDelta(t, 0.0, f.Normal.Cross(f.Binormal).Sub(f.Tangent).Length(), 1e-9)
	}
}

func TestFramesDoubleBack(t *testing.T) {
	s := geom.SweepPath{Points: []v3.Vec{{}, {X: 5}, {}}}
	frames := Frames(s, v3.Vec{})
	require.Len(t, frames, 3)
	for _, f := range frames {
		assertOrthonormal(t, f)
	}
}

func TestTransportReseed(t *testing.T) {
	n := transport(v3.Vec{Z: 1}, v3.Vec{Z: 1})
	assert.InDelta(t, 1.0, n.Length(), 1e-12)
	assert.InDelta(t, 0.0, n.Z, 1e-12)

	for _, axis := range []v3.Vec{{X: 1}, {Y: 1}, {Z: 1}, {X: 1, Y: 1e-9}} {
		s := seed(unit(axis))
		assert.InDelta(t, 1.0, s.Length(), 1e-9)
		assert.InDelta(t, 0.0, s.Dot(unit(axis)), 1e-9)
	}
}

func TestFramesClosedSeam(t *testing.T) {
	const n = 128
	pts := make([]v3.Vec, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / n
		pts[i] = v3.Vec{X: 10 * math.Cos(a), Y: 10 * math.Sin(a), Z: 4 * math.Sin(3*a) + 2*math.Cos(a)}
	}
	frames := Frames(geom.SweepPath{Points: pts, Closed: true}, v3.Vec{})
	require.Len(t, frames, n)

	angle := func(from Frame, to Frame) float64 {
		p := transport(from.Normal, to.Tangent)
		return math.Atan2(to.Normal.Cross(p).Dot(to.Tangent), to.Normal.Dot(p))
	}
	var worst float64
	for i := 0; i+1 < n; i++ {
		worst = math.Max(worst, math.Abs(angle(frames[i], frames[i+1])))
	}
	seam := math.Abs(angle(frames[n-1], frames[0]))
	assert.LessOrEqual(t, seam, worst+1e-3, "seam twists no more than any other step")
}

func TestTubeStraight(t *testing.T) {
	const segs = 16
	m := Tube(line(5, v3.Vec{X: 2.5}), 1, segs)

	assert.Equal(t, 2*segs*4+2*segs, m.TriangleCount())
	assert.True(t, kernel.IsWatertight(m))

	area := 0.5 * segs * math.Sin(2*math.Pi/segs)
	assert.InDelta(t, area*10, kernel.Volume(m), 1e-9)

	min, max := m.Bounds()
	assert.InDelta(t, 0.0, min.X, 1e-12)
	assert.InDelta(t, 10.0, max.X, 1e-12)
	assert.InDelta(t, 1.0, max.Z, 1e-9)
}

func TestTubeCapNormals(t *testing.T) {
	const segs = 8
	m := Tube(line(2, v3.Vec{Y: 4}), 0.5, segs)
	require.Equal(t, 2*segs+2*segs, m.TriangleCount())

	var start, end int
	for _, tri := range m.Triangles {
		n := tri.Normal()
		switch {
		case n.Y < -0.999:
			start++
		case n.Y > 0.999:
			end++
		default:
			c := tri.V[0].Add(tri.V[1]).Add(tri.V[2])
			assert.Greater(t, n.X*c.X+n.Z*c.Z, 0.0, "side faces point away from the axis")
		}
	}
	assert.Equal(t, segs, start)
	assert.Equal(t, segs, end)
}

func TestTubeClosedLoop(t *testing.T) {
	const segs = 12
	sq := geom.SweepPath{
		Points: []v3.Vec{{}, {X: 20}, {X: 20, Y: 20}, {Y: 20}},
		Closed: true,
	}
	m := Tube(sq, 1, segs)
	assert.Equal(t, 2*segs*4, m.TriangleCount(), "no caps on a closed loop")
	assert.True(t, kernel.IsWatertight(m))
	assert.Greater(t, kernel.Volume(m), 0.0)
}

func TestTubeDegenerate(t *testing.T) {
	tests := []struct {
		name string
		path geom.SweepPath
		want int
	}{
		{"empty", geom.SweepPath{}, 0},
		{"single point", geom.SweepPath{Points: []v3.Vec{{X: 1}}}, 0},
		{"two identical points", geom.SweepPath{Points: []v3.Vec{{X: 1}, {X: 1}}}, 0},
		{"duplicate inside", geom.SweepPath{Points: []v3.Vec{{}, {}, {X: 1}}}, 4 * 6},
		{"closed pair", geom.SweepPath{Points: []v3.Vec{{}, {X: 1}}, Closed: true}, 4 * 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m *kernel.Mesh
			require.NotPanics(t, func() { m = Tube(tt.path, 1, 6) })
			assert.Equal(t, tt.want, m.TriangleCount())
		})
	}
}

func TestTubeClampsSegments(t *testing.T) {
	m := Tube(line(2, v3.Vec{X: 1}), 1, 1)
	assert.Equal(t, 4*MinSegments, m.TriangleCount())
	assert.True(t, Tube(line(3, v3.Vec{X: 1}), 0, 8).IsEmpty())
}
