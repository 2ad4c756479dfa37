package sweep

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
)

// MinSegments is the smallest ring resolution a tube is built with.
const MinSegments = 3

// Tube sweeps a circle of the given radius along path. Open paths get a
// triangle fan cap at each end; closed paths are stitched last ring to first
// without caps. Consecutive duplicate points are filtered first, and a path
// with fewer than two distinct points gives an empty mesh.
func Tube(path geom.SweepPath, radius float64, segments int) *kernel.Mesh {
	log := kernel.Logger()
	if segments < MinSegments {
		log.Debug().Int("segments", segments).Int("min", MinSegments).Msg("sweep: clamped segment count")
		segments = MinSegments
	}
	if !(radius > 0) {
		log.Debug().Float64("radius", radius).Msg("sweep: non-positive radius, nothing to build")
		return kernel.NewMesh(0)
	}

	clean := geom.CleanSweep(path, geom.Epsilon)
	if dropped := len(path.Points) - len(clean.Points); dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("sweep: filtered degenerate path points")
	}
	frames := Frames(clean, v3.Vec{})
	if len(frames) < 2 {
		return kernel.NewMesh(0)
	}
	closed := clean.Closed

	rings := make([][]v3.Vec, len(frames))
	for i, f := range frames {
		ring := make([]v3.Vec, segments)
		for j := range ring {
			ring[j] = f.Ring(radius, 2*math.Pi*float64(j)/float64(segments))
		}
		rings[i] = ring
	}

	spans := len(rings) - 1
	if closed {
		spans = len(rings)
	}
	tris := 2 * segments * spans
	if !closed {
		tris += 2 * segments
	}
	m := kernel.NewMesh(tris)

	for i := 0; i < spans; i++ {
		stitch(m, rings[i], rings[(i+1)%len(rings)])
	}
	if !closed {
		first, last := rings[0], rings[len(rings)-1]
		p0, pl := frames[0].Point, frames[len(frames)-1].Point
		for j := 0; j < segments; j++ {
			k := (j + 1) % segments
			m.Add(p0, first[k], first[j])
			m.Add(pl, last[j], last[k])
		}
	}
	return m
}

// stitch joins two rings of equal size with outward-facing quads. Ring
// points must advance counter-clockwise about the tangent from a to b.
func stitch(m *kernel.Mesh, a, b []v3.Vec) {
	n := len(a)
	for j := 0; j < n; j++ {
		k := (j + 1) % n
		m.AddQuad(a[j], a[k], b[k], b[j])
	}
}
