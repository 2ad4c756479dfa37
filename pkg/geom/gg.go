package geom

import (
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/gogpu/gg"
)

// DefaultTolerance is the maximum distance, in millimetres, between a curve
// and its flattened polyline.
const DefaultTolerance = 0.05

const maxCurveSegments = 1024

// FromPath flattens a vector path into one Path per subpath. Curves are
// subdivided so that no point of the polyline is farther than tolerance from
// the curve. A subpath is Closed only if it ends with a Close verb.
func FromPath(p *gg.Path, tolerance float64) []Path {
	if p == nil {
		return nil
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var (
		paths   []Path
		cur     []v2.Vec
		start   v2.Vec
		last    v2.Vec
		hasOpen bool
	)
	flush := func(closed bool) {
		if len(cur) > 0 {
			paths = append(paths, Path{Points: cur, Closed: closed})
		}
		cur = nil
		hasOpen = false
	}
	begin := func() {
		if !hasOpen {
			cur = []v2.Vec{last}
			hasOpen = true
		}
	}

	p.Iterate(func(verb gg.PathVerb, c []float64) {
		switch verb {
		case gg.MoveTo:
			flush(false)
			start = v2.Vec{X: c[0], Y: c[1]}
			last = start
			cur = []v2.Vec{start}
			hasOpen = true
		case gg.LineTo:
			begin()
			last = v2.Vec{X: c[0], Y: c[1]}
			cur = append(cur, last)
		case gg.QuadTo:
			begin()
			ctrl := v2.Vec{X: c[0], Y: c[1]}
			end := v2.Vec{X: c[2], Y: c[3]}
			cur = appendQuad(cur, last, ctrl, end, tolerance)
			last = end
		case gg.CubicTo:
			begin()
			c1 := v2.Vec{X: c[0], Y: c[1]}
			c2 := v2.Vec{X: c[2], Y: c[3]}
			end := v2.Vec{X: c[4], Y: c[5]}
			cur = appendCubic(cur, last, c1, c2, end, tolerance)
			last = end
		case gg.Close:
			flush(true)
			// Drawing after a close continues from the subpath start.
			last = start
		}
	})
	flush(false)
	return paths
}

// ParseSVG flattens SVG path data (the "d" attribute) into paths.
func ParseSVG(d string, tolerance float64) ([]Path, error) {
	p, err := gg.ParseSVGPath(d)
	if err != nil {
		return nil, fmt.Errorf("geom: svg path: %w", err)
	}
	return FromPath(p, tolerance), nil
}

// Transform applies an affine placement to every point, e.g. the
// pixel-to-millimetre scale and offset for traced images.
func Transform(paths []Path, m gg.Matrix) []Path {
	out := make([]Path, len(paths))
	for i, p := range paths {
		pts := make([]v2.Vec, len(p.Points))
		for j, q := range p.Points {
			r := m.TransformPoint(gg.Pt(q.X, q.Y))
			pts[j] = v2.Vec{X: r.X, Y: r.Y}
		}
		out[i] = Path{Points: pts, Closed: p.Closed}
	}
	return out
}

// PixelToMM returns the placement matrix for a traced image: pixels are
// scaled by mmPerPixel, the y axis is flipped (images grow downwards) and
// the result is shifted so the image height maps to y=0.
func PixelToMM(mmPerPixel, imageHeight float64) gg.Matrix {
	return gg.Translate(0, imageHeight*mmPerPixel).Multiply(gg.Scale(mmPerPixel, -mmPerPixel))
}

// Contours returns the closed paths as contours, dropping open strokes.
func Contours(paths []Path) []Contour {
	var cs []Contour
	for _, p := range paths {
		if p.Closed {
			cs = append(cs, Contour(p.Points))
		}
	}
	return cs
}

func appendQuad(dst []v2.Vec, p0, p1, p2 v2.Vec, tol float64) []v2.Vec {
	d := p0.Sub(p1.MulScalar(2)).Add(p2).Length()
	n := segmentsFor(d/4, tol)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		dst = append(dst, p0.MulScalar(u*u).Add(p1.MulScalar(2*u*t)).Add(p2.MulScalar(t*t)))
	}
	return dst
}

func appendCubic(dst []v2.Vec, p0, p1, p2, p3 v2.Vec, tol float64) []v2.Vec {
	d := math.Max(
		p0.Sub(p1.MulScalar(2)).Add(p2).Length(),
		p1.Sub(p2.MulScalar(2)).Add(p3).Length(),
	)
	n := segmentsFor(0.75*d, tol)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		a := p0.MulScalar(u * u * u)
		b := p1.MulScalar(3 * u * u * t)
		c := p2.MulScalar(3 * u * t * t)
		e := p3.MulScalar(t * t * t)
		dst = append(dst, a.Add(b).Add(c).Add(e))
	}
	return dst
}

// segmentsFor returns the number of line segments needed so that an error
// bound of k/n² stays within tol.
func segmentsFor(k, tol float64) int {
	n := int(math.Ceil(math.Sqrt(k / tol)))
	if n < 1 {
		n = 1
	}
	if n > maxCurveSegments {
		n = maxCurveSegments
	}
	return n
}
