// Package shapes provides named tag outlines that feed the extruder. Every
// provider returns one or more counter-clockwise outer contours centred on
// the origin and scaled so that size is the nominal width in millimetres.
package shapes

import (
	"fmt"
	"math"
	"sort"
	"sync"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/glowform/pkg/geom"
)

// Provider produces an outline at a given size.
type Provider interface {
	Outline(size float64) []geom.Contour
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(size float64) []geom.Contour

// Outline calls f.
func (f ProviderFunc) Outline(size float64) []geom.Contour { return f(size) }

var (
	mu       sync.RWMutex
	registry = map[string]Provider{}
)

func init() {
	Register("circle", ProviderFunc(circle))
	Register("rounded-rect", ProviderFunc(roundedRect))
	Register("bone", ProviderFunc(bone))
	Register("heart", ProviderFunc(heart))
	Register("paw", ProviderFunc(paw))
	Register("star", ProviderFunc(star))
}

// Register adds or replaces a named provider.
func Register(name string, p Provider) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = p
}

// Lookup returns the provider registered under name.
func Lookup(name string) (Provider, error) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("shapes: unknown shape %q", name)
	}
	return p, nil
}

// Names returns the registered shape names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Outline looks up name and builds it at size, moved to at.
func Outline(name string, size float64, at v2.Vec) ([]geom.Contour, error) {
	p, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if !(size > 0) {
		return nil, fmt.Errorf("shapes: %s: size must be positive, got %g", name, size)
	}
	cs := p.Outline(size)
	out := make([]geom.Contour, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.CCW().Translate(at))
	}
	return out, nil
}

// Hole returns a clockwise circle for a mounting hole.
func Hole(center v2.Vec, diameter float64, segments int) geom.Contour {
	return geom.Circle(center, diameter/2, segments).Reversed()
}

// segmentsFor picks a circle resolution that keeps chords near 0.5 mm.
func segmentsFor(radius float64) int {
	n := int(math.Ceil(2 * math.Pi * radius / 0.5))
	if n < 24 {
		return 24
	}
	if n > 256 {
		return 256
	}
	return n
}

func circle(size float64) []geom.Contour {
	r := size / 2
	return []geom.Contour{geom.Circle(v2.Vec{}, r, segmentsFor(r))}
}

// roundedRect is a 5:3 tag with corner radius a tenth of the width.
func roundedRect(size float64) []geom.Contour {
	w, h := size/2, size*0.3
	r := size * 0.1
	p := sdf.NewPolygon()
	p.Add(-w, -h).Smooth(r, 8)
	p.Add(w, -h).Smooth(r, 8)
	p.Add(w, h).Smooth(r, 8)
	p.Add(-w, h).Smooth(r, 8)
	p.Close()
	return []geom.Contour{polygon(p)}
}

// bone is a dog bone: a shaft with two rounded lobes at each end.
func bone(size float64) []geom.Contour {
	s := size
	r := s * 0.03
	p := sdf.NewPolygon()
	p.Add(-0.35*s, -0.12*s).Smooth(r, 4)
	p.Add(0.35*s, -0.12*s).Smooth(r, 4)
	p.Add(0.42*s, -0.25*s).Smooth(r, 6)
	p.Add(0.5*s, -0.12*s).Smooth(r, 6)
	p.Add(0.45*s, 0).Smooth(r, 4)
	p.Add(0.5*s, 0.12*s).Smooth(r, 6)
	p.Add(0.42*s, 0.25*s).Smooth(r, 6)
	p.Add(0.35*s, 0.12*s).Smooth(r, 4)
	p.Add(-0.35*s, 0.12*s).Smooth(r, 4)
	p.Add(-0.42*s, 0.25*s).Smooth(r, 6)
	p.Add(-0.5*s, 0.12*s).Smooth(r, 6)
	p.Add(-0.45*s, 0).Smooth(r, 4)
	p.Add(-0.5*s, -0.12*s).Smooth(r, 6)
	p.Add(-0.42*s, -0.25*s).Smooth(r, 6)
	p.Close()
	return []geom.Contour{polygon(p)}
}

// heart samples the classic parametric heart, which is 32 units wide.
func heart(size float64) []geom.Contour {
	const n = 96
	k := size / 32
	c := make(geom.Contour, n)
	for i := range c {
		t := 2 * math.Pi * float64(i) / n
		s := math.Sin(t)
		x := 16 * s * s * s
		y := 13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t)
		c[i] = v2.Vec{X: x * k, Y: (y + 2) * k}
	}
	return []geom.Contour{geom.CleanContour(c, geom.Epsilon).CCW()}
}

// paw is a main pad with four separate toe pads.
func paw(size float64) []geom.Contour {
	s := size
	pads := []struct {
		cx, cy, rx, ry, tilt float64
	}{
		{0, -0.1, 0.28, 0.22, 0},
		{-0.32, 0.16, 0.085, 0.12, 0.35},
		{-0.11, 0.3, 0.085, 0.12, 0.1},
		{0.11, 0.3, 0.085, 0.12, -0.1},
		{0.32, 0.16, 0.085, 0.12, -0.35},
	}
	out := make([]geom.Contour, 0, len(pads))
	for _, p := range pads {
		out = append(out, ellipse(v2.Vec{X: p.cx * s, Y: p.cy * s}, p.rx*s, p.ry*s, p.tilt, segmentsFor(p.rx*s)))
	}
	return out
}

// star is a five-pointed star with its top point on the +y axis.
func star(size float64) []geom.Contour {
	const points = 5
	outer := size / 2
	inner := outer * 0.4
	c := make(geom.Contour, 2*points)
	for i := range c {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := math.Pi/2 + math.Pi*float64(i)/points
		c[i] = v2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return []geom.Contour{c}
}

func ellipse(center v2.Vec, rx, ry, tilt float64, segments int) geom.Contour {
	st, ct := math.Sincos(tilt)
	c := make(geom.Contour, segments)
	for i := range c {
		s, co := math.Sincos(2 * math.Pi * float64(i) / float64(segments))
		x, y := rx*co, ry*s
		c[i] = v2.Vec{X: center.X + x*ct - y*st, Y: center.Y + x*st + y*ct}
	}
	return c
}

func polygon(p *sdf.Polygon) geom.Contour {
	return geom.CleanContour(geom.Contour(p.Vertices()), geom.Epsilon).CCW()
}
