package design

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/chazu/glowform/pkg/channel"
	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
)

// FromGeoJSON builds a design from a GeoJSON FeatureCollection whose
// coordinates are in millimetres. Each feature becomes one part; the
// "mode" property selects the generator:
//
//	flat     Polygon / MultiPolygon, "depth"
//	raised   Polygon / MultiPolygon, "depth", "relief-depth"
//	outline  LineString / MultiLineString / Polygon rings, "radius", "segments"
//	channel  LineString / MultiLineString / Polygon rings, "width", "wall",
//	         "height", "floor", "cap", "tolerance"
//
// A polygon feature with a "relief-of" property naming a raised part adds
// its rings to that part's relief instead of becoming a part of its own.
// "name" and "material" apply to every mode.
func FromGeoJSON(data []byte, defaults Defaults) (*Design, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("design: geojson: %w", err)
	}

	d := New()
	d.Defaults = defaults
	raised := make(map[string]*RaisedData)
	var reliefs []*geojson.Feature

	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, fmt.Errorf("design: geojson: feature %d has no geometry", i)
		}
		props := f.Properties
		if props == nil {
			props = geojson.Properties{}
		}

		if _, ok := props["relief-of"]; ok {
			reliefs = append(reliefs, f)
			continue
		}

		name, err := stringProp(props, "name", fmt.Sprintf("feature-%d", i+1))
		if err != nil {
			return nil, fmt.Errorf("design: geojson: feature %d: %w", i, err)
		}
		if d.Lookup(name) != nil {
			return nil, fmt.Errorf("design: geojson: duplicate feature name %q", name)
		}
		pd, err := featurePart(f.Geometry, props, defaults)
		if err != nil {
			return nil, fmt.Errorf("design: geojson: feature %q: %w", name, err)
		}
		if rd, ok := pd.(RaisedData); ok {
			raised[name] = &rd
		}

		id := NewNodeID("geojson/" + name)
		d.AddNode(&Node{ID: id, Kind: NodePart, Name: name, Data: pd})
		d.AddRoot(id)
	}

	for _, f := range reliefs {
		target, err := stringProp(f.Properties, "relief-of", "")
		if err != nil {
			return nil, fmt.Errorf("design: geojson: %w", err)
		}
		rd, ok := raised[target]
		if !ok {
			return nil, fmt.Errorf("design: geojson: relief-of %q does not name a raised part", target)
		}
		cs := polygonContours(f.Geometry)
		if len(cs) == 0 {
			return nil, fmt.Errorf("design: geojson: relief of %q is not a polygon", target)
		}
		rd.Relief = append(rd.Relief, cs...)
		d.MustLookup(target).Data = *rd
	}

	return d, nil
}

func featurePart(g orb.Geometry, props geojson.Properties, def Defaults) (NodeData, error) {
	modeName, err := stringProp(props, "mode", "flat")
	if err != nil {
		return nil, err
	}
	mode, err := ParseMode(modeName)
	if err != nil {
		return nil, err
	}
	matName, err := stringProp(props, "material", "")
	if err != nil {
		return nil, err
	}
	mat, err := kernel.ParseMaterial(matName)
	if err != nil {
		return nil, err
	}

	num := func(key string, fallback float64) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = floatProp(props, key, fallback)
		return v
	}

	switch mode {
	case ModeFlat, ModeRaised:
		cs := polygonContours(g)
		if len(cs) == 0 {
			return nil, fmt.Errorf("%s mode needs a Polygon or MultiPolygon, got %s", mode, g.GeoJSONType())
		}
		if mode == ModeFlat {
			fd := FlatData{Contours: cs, Depth: num("depth", def.Depth), Material: mat}
			return fd, err
		}
		rd := RaisedData{
			Base:        cs,
			BaseDepth:   num("depth", def.BaseDepth),
			ReliefDepth: num("relief-depth", def.ReliefDepth),
			Material:    mat,
		}
		return rd, err

	case ModeOutline:
		paths := linePaths(g)
		if len(paths) == 0 {
			return nil, fmt.Errorf("outline mode needs line or polygon geometry, got %s", g.GeoJSONType())
		}
		od := OutlineData{
			Paths:    paths,
			Radius:   num("radius", def.TubeRadius),
			Segments: int(num("segments", float64(def.TubeSegments))),
			Material: mat,
		}
		return od, err

	default:
		paths := linePaths(g)
		if len(paths) == 0 {
			return nil, fmt.Errorf("channel mode needs line or polygon geometry, got %s", g.GeoJSONType())
		}
		p := def.Channel
		cd := ChannelData{
			Paths: paths,
			Profile: channel.Profile{
				Width:          num("width", p.Width),
				WallThickness:  num("wall", p.WallThickness),
				WallHeight:     num("height", p.WallHeight),
				FloorThickness: num("floor", p.FloorThickness),
				CapThickness:   num("cap", p.CapThickness),
			},
			Tolerance:   num("tolerance", def.SnapTolerance),
			Material:    mat,
			CapMaterial: kernel.MaterialTranslucent,
		}
		return cd, err
	}
}

// polygonContours returns every ring of a Polygon or MultiPolygon. GeoJSON
// winding is not trusted; the classifier re-derives it.
func polygonContours(g orb.Geometry) []geom.Contour {
	var polys []orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return nil
	}
	var out []geom.Contour
	for _, poly := range polys {
		for _, r := range poly {
			out = append(out, ringContour(r))
		}
	}
	return out
}

// linePaths returns sweep paths for line strings (open) and polygon rings
// (closed), lying on z=0.
func linePaths(g orb.Geometry) []geom.SweepPath {
	var lines []orb.LineString
	var rings []orb.Ring
	switch v := g.(type) {
	case orb.LineString:
		lines = []orb.LineString{v}
	case orb.MultiLineString:
		lines = v
	case orb.Polygon:
		rings = v
	case orb.MultiPolygon:
		for _, p := range v {
			rings = append(rings, p...)
		}
	default:
		return nil
	}

	var out []geom.SweepPath
	for _, ls := range lines {
		p := geom.Path{Points: make([]v2.Vec, len(ls))}
		for i, pt := range ls {
			p.Points[i] = v2.Vec{X: pt[0], Y: pt[1]}
		}
		out = append(out, p.Lift(0))
	}
	for _, r := range rings {
		out = append(out, ringContour(r).Lift(0))
	}
	return out
}

func ringContour(r orb.Ring) geom.Contour {
	c := make(geom.Contour, 0, len(r))
	for _, pt := range r {
		c = append(c, v2.Vec{X: pt[0], Y: pt[1]})
	}
	if len(c) > 1 && c[0] == c[len(c)-1] {
		c = c[:len(c)-1]
	}
	return c
}

func stringProp(p geojson.Properties, key, def string) (string, error) {
	switch p[key].(type) {
	case nil, string:
		return p.MustString(key, def), nil
	}
	return "", fmt.Errorf("property %q must be a string, got %T", key, p[key])
}

func floatProp(p geojson.Properties, key string, def float64) (float64, error) {
	switch p[key].(type) {
	case nil, float64, int:
		return p.MustFloat64(key, def), nil
	}
	return 0, fmt.Errorf("property %q must be a number, got %T", key, p[key])
}
