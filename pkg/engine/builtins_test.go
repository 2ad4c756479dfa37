package engine

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/glowform/pkg/design"
	"github.com/chazu/glowform/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(rect :w 40 :h 20)`,
			expect: `(rect "__kw_w" 40 "__kw_h" 20)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(svg-path "M0 0" :relief-depth 2)`,
			expect: `(svg_path "M0 0" "__kw_relief-depth" 2)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec2 -5 3)`,
			expect: `(vec2 -5 3)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:cap-material`,
			expect: `"__kw_cap-material"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evalOK evaluates source and fails the test on any error.
func evalOK(t *testing.T, source string) *design.Design {
	t.Helper()
	d, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if d == nil {
		t.Fatal("expected non-nil design")
	}
	return d
}

// evalFails evaluates source and returns the joined eval error messages.
func evalFails(t *testing.T, source string) string {
	t.Helper()
	_, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatalf("expected eval errors for %s", source)
	}
	msgs := make([]string, len(evalErrs))
	for i, e := range evalErrs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "\n")
}

// ---------------------------------------------------------------------------
// Part builtins
// ---------------------------------------------------------------------------

func TestFlatPart(t *testing.T) {
	d := evalOK(t, `
(flat "tag"
  (rect :w 40 :h 20)
  (hole :d 4 :at (vec2 5 10) :segments 16)
  :depth 2.5 :material :translucent)
`)
	tag := d.Lookup("tag")
	if tag == nil {
		t.Fatal("expected node named 'tag'")
	}
	if tag.Kind != design.NodePart {
		t.Errorf("expected NodePart, got %s", tag.Kind)
	}
	fd, ok := tag.Data.(design.FlatData)
	if !ok {
		t.Fatalf("expected FlatData, got %T", tag.Data)
	}
	if fd.Depth != 2.5 {
		t.Errorf("expected depth=2.5, got %f", fd.Depth)
	}
	if fd.Material != kernel.MaterialTranslucent {
		t.Errorf("expected translucent, got %s", fd.Material)
	}
	if len(fd.Contours) != 2 {
		t.Fatalf("expected outline plus hole, got %d contours", len(fd.Contours))
	}
	if fd.Contours[0].SignedArea() <= 0 {
		t.Error("outline should be counter-clockwise")
	}
	if fd.Contours[1].SignedArea() >= 0 {
		t.Error("hole should be clockwise")
	}
	if len(d.Roots) != 1 || d.Roots[0] != tag.ID {
		t.Errorf("expected the part to be the only root, got %v", d.Roots)
	}
}

func TestFlatUsesDefaults(t *testing.T) {
	d := evalOK(t, `(flat "disc" (circle :d 30))`)
	fd := d.MustLookup("disc").Data.(design.FlatData)
	def := design.DefaultDefaults()
	if fd.Depth != def.Depth {
		t.Errorf("expected default depth %g, got %g", def.Depth, fd.Depth)
	}
	if len(fd.Contours[0]) != def.CircleSegments {
		t.Errorf("expected %d circle points, got %d", def.CircleSegments, len(fd.Contours[0]))
	}
	if r := fd.Contours[0][0].X; math.Abs(r-15) > 1e-9 {
		t.Errorf("expected radius 15, got %g", r)
	}
}

func TestVariableReference(t *testing.T) {
	d := evalOK(t, `
(def tagdepth 4)
(def tagsize 50)
(flat "pet" (shape "bone" :size tagsize) :depth tagdepth)
`)
	fd := d.MustLookup("pet").Data.(design.FlatData)
	if fd.Depth != 4 {
		t.Errorf("expected depth=4 (from variable), got %f", fd.Depth)
	}
	if len(fd.Contours) == 0 {
		t.Error("expected bone contours")
	}
}

func TestShapeKeywordName(t *testing.T) {
	d := evalOK(t, `(flat "paw" (shape :paw :size 40 :at (vec2 100 0)))`)
	fd := d.MustLookup("paw").Data.(design.FlatData)
	if len(fd.Contours) < 2 {
		t.Fatalf("paw should have several pads, got %d contours", len(fd.Contours))
	}
	for i, c := range fd.Contours {
		for _, p := range c {
			if p.X < 50 {
				t.Fatalf("contour %d not moved by :at: %v", i, p)
			}
		}
	}
}

func TestShapeKeywordMatchesString(t *testing.T) {
	d := evalOK(t, `
(flat "a" (shape :heart :size 30))
(flat "b" (shape "heart" :size 30))`)
	a := d.MustLookup("a").Data.(design.FlatData)
	b := d.MustLookup("b").Data.(design.FlatData)
	if !reflect.DeepEqual(a.Contours, b.Contours) {
		t.Error("keyword and string shape names should give the same outline")
	}
}

func TestUnknownShape(t *testing.T) {
	msg := evalFails(t, `(flat "x" (shape "dragon" :size 10))`)
	if !strings.Contains(msg, "dragon") {
		t.Errorf("expected the unknown name in the error, got %q", msg)
	}
}

func TestRaisedPart(t *testing.T) {
	d := evalOK(t, `
(raised "sign"
  :base (rect :w 80 :h 30)
  :relief (list (circle :r 5 :at (vec2 15 15)) (circle :r 5 :at (vec2 65 15)))
  :depth 2 :relief-depth 1 :relief-material :translucent)
`)
	rd, ok := d.MustLookup("sign").Data.(design.RaisedData)
	if !ok {
		t.Fatalf("expected RaisedData, got %T", d.MustLookup("sign").Data)
	}
	if len(rd.Base) != 1 || len(rd.Relief) != 2 {
		t.Fatalf("expected 1 base and 2 relief contours, got %d and %d", len(rd.Base), len(rd.Relief))
	}
	if rd.BaseDepth != 2 || rd.ReliefDepth != 1 {
		t.Errorf("depths = %g, %g", rd.BaseDepth, rd.ReliefDepth)
	}
	if rd.Material != kernel.MaterialOpaque || rd.ReliefMaterial != kernel.MaterialTranslucent {
		t.Errorf("materials = %s, %s", rd.Material, rd.ReliefMaterial)
	}
}

func TestOutlinePart(t *testing.T) {
	d := evalOK(t, `
(outline "rim" (shape "heart" :size 60) :radius 2 :segments 12)
(outline "wire" (path (vec2 0 0) (vec3 20 0 5) (vec2 40 10)))
`)
	od := d.MustLookup("rim").Data.(design.OutlineData)
	if od.Radius != 2 || od.Segments != 12 {
		t.Errorf("radius=%g segments=%d", od.Radius, od.Segments)
	}
	if len(od.Paths) != 1 || !od.Paths[0].Closed {
		t.Fatalf("expected one closed path, got %+v", od.Paths)
	}

	wire := d.MustLookup("wire").Data.(design.OutlineData)
	if len(wire.Paths) != 1 || wire.Paths[0].Closed {
		t.Fatal("expected one open path")
	}
	if wire.Paths[0].Points[1].Z != 5 {
		t.Errorf("vec3 point lost its height: %v", wire.Paths[0].Points[1])
	}
	if wire.Radius != design.DefaultDefaults().TubeRadius {
		t.Errorf("expected default radius, got %g", wire.Radius)
	}
}

func TestSegmentLimit(t *testing.T) {
	msg := evalFails(t, `(outline "rim" (circle :r 10) :segments 100000)`)
	if !strings.Contains(msg, "exceeds limit") {
		t.Errorf("expected a limit error, got %q", msg)
	}
	msg = evalFails(t, `(flat "x" (circle :r 10 :segments 2))`)
	if !strings.Contains(msg, "at least 3") {
		t.Errorf("expected a minimum segment error, got %q", msg)
	}
}

func TestChannelPart(t *testing.T) {
	d := evalOK(t, `
(channel "strip"
  (path (vec2 0 0) (vec2 100 0) (vec2 100 50))
  :width 14 :wall 1.6 :height 10 :tolerance 0.2)
`)
	cd, ok := d.MustLookup("strip").Data.(design.ChannelData)
	if !ok {
		t.Fatalf("expected ChannelData, got %T", d.MustLookup("strip").Data)
	}
	if cd.Profile.Width != 14 || cd.Profile.WallThickness != 1.6 || cd.Profile.WallHeight != 10 {
		t.Errorf("profile = %+v", cd.Profile)
	}
	def := design.DefaultDefaults()
	if cd.Profile.FloorThickness != def.Channel.FloorThickness {
		t.Errorf("floor should default, got %g", cd.Profile.FloorThickness)
	}
	if cd.Tolerance != 0.2 {
		t.Errorf("tolerance = %g", cd.Tolerance)
	}
	if cd.CapMaterial != kernel.MaterialTranslucent {
		t.Errorf("cap should default to translucent, got %s", cd.CapMaterial)
	}
}

func TestChannelRejectsZeroWidth(t *testing.T) {
	msg := evalFails(t, `(channel "strip" (path (vec2 0 0) (vec2 10 0)) :width 0)`)
	if !strings.Contains(msg, "width") {
		t.Errorf("expected a width error, got %q", msg)
	}
}

func TestSVGPath(t *testing.T) {
	d := evalOK(t, `(flat "logo" (svg-path "M0 0 L10 0 L10 10 L0 10 Z" :scale 2 :at (vec2 5 100)))`)
	fd := d.MustLookup("logo").Data.(design.FlatData)
	if len(fd.Contours) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(fd.Contours))
	}
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range fd.Contours[0] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	// Scaled by 2, flipped about x, moved to (5, 100).
	if minX != 5 || maxX != 25 || minY != 80 || maxY != 100 {
		t.Errorf("bounds x %g..%g y %g..%g", minX, maxX, minY, maxY)
	}
}

func TestSVGPathBadData(t *testing.T) {
	evalFails(t, `(flat "logo" (svg-path "Q"))`)
}

func TestPolygonNeedsThreePoints(t *testing.T) {
	msg := evalFails(t, `(flat "x" (polygon (vec2 0 0) (vec2 1 0)))`)
	if !strings.Contains(msg, "at least 3") {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestDuplicateName(t *testing.T) {
	msg := evalFails(t, `
(flat "tag" (rect :w 1 :h 1))
(flat "tag" (rect :w 1 :h 1))
`)
	if !strings.Contains(msg, "duplicate") {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestBadMaterial(t *testing.T) {
	msg := evalFails(t, `(flat "tag" (rect :w 1 :h 1) :material :glass)`)
	if !strings.Contains(msg, "glass") {
		t.Errorf("unexpected error %q", msg)
	}
}

// ---------------------------------------------------------------------------
// Structure builtins
// ---------------------------------------------------------------------------

func TestPlaceAndGroup(t *testing.T) {
	d := evalOK(t, `
(flat "plate" (rect :w 60 :h 40))
(channel "strip" (path (vec2 5 5) (vec2 55 5)))
(group "lamp"
  (part "plate")
  (place (part "strip") :at (vec3 0 0 3) :rotate 90))
`)
	if d.NodeCount() != 4 {
		t.Fatalf("expected 4 nodes, got %d", d.NodeCount())
	}
	lamp := d.Lookup("lamp")
	if lamp == nil || lamp.Kind != design.NodeGroup {
		t.Fatal("expected a group named 'lamp'")
	}
	if len(d.Roots) != 1 || d.Roots[0] != lamp.ID {
		t.Fatalf("expected lamp to be the only root, got %v", d.Roots)
	}
	if len(lamp.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(lamp.Children))
	}

	place := d.Get(lamp.Children[1])
	if place.Kind != design.NodeTransform {
		t.Fatalf("expected NodeTransform, got %s", place.Kind)
	}
	td := place.Data.(design.TransformData)
	if td.Translation.Z != 3 || td.Rotation != 90 {
		t.Errorf("transform = %+v", td)
	}
	if place.Children[0] != d.MustLookup("strip").ID {
		t.Error("place should wrap the strip")
	}
	if errs := design.Validate(d); len(errs) > 0 {
		t.Errorf("design should validate, got %v", errs)
	}
}

func TestPartLookupError(t *testing.T) {
	msg := evalFails(t, `(part "nonexistent")`)
	if !strings.Contains(msg, "nonexistent") {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestPlaceRequiresNodeRef(t *testing.T) {
	evalFails(t, `(place 42 :at (vec3 0 0 1))`)
}

func TestVec2Arity(t *testing.T) {
	msg := evalFails(t, `(vec2 1)`)
	if !strings.Contains(msg, "exactly 2") {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	d := evalOK(t, `
(def w 30)
(flat "plate" (rect :w (* w 2) :h (+ w 10)))
`)
	c := d.MustLookup("plate").Data.(design.FlatData).Contours[0]
	if c[2].X != 60 || c[2].Y != 40 {
		t.Errorf("expected 60x40 rect, got corner %v", c[2])
	}
}
