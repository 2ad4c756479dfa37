package engine

import (
	"fmt"
	"strings"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/gogpu/gg"

	"github.com/chazu/glowform/pkg/design"
	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
	"github.com/chazu/glowform/pkg/shapes"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms design source before passing it to zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords never collide with user variables.
//
//  2. Kebab-case to underscore: svg-path -> svg_path. zygomys reads a
//     hyphen as the subtraction operator.
//
//  3. ; line comments become // comments.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only a hyphen between identifier characters is kebab-case; anything
		// else is a minus.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec2 wraps a 2D point in millimetres.
type sexpVec2 struct {
	vec v2.Vec
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %.2f %.2f)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a 3D point in millimetres.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.2f %.2f %.2f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpGeometry carries 2D input for the part builtins. Closed outlines are
// both contours (for flat parts) and closed sweep paths (for tubes and
// channels); open strokes are only sweep paths.
type sexpGeometry struct {
	kind     string
	contours []geom.Contour
	paths    []geom.SweepPath
}

func (g *sexpGeometry) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s :contours %d :paths %d)", g.kind, len(g.contours), len(g.paths))
}
func (g *sexpGeometry) Type() *zygo.RegisteredType { return nil }

func closedGeometry(kind string, cs ...geom.Contour) *sexpGeometry {
	g := &sexpGeometry{kind: kind, contours: cs}
	for _, c := range cs {
		g.paths = append(g.paths, c.Lift(0))
	}
	return g
}

// sexpNodeRef wraps a design.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   design.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string and returns its
// name without the prefix.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// number returns the numeric keyword key, or def when absent.
func (pa kwArgs) number(key string, def float64) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// integer returns the integer keyword key, or def when absent.
func (pa kwArgs) integer(key string, def int) (int, error) {
	f, err := pa.number(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%s: expected integer, got %g", key, f)
	}
	return int(f), nil
}

// point returns the vec2 keyword key, or def when absent.
func (pa kwArgs) point(key string, def v2.Vec) (v2.Vec, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	p, err := toVec2(v)
	if err != nil {
		return v2.Vec{}, fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}

// material returns the material keyword key, or def when absent.
func (pa kwArgs) material(key string, def kernel.Material) (kernel.Material, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	s, err := toKeywordString(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	m, err := kernel.ParseMaterial(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool accepts true/false or the keywords :yes/:no.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	if name, err := toKeywordString(s); err == nil {
		switch name {
		case "yes", "true":
			return true, nil
		case "no", "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec2 extracts a point from a sexpVec2.
func toVec2(s zygo.Sexp) (v2.Vec, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return v2.Vec{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a point from a sexpVec3, lifting a sexpVec2 to z=0.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	switch v := s.(type) {
	case *sexpVec3:
		return v.vec, nil
	case *sexpVec2:
		return v3.Vec{X: v.vec.X, Y: v.vec.Y}, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toGeometry merges geometry values, flattening lists and arrays.
func toGeometry(args ...zygo.Sexp) (*sexpGeometry, error) {
	out := &sexpGeometry{kind: "geometry"}
	for _, a := range args {
		switch v := a.(type) {
		case *sexpGeometry:
			out.contours = append(out.contours, v.contours...)
			out.paths = append(out.paths, v.paths...)
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(v)
			if err != nil {
				return nil, err
			}
			inner, err := toGeometry(items...)
			if err != nil {
				return nil, err
			}
			out.contours = append(out.contours, inner.contours...)
			out.paths = append(out.paths, inner.paths...)
		default:
			return nil, fmt.Errorf("expected geometry, got %T (%s)", a, a.SexpString(nil))
		}
	}
	return out, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtin is the signature zygomys expects for Go functions.
type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the design builtins into a zygomys environment.
// They populate d during evaluation; d.Defaults fill in parameters the
// script leaves out and limits bound the resolution a script may ask for.
//
// Source code must be preprocessed with preprocessSource() before evaluation
// so that :keyword tokens and kebab-case names are recognizable.
func registerBuiltins(env *zygo.Zlisp, d *design.Design, limits kernel.Limits) {
	def := d.Defaults

	// Anonymous node paths are numbered per evaluation so IDs stay
	// deterministic across runs of the same source.
	anon := 0
	nextPath := func(prefix string) string {
		anon++
		return fmt.Sprintf("%s/_anon_%d", prefix, anon)
	}

	checkSegments := func(fn string, n int) error {
		if n < 3 {
			return fmt.Errorf("%s: segments must be at least 3, got %d", fn, n)
		}
		if limits.MaxSegments > 0 && n > limits.MaxSegments {
			return fmt.Errorf("%s: %w: %d segments exceeds limit of %d", fn, kernel.ErrLimitExceeded, n, limits.MaxSegments)
		}
		return nil
	}

	// addPart registers a named part as a new root.
	addPart := func(fn string, args []zygo.Sexp, build func(pa kwArgs, g *sexpGeometry) (design.NodeData, error)) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("%s requires a name argument", fn)
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
		}
		if d.Lookup(partName) != nil {
			return zygo.SexpNull, fmt.Errorf("%s: duplicate name %q", fn, partName)
		}
		pa := parseArgs(args[1:])
		g, err := toGeometry(pa.positional...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s %q: %w", fn, partName, err)
		}
		data, err := build(pa, g)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s %q: %w", fn, partName, err)
		}
		id := design.NewNodeID("part/" + partName)
		d.AddNode(&design.Node{ID: id, Kind: design.NodePart, Name: partName, Data: data})
		d.AddRoot(id)
		return &sexpNodeRef{id: id, name: partName}, nil
	}

	add := func(name string, fn builtin) { env.AddFunction(name, fn) }

	// -----------------------------------------------------------------------
	// (vec2 10 20) (vec3 10 20 3)
	// -----------------------------------------------------------------------
	add("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: v2.Vec{X: x, Y: y}}, nil
	})

	add("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}
		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (circle :r 10 :at (vec2 0 0) :segments 64)   or :d 20
	// -----------------------------------------------------------------------
	add("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, err := pa.number("r", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		if dia, err := pa.number("d", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		} else if dia != 0 {
			r = dia / 2
		}
		if !(r > 0) {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", r)
		}
		at, err := pa.point("at", v2.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		n, err := pa.integer("segments", def.CircleSegments)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		if err := checkSegments("circle", n); err != nil {
			return zygo.SexpNull, err
		}
		return closedGeometry("circle", geom.Circle(at, r, n)), nil
	})

	// -----------------------------------------------------------------------
	// (rect :w 40 :h 20 :at (vec2 0 0))   :at is the lower-left corner
	// -----------------------------------------------------------------------
	add("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		w, err := pa.number("w", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		h, err := pa.number("h", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		if !(w > 0 && h > 0) {
			return zygo.SexpNull, fmt.Errorf("rect: width and height must be positive, got %g x %g", w, h)
		}
		at, err := pa.point("at", v2.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		return closedGeometry("rect", geom.Rect(at, w, h)), nil
	})

	// -----------------------------------------------------------------------
	// (shape "heart" :size 40 :at (vec2 0 0))
	// -----------------------------------------------------------------------
	// The name may be a keyword, (shape :paw :size 40), so it is taken
	// before the keyword pairs are parsed.
	add("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("shape requires a shape name (one of %s)", strings.Join(shapes.Names(), ", "))
		}
		shapeName, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: name: %w", err)
		}
		pa := parseArgs(args[1:])
		size, err := pa.number("size", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: %w", err)
		}
		at, err := pa.point("at", v2.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: %w", err)
		}
		cs, err := shapes.Outline(shapeName, size, at)
		if err != nil {
			return zygo.SexpNull, err
		}
		return closedGeometry(shapeName, cs...), nil
	})

	// -----------------------------------------------------------------------
	// (polygon (vec2 0 0) (vec2 10 0) (vec2 5 8))
	// -----------------------------------------------------------------------
	add("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		c := make(geom.Contour, 0, len(args))
		for i, a := range args {
			p, err := toVec2(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygon: point %d: %w", i, err)
			}
			c = append(c, p)
		}
		if len(c) < 3 {
			return zygo.SexpNull, fmt.Errorf("polygon requires at least 3 points, got %d", len(c))
		}
		return closedGeometry("polygon", c), nil
	})

	// -----------------------------------------------------------------------
	// (path (vec2 0 0) (vec3 10 0 5) ... :closed true)
	// -----------------------------------------------------------------------
	add("path", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		closed := false
		if v, ok := pa.kw["closed"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("path: closed: %w", err)
			}
			closed = b
		}
		sp := geom.SweepPath{Closed: closed}
		flat := true
		for i, a := range pa.positional {
			p, err := toVec3(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("path: point %d: %w", i, err)
			}
			flat = flat && p.Z == 0
			sp.Points = append(sp.Points, p)
		}
		if len(sp.Points) < 2 {
			return zygo.SexpNull, fmt.Errorf("path requires at least 2 points, got %d", len(sp.Points))
		}
		g := &sexpGeometry{kind: "path", paths: []geom.SweepPath{sp}}
		if closed && flat && len(sp.Points) >= 3 {
			c := make(geom.Contour, len(sp.Points))
			for i, p := range sp.Points {
				c[i] = v2.Vec{X: p.X, Y: p.Y}
			}
			g.contours = []geom.Contour{c}
		}
		return g, nil
	})

	// -----------------------------------------------------------------------
	// (svg-path "M0 0 L10 0 L10 10 Z" :scale 1 :at (vec2 0 0) :tolerance 0.05)
	//
	// SVG y grows downwards, so the data is flipped about the x axis.
	// -----------------------------------------------------------------------
	add("svg_path", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("svg-path requires path data")
		}
		data, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("svg-path: %w", err)
		}
		scale, err := pa.number("scale", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("svg-path: %w", err)
		}
		tol, err := pa.number("tolerance", geom.DefaultTolerance)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("svg-path: %w", err)
		}
		at, err := pa.point("at", v2.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("svg-path: %w", err)
		}
		// Flatten in SVG units so the tolerance is scaled with the data.
		paths, err := geom.ParseSVG(data, tol/scale)
		if err != nil {
			return zygo.SexpNull, err
		}
		paths = geom.Transform(paths, gg.Translate(at.X, at.Y).Multiply(gg.Scale(scale, -scale)))

		g := &sexpGeometry{kind: "svg-path", contours: geom.Contours(paths)}
		for _, p := range paths {
			if len(p.Points) >= 2 {
				g.paths = append(g.paths, p.Lift(0))
			}
		}
		if len(g.paths) == 0 {
			return zygo.SexpNull, fmt.Errorf("svg-path: no drawable segments in %q", data)
		}
		return g, nil
	})

	// -----------------------------------------------------------------------
	// (hole :d 4 :at (vec2 10 10))
	// -----------------------------------------------------------------------
	add("hole", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		dia, err := pa.number("d", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: %w", err)
		}
		if !(dia > 0) {
			return zygo.SexpNull, fmt.Errorf("hole: diameter must be positive, got %g", dia)
		}
		at, err := pa.point("at", v2.Vec{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: %w", err)
		}
		n, err := pa.integer("segments", def.CircleSegments)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: %w", err)
		}
		if err := checkSegments("hole", n); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpGeometry{kind: "hole", contours: []geom.Contour{shapes.Hole(at, dia, n)}}, nil
	})

	// -----------------------------------------------------------------------
	// (flat "tag" (shape "bone" :size 50) (hole :d 4) :depth 3 :material :opaque)
	// -----------------------------------------------------------------------
	add("flat", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return addPart("flat", args, func(pa kwArgs, g *sexpGeometry) (design.NodeData, error) {
			fd := design.FlatData{Contours: g.contours}
			var err error
			if fd.Depth, err = pa.number("depth", def.Depth); err != nil {
				return nil, err
			}
			if fd.Material, err = pa.material("material", kernel.MaterialOpaque); err != nil {
				return nil, err
			}
			if len(fd.Contours) == 0 {
				return nil, fmt.Errorf("no closed outlines")
			}
			return fd, nil
		})
	})

	// -----------------------------------------------------------------------
	// (raised "sign" :base (rect ...) :relief (list (circle ...) ...)
	//         :depth 2 :relief-depth 1.5 :relief-material :translucent)
	// -----------------------------------------------------------------------
	add("raised", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return addPart("raised", args, func(pa kwArgs, g *sexpGeometry) (design.NodeData, error) {
			rd := design.RaisedData{Base: g.contours}
			if v, ok := pa.kw["base"]; ok {
				bg, err := toGeometry(v)
				if err != nil {
					return nil, fmt.Errorf("base: %w", err)
				}
				rd.Base = append(rd.Base, bg.contours...)
			}
			if v, ok := pa.kw["relief"]; ok {
				rg, err := toGeometry(v)
				if err != nil {
					return nil, fmt.Errorf("relief: %w", err)
				}
				rd.Relief = rg.contours
			}
			var err error
			if rd.BaseDepth, err = pa.number("depth", def.BaseDepth); err != nil {
				return nil, err
			}
			if rd.ReliefDepth, err = pa.number("relief-depth", def.ReliefDepth); err != nil {
				return nil, err
			}
			if rd.Material, err = pa.material("material", kernel.MaterialOpaque); err != nil {
				return nil, err
			}
			if rd.ReliefMaterial, err = pa.material("relief-material", rd.Material); err != nil {
				return nil, err
			}
			if len(rd.Base) == 0 {
				return nil, fmt.Errorf("no base outline")
			}
			return rd, nil
		})
	})

	// -----------------------------------------------------------------------
	// (outline "rim" (shape "heart" :size 60) :radius 1.5 :segments 16)
	// -----------------------------------------------------------------------
	add("outline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return addPart("outline", args, func(pa kwArgs, g *sexpGeometry) (design.NodeData, error) {
			od := design.OutlineData{Paths: g.paths}
			var err error
			if od.Radius, err = pa.number("radius", def.TubeRadius); err != nil {
				return nil, err
			}
			if od.Segments, err = pa.integer("segments", def.TubeSegments); err != nil {
				return nil, err
			}
			if err := checkSegments("outline", od.Segments); err != nil {
				return nil, err
			}
			if od.Material, err = pa.material("material", kernel.MaterialOpaque); err != nil {
				return nil, err
			}
			if len(od.Paths) == 0 {
				return nil, fmt.Errorf("no paths")
			}
			return od, nil
		})
	})

	// -----------------------------------------------------------------------
	// (channel "strip" (path ...) :width 12 :wall 1.2 :height 8 :floor 1.2
	//          :cap 1.2 :tolerance 0.15 :cap-material :translucent)
	// -----------------------------------------------------------------------
	add("channel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return addPart("channel", args, func(pa kwArgs, g *sexpGeometry) (design.NodeData, error) {
			cd := design.ChannelData{Paths: g.paths}
			p := def.Channel
			fields := []struct {
				key string
				dst *float64
				def float64
			}{
				{"width", &cd.Profile.Width, p.Width},
				{"wall", &cd.Profile.WallThickness, p.WallThickness},
				{"height", &cd.Profile.WallHeight, p.WallHeight},
				{"floor", &cd.Profile.FloorThickness, p.FloorThickness},
				{"cap", &cd.Profile.CapThickness, p.CapThickness},
				{"tolerance", &cd.Tolerance, def.SnapTolerance},
			}
			for _, f := range fields {
				v, err := pa.number(f.key, f.def)
				if err != nil {
					return nil, err
				}
				*f.dst = v
			}
			var err error
			if cd.Material, err = pa.material("material", kernel.MaterialOpaque); err != nil {
				return nil, err
			}
			if cd.CapMaterial, err = pa.material("cap-material", kernel.MaterialTranslucent); err != nil {
				return nil, err
			}
			if err := cd.Profile.Valid(); err != nil {
				return nil, err
			}
			if len(cd.Paths) == 0 {
				return nil, fmt.Errorf("no paths")
			}
			return cd, nil
		})
	})

	// -----------------------------------------------------------------------
	// (part "name")
	// -----------------------------------------------------------------------
	add("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		n := d.Lookup(partName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
		}
		return &sexpNodeRef{id: n.ID, name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (place (part "strip") :at (vec3 0 0 3) :rotate 90)
	// -----------------------------------------------------------------------
	add("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a part reference as first argument")
		}
		child, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: part: %w", err)
		}

		td := design.TransformData{}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			td.Translation = vec
		}
		if td.Rotation, err = pa.number("rotate", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}

		prefix := "place"
		if child.name != "" {
			prefix = "place/" + child.name
		}
		id := design.NewNodeID(nextPath(prefix))
		d.AddNode(&design.Node{
			ID:       id,
			Kind:     design.NodeTransform,
			Children: []design.NodeID{child.id},
			Data:     td,
		})
		d.RemoveRoot(child.id)
		d.AddRoot(id)
		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (group "lamp" (part "plate") (place ...) ...)
	// -----------------------------------------------------------------------
	add("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("group requires a name argument")
		}
		groupName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
		}
		if d.Lookup(groupName) != nil {
			return zygo.SexpNull, fmt.Errorf("group: duplicate name %q", groupName)
		}

		var children []design.NodeID
		for i := 1; i < len(args); i++ {
			ref, err := toNodeRef(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("group: child %d: %w", i, err)
			}
			children = append(children, ref.id)
		}

		id := design.NewNodeID("group/" + groupName)
		d.AddNode(&design.Node{
			ID:       id,
			Kind:     design.NodeGroup,
			Name:     groupName,
			Children: children,
			Data:     design.GroupData{},
		})
		for _, c := range children {
			d.RemoveRoot(c)
		}
		d.AddRoot(id)
		return &sexpNodeRef{id: id, name: groupName}, nil
	})

}
