package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/glowform/pkg/config"
	"github.com/chazu/glowform/pkg/design"
	"github.com/chazu/glowform/pkg/engine"
	"github.com/chazu/glowform/pkg/export"
	"github.com/chazu/glowform/pkg/kernel"
	"github.com/chazu/glowform/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to
// opaque parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// translucentColor is the preview color of diffuser parts.
const translucentColor = "#F5F5F0"

// ErrScript is wrapped when a script evaluates with errors.
var ErrScript = errors.New("script has errors")

// App is the configurator backend. Its methods return JSON-friendly values
// so they can be bound to a web frontend as well as driven from the CLI.
type App struct {
	engine *engine.Engine
	opts   tessellate.Options
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices  []float32 `json:"vertices"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
	PartName  string    `json:"partName"`
	Material  string    `json:"material"`
	Color     string    `json:"color"`
	Triangles int       `json:"triangles"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App with the default configuration.
func NewApp() *App {
	return NewAppWithConfig(config.Default())
}

// NewAppWithConfig creates an App from a validated configuration.
func NewAppWithConfig(cfg *config.Config) *App {
	timeout, err := cfg.Timeout()
	if err != nil {
		timeout = engine.EvalTimeout
	}
	return &App{
		engine: engine.NewEngine(
			engine.WithDefaults(cfg.Defaults()),
			engine.WithLimits(cfg.Limits),
			engine.WithTimeout(timeout),
		),
		opts: tessellate.Options{Limits: cfg.Limits},
	}
}

// Evaluate takes design source and returns mesh data + errors.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
	log := kernel.Logger()

	// Step 1: Evaluate and validate the source into a design graph.
	res, err := a.engine.Check(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Error().Err(err).Msg("evaluate: fatal error")
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Line: w.Line, Col: w.Col, Message: w.Message})
	}

	// Step 2: Convert eval errors to the frontend format.
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	// Step 3: Tessellate the design graph into triangle meshes.
	meshes, err := tessellate.Tessellate(res.Design, a.opts)
	if err != nil {
		log.Error().Err(err).Msg("evaluate: tessellation failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	// Step 4: Convert kernel meshes to the frontend MeshData format.
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, toMeshData(m, i))
	}
	return result
}

// Meshes evaluates, validates and tessellates source. Script and
// validation errors are returned as one error wrapping ErrScript.
func (a *App) Meshes(source string) ([]*kernel.Mesh, error) {
	res, err := a.engine.Check(source)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("%w: %s", ErrScript, strings.Join(msgs, "; "))
	}
	logWarnings(res.Warnings)
	return tessellate.Tessellate(res.Design, a.opts)
}

// Export evaluates source and serializes every part to binary STL.
func (a *App) Export(source string) (*export.Bundle, error) {
	meshes, err := a.Meshes(source)
	if err != nil {
		return nil, err
	}
	return export.Export(meshes)
}

// ExportDesign validates a design built outside the engine, such as one
// read from GeoJSON, and serializes its parts.
func (a *App) ExportDesign(d *design.Design) (*export.Bundle, error) {
	vr := design.ValidateAll(d, a.opts.Limits)
	if err := vr.Err(); err != nil {
		return nil, err
	}
	for _, w := range vr.Warnings {
		kernel.Logger().Warn().Str("node", w.NodeID.Short()).Msg(w.Message)
	}
	meshes, err := tessellate.Tessellate(d, a.opts)
	if err != nil {
		return nil, err
	}
	return export.Export(meshes)
}

func logWarnings(ws []engine.EvalWarning) {
	log := kernel.Logger()
	for _, w := range ws {
		log.Warn().Msg(w.Message)
	}
}

// toMeshData flattens a triangle soup into indexed buffers with per-face
// normals.
func toMeshData(m *kernel.Mesh, i int) MeshData {
	n := m.TriangleCount()
	md := MeshData{
		Vertices:  make([]float32, 0, n*9),
		Normals:   make([]float32, 0, n*9),
		Indices:   make([]uint32, 0, n*3),
		PartName:  m.PartName,
		Material:  m.Material.String(),
		Color:     colorPalette[i%len(colorPalette)],
		Triangles: n,
	}
	if m.Material == kernel.MaterialTranslucent {
		md.Color = translucentColor
	}
	for _, t := range m.Triangles {
		nv := t.Normal()
		for _, v := range t.V {
			md.Indices = append(md.Indices, uint32(len(md.Vertices)/3))
			md.Vertices = append(md.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			md.Normals = append(md.Normals, float32(nv.X), float32(nv.Y), float32(nv.Z))
		}
	}
	return md
}
