// Package kernel defines the shared mesh types of the glowform geometry
// kernel. Every generator (extrude, sweep, channel) produces a Mesh, a plain
// triangle soup with no shared-vertex structure; the stl package serializes
// it. Watertightness is a property of how a generator stitches its
// triangles, not something the Mesh type enforces, so the analysis helpers
// in this package exist to check it.
package kernel

import (
	"errors"
	"fmt"
)

// Material tags the physical material a part is meant to be printed in.
type Material int

const (
	MaterialOpaque      Material = iota // housings, channel bases
	MaterialTranslucent                 // diffuser caps, light panels
)

func (m Material) String() string {
	switch m {
	case MaterialOpaque:
		return "opaque"
	case MaterialTranslucent:
		return "translucent"
	default:
		return fmt.Sprintf("Material(%d)", int(m))
	}
}

// ParseMaterial converts a material name to a Material.
func ParseMaterial(s string) (Material, error) {
	switch s {
	case "opaque", "":
		return MaterialOpaque, nil
	case "translucent", "diffuser":
		return MaterialTranslucent, nil
	}
	return 0, fmt.Errorf("kernel: unknown material %q, expected opaque or translucent", s)
}

// Limits are the size ceilings applied before and after generation.
// A zero field disables that ceiling.
type Limits struct {
	MaxPathPoints int `toml:"max_path_points" json:"maxPathPoints"` // points per contour or sweep path
	MaxSegments   int `toml:"max_segments" json:"maxSegments"`       // tube ring / circle segments
	MaxTriangles  int `toml:"max_triangles" json:"maxTriangles"`     // triangles per generated mesh
	MaxParts      int `toml:"max_parts" json:"maxParts"`             // parts per design
}

// DefaultLimits returns the ceilings used when no configuration is given.
func DefaultLimits() Limits {
	return Limits{
		MaxPathPoints: 20000,
		MaxSegments:   256,
		MaxTriangles:  2000000,
		MaxParts:      64,
	}
}

// CheckTriangles reports whether a mesh with n triangles fits the ceiling.
func (l Limits) CheckTriangles(n int) error {
	if l.MaxTriangles > 0 && n > l.MaxTriangles {
		return fmt.Errorf("%w: %d triangles exceeds limit of %d", ErrLimitExceeded, n, l.MaxTriangles)
	}
	return nil
}

// ErrLimitExceeded is wrapped by every ceiling violation.
var ErrLimitExceeded = errors.New("kernel: size limit exceeded")
