package design

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/glowform/pkg/channel"
	"github.com/chazu/glowform/pkg/geom"
	"github.com/chazu/glowform/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Geometry modes
// ---------------------------------------------------------------------------

// Mode selects the generator that turns a part into a mesh.
type Mode int

const (
	ModeFlat    Mode = iota // extruded slab
	ModeRaised              // slab with raised relief on top
	ModeOutline             // swept round tube
	ModeChannel             // LED channel with diffuser cap
)

func (m Mode) String() string {
	switch m {
	case ModeFlat:
		return "flat"
	case ModeRaised:
		return "raised"
	case ModeOutline:
		return "outline"
	case ModeChannel:
		return "channel"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "flat", "":
		return ModeFlat, nil
	case "raised":
		return ModeRaised, nil
	case "outline", "tube":
		return ModeOutline, nil
	case "channel":
		return ModeChannel, nil
	}
	return 0, fmt.Errorf("design: unknown mode %q", s)
}

// PartData is implemented by the payload of every part node.
type PartData interface {
	NodeData
	Mode() Mode
	PartMaterial() kernel.Material
}

// PartOf returns the part payload of n, if it is a part.
func PartOf(n *Node) (PartData, bool) {
	if n == nil || n.Kind != NodePart {
		return nil, false
	}
	pd, ok := n.Data.(PartData)
	return pd, ok
}

// ---------------------------------------------------------------------------
// Parts
// ---------------------------------------------------------------------------

// FlatData is a slab extruded from outer contours and holes. Winding decides
// which contour is which.
type FlatData struct {
	Contours []geom.Contour  `json:"contours"`
	Depth    float64         `json:"depth"` // mm
	Material kernel.Material `json:"material"`
}

func (FlatData) nodeData()                       {}
func (FlatData) Mode() Mode                      { return ModeFlat }
func (d FlatData) PartMaterial() kernel.Material { return d.Material }

// RaisedData is a backing slab with relief contours standing on its top
// face. The relief is emitted as a second mesh so it can be printed in a
// different material.
type RaisedData struct {
	Base           []geom.Contour  `json:"base"`
	Relief         []geom.Contour  `json:"relief"`
	BaseDepth      float64         `json:"baseDepth"`
	ReliefDepth    float64         `json:"reliefDepth"`
	Material       kernel.Material `json:"material"`
	ReliefMaterial kernel.Material `json:"reliefMaterial"`
}

func (RaisedData) nodeData()                       {}
func (RaisedData) Mode() Mode                      { return ModeRaised }
func (d RaisedData) PartMaterial() kernel.Material { return d.Material }

// OutlineData sweeps a round tube along every path.
type OutlineData struct {
	Paths    []geom.SweepPath `json:"paths"`
	Radius   float64          `json:"radius"`
	Segments int              `json:"segments"`
	Material kernel.Material  `json:"material"`
}

func (OutlineData) nodeData()                       {}
func (OutlineData) Mode() Mode                      { return ModeOutline }
func (d OutlineData) PartMaterial() kernel.Material { return d.Material }

// ChannelData sweeps an LED channel and its diffuser cap along every path.
type ChannelData struct {
	Paths       []geom.SweepPath `json:"paths"`
	Profile     channel.Profile  `json:"profile"`
	Tolerance   float64          `json:"tolerance"`
	Material    kernel.Material  `json:"material"`
	CapMaterial kernel.Material  `json:"capMaterial"`
}

func (ChannelData) nodeData()                       {}
func (ChannelData) Mode() Mode                      { return ModeChannel }
func (d ChannelData) PartMaterial() kernel.Material { return d.Material }

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData places its children. Rotation is about +Z in degrees and is
// applied before Translation.
type TransformData struct {
	Translation v3.Vec  `json:"translation"`
	Rotation    float64 `json:"rotation,omitempty"`
}

func (TransformData) nodeData() {}

// IsIdentity reports whether t leaves geometry unchanged.
func (t TransformData) IsIdentity() bool {
	return t.Rotation == 0 && t.Translation == (v3.Vec{})
}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData is a logical grouping of parts, e.g. a multi-part split.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
