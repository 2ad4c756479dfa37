// Package design defines the design graph: an immutable DAG of parts,
// placements and groups produced by evaluating a design script or reading a
// GeoJSON document. Each evaluation produces a new graph.
package design

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chazu/glowform/pkg/channel"
)

// namespace scopes name-derived node IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/chazu/glowform/design"))

// NodeID is a deterministic identifier derived from a node's path name, so
// re-evaluating the same source yields the same IDs.
type NodeID string

// ZeroID is the empty node ID.
const ZeroID NodeID = ""

// NewNodeID derives the ID for path.
func NewNodeID(path string) NodeID {
	return NodeID(uuid.NewSHA1(namespace, []byte(path)).String())
}

// IsZero reports whether id is empty.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns the first eight characters, for messages.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

func (id NodeID) String() string { return string(id) }

// NodeKind enumerates the types of nodes in the design graph.
type NodeKind int

const (
	NodePart      NodeKind = iota // printable part
	NodeTransform                 // placement (place)
	NodeGroup                     // logical grouping
)

func (k NodeKind) String() string {
	switch k {
	case NodePart:
		return "part"
	case NodeTransform:
		return "transform"
	case NodeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Node is the fundamental element of the design graph.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// Defaults are the graph-wide values used when a part leaves a parameter
// unset.
type Defaults struct {
	Depth          float64         `json:"depth" toml:"depth"`
	BaseDepth      float64         `json:"baseDepth" toml:"base_depth"`
	ReliefDepth    float64         `json:"reliefDepth" toml:"relief_depth"`
	TubeRadius     float64         `json:"tubeRadius" toml:"tube_radius"`
	TubeSegments   int             `json:"tubeSegments" toml:"tube_segments"`
	CircleSegments int             `json:"circleSegments" toml:"circle_segments"`
	Channel        channel.Profile `json:"channel" toml:"channel"`
	SnapTolerance  float64         `json:"snapTolerance" toml:"snap_tolerance"`
}

// DefaultDefaults returns the built-in defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Depth:          3,
		BaseDepth:      2,
		ReliefDepth:    1.5,
		TubeRadius:     1.5,
		TubeSegments:   16,
		CircleSegments: 64,
		Channel:        channel.DefaultProfile(),
		SnapTolerance:  channel.DefaultTolerance,
	}
}

// Design is the top-level data structure produced by evaluation.
type Design struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"nameIndex"`
	Defaults  Defaults          `json:"defaults"`
}

// New creates an empty Design with default settings.
func New() *Design {
	return &Design{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Defaults:  DefaultDefaults(),
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
func (d *Design) AddNode(n *Node) {
	d.Nodes[n.ID] = n
	if n.Name != "" {
		d.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root. Adding an existing root is a no-op.
func (d *Design) AddRoot(id NodeID) {
	for _, r := range d.Roots {
		if r == id {
			return
		}
	}
	d.Roots = append(d.Roots, id)
}

// RemoveRoot drops id from the roots, e.g. once it has been placed inside
// another node.
func (d *Design) RemoveRoot(id NodeID) {
	out := d.Roots[:0]
	for _, r := range d.Roots {
		if r != id {
			out = append(out, r)
		}
	}
	d.Roots = out
}

// Lookup returns the node with the given user-assigned name, or nil.
func (d *Design) Lookup(name string) *Node {
	id, ok := d.NameIndex[name]
	if !ok {
		return nil
	}
	return d.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (d *Design) MustLookup(name string) *Node {
	n := d.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("design: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (d *Design) Get(id NodeID) *Node {
	return d.Nodes[id]
}

// Parts returns all part nodes in the graph.
func (d *Design) Parts() []*Node {
	var parts []*Node
	for _, n := range d.Nodes {
		if n.Kind == NodePart {
			parts = append(parts, n)
		}
	}
	return parts
}

// Children returns the child nodes of the given node.
func (d *Design) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := d.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (d *Design) NodeCount() int {
	return len(d.Nodes)
}

// DisplayName returns the node's name, or its short ID if it has none.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}
