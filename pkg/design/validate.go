package design

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/glowform/pkg/channel"
	"github.com/chazu/glowform/pkg/kernel"
)

// ValidationSeverity indicates whether a validation finding blocks
// tessellation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks tessellation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	NodeID  NodeID
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory) from
// all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ErrInvalid is wrapped by ValidationResult.Err.
var ErrInvalid = errors.New("design: invalid design")

// Err returns nil when there are no blocking errors, otherwise an error
// wrapping ErrInvalid that lists them.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Validate runs the structural checks on the design graph. An empty slice
// means the graph is well formed. It never mutates the graph.
func Validate(d *Design) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(d)...)
	errs = append(errs, validateReferences(d)...)
	errs = append(errs, validateNames(d)...)
	errs = append(errs, validateRoots(d)...)
	errs = append(errs, validateKinds(d)...)
	return errs
}

// ValidateAll runs every tier (structural, parameters, limits, advisory)
// and returns the findings split into errors and warnings.
func ValidateAll(d *Design, limits kernel.Limits) ValidationResult {
	var result ValidationResult

	for _, e := range Validate(d) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{NodeID: e.NodeID, Message: e.Message})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}

	result.Errors = append(result.Errors, validateParameters(d)...)
	result.Errors = append(result.Errors, validateLimits(d, limits)...)
	result.Warnings = append(result.Warnings, advise(d)...)

	return result
}

// ---------------------------------------------------------------------------
// Tier 1: structure
// ---------------------------------------------------------------------------

// validateDAG checks for cycles using DFS with 3-color marking.
func validateDAG(d *Design) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := d.Nodes[id]
		if !ok {
			// Dangling; reported by validateReferences.
			color[id] = black
			return false
		}
		for _, childID := range node.Children {
			if visit(childID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for id := range d.Nodes {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReferences checks that every child ID points to an existing node.
func validateReferences(d *Design) []ValidationError {
	var errs []ValidationError
	for _, node := range d.Nodes {
		for _, childID := range node.Children {
			if _, ok := d.Nodes[childID]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateNames checks that the NameIndex only references existing nodes and
// that no two nodes share a name.
func validateNames(d *Design) []ValidationError {
	var errs []ValidationError

	for name, id := range d.NameIndex {
		if _, ok := d.Nodes[id]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
		}
	}

	nameToNodes := make(map[string][]NodeID)
	for id, node := range d.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name] = append(nameToNodes[node.Name], id)
		}
	}
	for name, ids := range nameToNodes {
		if len(ids) > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, len(ids)),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateRoots checks that every root exists and warns about nodes that are
// unreachable from any root. Orphans are never tessellated.
func validateRoots(d *Design) []ValidationError {
	var errs []ValidationError

	reachable := make(map[NodeID]bool)
	var queue []NodeID
	for _, rid := range d.Roots {
		if _, ok := d.Nodes[rid]; !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if !reachable[rid] {
			reachable[rid] = true
			queue = append(queue, rid)
		}
	}

	for len(queue) > 0 {
		node := d.Nodes[queue[0]]
		queue = queue[1:]
		if node == nil {
			continue
		}
		for _, childID := range node.Children {
			if !reachable[childID] {
				reachable[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	for id, node := range d.Nodes {
		if !reachable[id] {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q is not reachable from any root (orphan)", node.DisplayName()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateKinds checks that each node's payload matches its kind and that
// parts are leaves.
func validateKinds(d *Design) []ValidationError {
	var errs []ValidationError
	bad := func(n *Node, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   n.ID,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, node := range d.Nodes {
		switch node.Kind {
		case NodePart:
			if _, ok := node.Data.(PartData); !ok {
				bad(node, "part %q has no part data (%T)", node.DisplayName(), node.Data)
			}
			if len(node.Children) > 0 {
				bad(node, "part %q cannot have children", node.DisplayName())
			}
		case NodeTransform:
			if _, ok := node.Data.(TransformData); !ok {
				bad(node, "transform has %T data", node.Data)
			}
			if len(node.Children) != 1 {
				bad(node, "transform must have exactly one child, has %d", len(node.Children))
			}
		case NodeGroup:
			if _, ok := node.Data.(GroupData); !ok {
				bad(node, "group %q has %T data", node.DisplayName(), node.Data)
			}
		default:
			bad(node, "unknown node kind %d", int(node.Kind))
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 2: parameters
// ---------------------------------------------------------------------------

// validateParameters checks the values that generators cannot sensibly
// clamp: depths, radii and channel widths must be positive and every part
// needs some geometry.
func validateParameters(d *Design) []ValidationError {
	var errs []ValidationError
	bad := func(n *Node, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   n.ID,
			Message:  fmt.Sprintf("%s part %q: ", n.Data.(PartData).Mode(), n.DisplayName()) + fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, node := range d.Parts() {
		switch pd := node.Data.(type) {
		case FlatData:
			if !(pd.Depth > 0) {
				bad(node, "depth is %.4f, must be positive", pd.Depth)
			}
			if len(pd.Contours) == 0 {
				bad(node, "no contours")
			}
		case RaisedData:
			if !(pd.BaseDepth > 0) {
				bad(node, "base depth is %.4f, must be positive", pd.BaseDepth)
			}
			if !(pd.ReliefDepth > 0) {
				bad(node, "relief depth is %.4f, must be positive", pd.ReliefDepth)
			}
			if len(pd.Base) == 0 {
				bad(node, "no base contours")
			}
		case OutlineData:
			if !(pd.Radius > 0) {
				bad(node, "radius is %.4f, must be positive", pd.Radius)
			}
			if len(pd.Paths) == 0 {
				bad(node, "no paths")
			}
		case ChannelData:
			if err := pd.Profile.Valid(); err != nil {
				bad(node, "%v", err)
			}
			if len(pd.Paths) == 0 {
				bad(node, "no paths")
			}
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 3: size limits
// ---------------------------------------------------------------------------

// validateLimits rejects designs whose inputs exceed the configured
// ceilings before any geometry is generated.
func validateLimits(d *Design, l kernel.Limits) []ValidationError {
	var errs []ValidationError
	over := func(id NodeID, format string, args ...any) {
		errs = append(errs, ValidationError{
			NodeID:   id,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	parts := d.Parts()
	if l.MaxParts > 0 && len(parts) > l.MaxParts {
		over(ZeroID, "%d parts exceeds limit of %d", len(parts), l.MaxParts)
	}

	for _, node := range parts {
		var points []int
		segments := 0
		switch pd := node.Data.(type) {
		case FlatData:
			for _, c := range pd.Contours {
				points = append(points, len(c))
			}
		case RaisedData:
			for _, c := range pd.Base {
				points = append(points, len(c))
			}
			for _, c := range pd.Relief {
				points = append(points, len(c))
			}
		case OutlineData:
			for _, p := range pd.Paths {
				points = append(points, len(p.Points))
			}
			segments = pd.Segments
		case ChannelData:
			for _, p := range pd.Paths {
				points = append(points, len(p.Points))
			}
		}

		if l.MaxPathPoints > 0 {
			for _, n := range points {
				if n > l.MaxPathPoints {
					over(node.ID, "part %q: path of %d points exceeds limit of %d", node.DisplayName(), n, l.MaxPathPoints)
					break
				}
			}
		}
		if l.MaxSegments > 0 && segments > l.MaxSegments {
			over(node.ID, "part %q: %d segments exceeds limit of %d", node.DisplayName(), segments, l.MaxSegments)
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 4: advisory
// ---------------------------------------------------------------------------

// advise produces non-blocking warnings about designs that will build but
// probably not print as intended.
func advise(d *Design) []ValidationWarning {
	var warnings []ValidationWarning
	warn := func(n *Node, format string, args ...any) {
		warnings = append(warnings, ValidationWarning{NodeID: n.ID, Message: fmt.Sprintf(format, args...)})
	}

	for _, node := range d.Parts() {
		switch pd := node.Data.(type) {
		case FlatData:
			if pd.Material == kernel.MaterialTranslucent && pd.Depth > 3 {
				warn(node, "translucent part %q is %.1f mm thick and will diffuse poorly", node.DisplayName(), pd.Depth)
			}
		case OutlineData:
			for _, p := range pd.Paths {
				if !p.Closed && p.Length() < 2*pd.Radius {
					warn(node, "path in %q is shorter than the tube diameter %.2f", node.DisplayName(), 2*pd.Radius)
					break
				}
			}
		case ChannelData:
			if pd.CapMaterial == kernel.MaterialOpaque {
				warn(node, "channel %q has an opaque diffuser cap", node.DisplayName())
			}
			pr := pd.Profile
			if pr.WallThickness < channel.MinThickness || pr.InnerWidth() < channel.MinInnerWidth || pr.FloorThickness >= pr.WallHeight {
				warn(node, "channel %q profile will be clamped to a printable shape", node.DisplayName())
			}
		}
	}
	return warnings
}
