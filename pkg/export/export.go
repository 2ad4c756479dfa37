// Package export turns tessellated meshes into named binary STL buffers
// with a material manifest. Packaging the buffers (zip, HTTP response) is
// left to the caller.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"

	"github.com/chazu/glowform/pkg/kernel"
	"github.com/chazu/glowform/pkg/stl"
)

// Extension is appended to every output filename.
const Extension = ".stl"

// ErrNothingToExport is returned when every mesh is empty.
var ErrNothingToExport = errors.New("export: nothing to export")

// Output is one printable part.
type Output struct {
	Filename  string          `json:"filename"`
	PartName  string          `json:"partName"`
	Material  kernel.Material `json:"-"`
	Triangles int             `json:"triangles"`
	Data      []byte          `json:"-"`
}

// Bundle is the result of one export request.
type Bundle struct {
	ID      uuid.UUID `json:"id"`
	Outputs []Output  `json:"outputs"`
}

// Export serializes every non-empty mesh. Filenames are kebab-case slugs of
// the part names, numbered when two parts slug to the same name.
func Export(meshes []*kernel.Mesh) (*Bundle, error) {
	b := &Bundle{ID: uuid.New()}
	used := make(map[string]int)

	for i, m := range meshes {
		if m == nil {
			continue
		}
		if m.IsEmpty() {
			kernel.Logger().Debug().Str("part", partName(m, i)).Msg("export: skipped empty mesh")
			continue
		}
		name := partName(m, i)
		b.Outputs = append(b.Outputs, Output{
			Filename:  uniqueFilename(Slug(name), used),
			PartName:  name,
			Material:  m.Material,
			Triangles: m.TriangleCount(),
			Data:      stl.Marshal(m, name),
		})
	}

	if len(b.Outputs) == 0 {
		return nil, ErrNothingToExport
	}
	return b, nil
}

// Slug converts a part name into a filename stem.
func Slug(name string) string {
	s := strcase.ToKebab(name)
	if s == "" {
		return "part"
	}
	return s
}

func partName(m *kernel.Mesh, i int) string {
	if m.PartName != "" {
		return m.PartName
	}
	return fmt.Sprintf("part-%d", i+1)
}

func uniqueFilename(stem string, used map[string]int) string {
	used[stem]++
	if n := used[stem]; n > 1 {
		stem = fmt.Sprintf("%s-%d", stem, n)
		used[stem]++
	}
	return stem + Extension
}

// ---------------------------------------------------------------------------
// Manifest
// ---------------------------------------------------------------------------

// ManifestEntry describes one output file.
type ManifestEntry struct {
	Filename  string `json:"filename"`
	Part      string `json:"part"`
	Material  string `json:"material"`
	Triangles int    `json:"triangles"`
	Bytes     int    `json:"bytes"`
}

// Manifest lists the outputs of a bundle so a print queue can assign
// materials without opening the meshes.
type Manifest struct {
	ID    string          `json:"id"`
	Parts []ManifestEntry `json:"parts"`
}

// ManifestFilename is the name WriteDir gives the manifest.
const ManifestFilename = "manifest.json"

// Manifest returns the manifest for b.
func (b *Bundle) Manifest() Manifest {
	m := Manifest{ID: b.ID.String(), Parts: make([]ManifestEntry, 0, len(b.Outputs))}
	for _, o := range b.Outputs {
		m.Parts = append(m.Parts, ManifestEntry{
			Filename:  o.Filename,
			Part:      o.PartName,
			Material:  o.Material.String(),
			Triangles: o.Triangles,
			Bytes:     len(o.Data),
		})
	}
	return m
}

// MarshalManifest returns the indented JSON manifest.
func (b *Bundle) MarshalManifest() ([]byte, error) {
	data, err := json.MarshalIndent(b.Manifest(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: manifest: %w", err)
	}
	return data, nil
}

// WriteDir writes every output and the manifest into dir, creating it if
// needed. It returns the paths written.
func (b *Bundle) WriteDir(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	var written []string
	for _, o := range b.Outputs {
		p := filepath.Join(dir, o.Filename)
		if err := os.WriteFile(p, o.Data, 0o644); err != nil {
			return written, fmt.Errorf("export: %w", err)
		}
		written = append(written, p)
	}

	manifest, err := b.MarshalManifest()
	if err != nil {
		return written, err
	}
	p := filepath.Join(dir, ManifestFilename)
	if err := os.WriteFile(p, manifest, 0o644); err != nil {
		return written, fmt.Errorf("export: %w", err)
	}
	return append(written, p), nil
}
