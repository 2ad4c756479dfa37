package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/glowform/pkg/kernel"
	"github.com/chazu/glowform/pkg/stl"
)

func tri(name string, mat kernel.Material) *kernel.Mesh {
	m := kernel.NewMesh(1)
	m.Add(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: 1})
	m.PartName = name
	m.Material = mat
	return m
}

func TestExport(t *testing.T) {
	b, err := Export([]*kernel.Mesh{
		tri("Night Light", kernel.MaterialOpaque),
		kernel.NewMesh(0),
		tri("night-light", kernel.MaterialOpaque),
		tri("strip-cap", kernel.MaterialTranslucent),
		tri("", kernel.MaterialOpaque),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, b.ID)
	require.Len(t, b.Outputs, 4)

	names := make([]string, len(b.Outputs))
	for i, o := range b.Outputs {
		names[i] = o.Filename
	}
	assert.Equal(t, []string{"night-light.stl", "night-light-2.stl", "strip-cap.stl", "part-5.stl"}, names)

	o := b.Outputs[2]
	assert.Equal(t, kernel.MaterialTranslucent, o.Material)
	assert.Equal(t, 1, o.Triangles)
	require.Len(t, o.Data, stl.Size(1))
	_, header, err := stl.Unmarshal(o.Data)
	require.NoError(t, err)
	assert.Equal(t, "strip-cap", header)
}

func TestExportNothing(t *testing.T) {
	_, err := Export([]*kernel.Mesh{kernel.NewMesh(0), nil})
	assert.True(t, errors.Is(err, ErrNothingToExport))
	_, err = Export(nil)
	assert.True(t, errors.Is(err, ErrNothingToExport))
}

func TestExportSkipsNilMesh(t *testing.T) {
	b, err := Export([]*kernel.Mesh{nil, tri("", kernel.MaterialOpaque)})
	require.NoError(t, err)
	require.Len(t, b.Outputs, 1)
	assert.Equal(t, "part-2.stl", b.Outputs[0].Filename)
}

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"tag", "tag"},
		{"NightLight", "night-light"},
		{"strip cap", "strip-cap"},
		{"", "part"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestManifest(t *testing.T) {
	b, err := Export([]*kernel.Mesh{
		tri("base", kernel.MaterialOpaque),
		tri("base-cap", kernel.MaterialTranslucent),
	})
	require.NoError(t, err)

	data, err := b.MarshalManifest()
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, b.ID.String(), m.ID)
	require.Len(t, m.Parts, 2)
	assert.Equal(t, "translucent", m.Parts[1].Material)
	assert.Equal(t, stl.Size(1), m.Parts[1].Bytes)
}

func TestWriteDir(t *testing.T) {
	b, err := Export([]*kernel.Mesh{tri("tag", kernel.MaterialOpaque)})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	written, err := b.WriteDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "tag.stl"), filepath.Join(dir, ManifestFilename)}, written)

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, b.Outputs[0].Data, data)
}
