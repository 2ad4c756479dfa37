// Package stl reads and writes binary STL.
//
// Layout: an 80-byte header, a little-endian uint32 triangle count, then 50
// bytes per triangle: normal and three vertices as little-endian float32
// triples followed by a 2-byte attribute count that is always zero.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/glowform/pkg/kernel"
)

const (
	// HeaderSize is the length of the free-form header.
	HeaderSize = 80
	// TriangleSize is the encoded length of one triangle record.
	TriangleSize = 50
	// PreambleSize is the header plus the triangle count.
	PreambleSize = HeaderSize + 4
)

// ErrTruncated is returned by Decode when the data ends before the number
// of triangles declared in the preamble.
var ErrTruncated = errors.New("stl: truncated data")

// Size returns the encoded length of a mesh with n triangles.
func Size(n int) int {
	return PreambleSize + n*TriangleSize
}

// Header returns the 80-byte header for name. Longer names are truncated
// and shorter ones padded with NUL. A header starting with "solid" makes
// some readers treat the file as ASCII STL, so that prefix is rewritten.
func Header(name string) [HeaderSize]byte {
	var h [HeaderSize]byte
	if strings.HasPrefix(strings.ToLower(strings.TrimLeft(name, " \t")), "solid") {
		name = "binary " + name
	}
	copy(h[:], name)
	return h
}

// Marshal encodes m with the given header name. Normals are recomputed from
// the vertex positions; the mesh's own normals are ignored.
func Marshal(m *kernel.Mesh, name string) []byte {
	n := 0
	if !m.IsEmpty() {
		n = m.TriangleCount()
	}
	buf := make([]byte, Size(n))
	h := Header(name)
	copy(buf, h[:])
	binary.LittleEndian.PutUint32(buf[HeaderSize:], uint32(n))

	off := PreambleSize
	for i := 0; i < n; i++ {
		t := m.Triangles[i]
		off = putVec(buf, off, t.Normal())
		for _, v := range t.V {
			off = putVec(buf, off, v)
		}
		binary.LittleEndian.PutUint16(buf[off:], 0)
		off += 2
	}
	return buf
}

// Encode writes m to w.
func Encode(w io.Writer, m *kernel.Mesh, name string) error {
	if _, err := w.Write(Marshal(m, name)); err != nil {
		return fmt.Errorf("stl: write: %w", err)
	}
	return nil
}

// Decode reads a binary STL. The returned name is the header with trailing
// NUL and space bytes removed.
func Decode(r io.Reader) (*kernel.Mesh, string, error) {
	br := bufio.NewReader(r)
	var pre [PreambleSize]byte
	if _, err := io.ReadFull(br, pre[:]); err != nil {
		return nil, "", fmt.Errorf("stl: preamble: %w", ErrTruncated)
	}
	name := strings.TrimRight(string(pre[:HeaderSize]), "\x00 ")
	n := binary.LittleEndian.Uint32(pre[HeaderSize:])

	m := kernel.NewMesh(0)
	var rec [TriangleSize]byte
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			return nil, name, fmt.Errorf("stl: triangle %d of %d: %w", i, n, ErrTruncated)
		}
		t := kernel.Triangle{N: getVec(rec[:], 0)}
		for k := 0; k < 3; k++ {
			t.V[k] = getVec(rec[:], 12*(k+1))
		}
		m.Triangles = append(m.Triangles, t)
	}
	return m, name, nil
}

// Unmarshal decodes a binary STL held in memory.
func Unmarshal(data []byte) (*kernel.Mesh, string, error) {
	return Decode(bytes.NewReader(data))
}

func putVec(buf []byte, off int, v v3.Vec) int {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(v.Z)))
	return off + 12
}

func getVec(buf []byte, off int) v3.Vec {
	return v3.Vec{
		X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))),
		Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))),
		Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:]))),
	}
}
