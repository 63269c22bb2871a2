// Package geometry decodes raw section buffers and turns submesh face ranges
// into indexed triangle lists.
package geometry

import (
	"fmt"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// IndexFormat is how a section's index buffer encodes triangles.
type IndexFormat int32

const (
	TriangleList  IndexFormat = 3
	TriangleStrip IndexFormat = 5
)

func (f IndexFormat) String() string {
	switch f {
	case TriangleList:
		return "list"
	case TriangleStrip:
		return "strip"
	default:
		return fmt.Sprintf("format(%d)", int32(f))
	}
}

// Vertex formats stored ahead of each section's vertices.
const (
	vertexPositionTex       = 0
	vertexPositionTexNormal = 1
)

// Vertex is one decoded vertex. Normal is nil when the section stores none.
type Vertex struct {
	Position [3]float32  `json:"position"`
	TexCoord [2]float32  `json:"texcoord"`
	Normal   *[3]float32 `json:"normal,omitempty"`
}

// SectionGeometry is the vertex and index data of one section.
type SectionGeometry struct {
	Vertices []Vertex    `json:"vertices"`
	Indices  []uint16    `json:"indices"`
	Format   IndexFormat `json:"format"`
}

// Load reads and decodes the geometry resource rawID of h.
func Load(h *cache.Handle, rawID uint32) ([]SectionGeometry, error) {
	payload, err := h.Resource(rawID)
	if err != nil {
		return nil, err
	}
	rd := h.Reader()
	if rd == nil {
		return nil, fmt.Errorf("geometry 0x%08X: handle is closed", rawID)
	}
	sections, err := Decode(cache.NewReader(payload, rd.Order()))
	if err != nil {
		return nil, fmt.Errorf("geometry 0x%08X: %w", rawID, err)
	}
	return sections, nil
}

// Decode reads a geometry payload from r: a section count, then per section
// the vertex format, vertices, index format and u16 indices.
func Decode(r *cache.Reader) ([]SectionGeometry, error) {
	count, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative section count %d", cache.ErrFormat, count)
	}
	out := make([]SectionGeometry, 0, min(int64(count), r.Len()))
	for i := range int(count) {
		s, err := decodeSection(r)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeSection(r *cache.Reader) (SectionGeometry, error) {
	var s SectionGeometry
	vf, err := r.ReadInt32()
	if err != nil {
		return s, err
	}
	if vf != vertexPositionTex && vf != vertexPositionTexNormal {
		return s, fmt.Errorf("%w: unknown vertex format %d", cache.ErrFormat, vf)
	}
	n, err := readCount(r)
	if err != nil {
		return s, err
	}
	s.Vertices = make([]Vertex, n)
	for i := range s.Vertices {
		v := &s.Vertices[i]
		if err := readFloats(r, v.Position[:]); err != nil {
			return s, err
		}
		if err := readFloats(r, v.TexCoord[:]); err != nil {
			return s, err
		}
		if vf == vertexPositionTexNormal {
			v.Normal = new([3]float32)
			if err := readFloats(r, v.Normal[:]); err != nil {
				return s, err
			}
		}
	}

	format, err := r.ReadInt32()
	if err != nil {
		return s, err
	}
	s.Format = IndexFormat(format)
	if s.Format != TriangleList && s.Format != TriangleStrip {
		return s, fmt.Errorf("%w: unknown index format %d", cache.ErrFormat, format)
	}
	if n, err = readCount(r); err != nil {
		return s, err
	}
	s.Indices = make([]uint16, n)
	for i := range s.Indices {
		if s.Indices[i], err = r.ReadUint16(); err != nil {
			return s, err
		}
	}
	return s, nil
}

// readCount reads an element count and checks it against the bytes left.
func readCount(r *cache.Reader) (int, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", cache.ErrFormat, n)
	}
	if left := r.Len() - r.Position(); int64(n) > left {
		return 0, &cache.TruncatedInputError{Offset: r.Position(), Want: int(n), Size: r.Len()}
	}
	return int(n), nil
}

func readFloats(r *cache.Reader, dst []float32) error {
	for i := range dst {
		v, err := r.ReadFloat32()
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}
