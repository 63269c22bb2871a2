package geometry

import (
	"fmt"
	"slices"

	"github.com/samcharles93/tagcache/pkg/cache"
	"github.com/samcharles93/tagcache/pkg/definitions"
)

// Mesh is the drawable part of one submesh. Triangle indices address
// Vertices, which is the window [BaseVertex, BaseVertex+len(Vertices)) of the
// section's vertex buffer.
type Mesh struct {
	BaseVertex int         `json:"base_vertex"`
	Vertices   []Vertex    `json:"vertices"`
	Triangles  [][3]uint16 `json:"triangles"`
}

// Indices flattens Triangles into a list.
func (m Mesh) Indices() []uint16 {
	out := make([]uint16, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		out = append(out, t[:]...)
	}
	return out
}

// ExtractTriangles converts the submesh's face range of section into a
// re-based triangle list. Strips are unrolled with alternating winding and
// degenerate triangles dropped. A face range past the index buffer, or an
// index past the vertex buffer, fails with cache.ErrTruncatedInput.
func ExtractTriangles(section SectionGeometry, sub definitions.Submesh, format IndexFormat) (Mesh, error) {
	start, count := int(sub.FaceIndex), int(sub.FaceCount)
	if start < 0 || count < 0 || start+count > len(section.Indices) {
		return Mesh{}, &cache.TruncatedInputError{
			Offset: int64(start),
			Want:   count,
			Size:   int64(len(section.Indices)),
		}
	}
	window := section.Indices[start : start+count]

	var tris [][3]uint16
	switch format {
	case TriangleList:
		if count%3 != 0 {
			return Mesh{}, fmt.Errorf("%w: triangle list of %d indices", cache.ErrFormat, count)
		}
		tris = make([][3]uint16, 0, count/3)
		for i := 0; i < count; i += 3 {
			tris = append(tris, [3]uint16{window[i], window[i+1], window[i+2]})
		}
	case TriangleStrip:
		tris = stripToList(window)
	default:
		return Mesh{}, fmt.Errorf("%w: unknown index format %d", cache.ErrFormat, int32(format))
	}
	if len(tris) == 0 {
		return Mesh{}, nil
	}

	flat := Mesh{Triangles: tris}.Indices()
	lo, hi := int(slices.Min(flat)), int(slices.Max(flat))
	if hi >= len(section.Vertices) {
		return Mesh{}, &cache.TruncatedInputError{
			Offset: int64(hi),
			Want:   1,
			Size:   int64(len(section.Vertices)),
		}
	}
	for i := range tris {
		for j := range tris[i] {
			tris[i][j] -= uint16(lo)
		}
	}
	return Mesh{
		BaseVertex: lo,
		Vertices:   slices.Clone(section.Vertices[lo : hi+1]),
		Triangles:  tris,
	}, nil
}

func stripToList(strip []uint16) [][3]uint16 {
	var out [][3]uint16
	for n := 0; n+2 < len(strip); n++ {
		a, b, c := strip[n], strip[n+1], strip[n+2]
		if a == b || b == c || a == c {
			continue
		}
		if n%2 == 0 {
			out = append(out, [3]uint16{a, b, c})
		} else {
			out = append(out, [3]uint16{a, c, b})
		}
	}
	return out
}

// Part is the mesh of one submesh of a decoded section list.
type Part struct {
	Section     int   `json:"section"`
	Submesh     int   `json:"submesh"`
	ShaderIndex int16 `json:"shader_index"`
	Mesh        Mesh  `json:"mesh"`
}

// ExtractParts extracts every submesh of sections, pairing section i with
// geom[i]. A section with submeshes but no geometry entry fails with
// cache.ErrTruncatedInput; sections without submeshes need no geometry.
func ExtractParts(geom []SectionGeometry, sections []definitions.Section) ([]Part, error) {
	var out []Part
	for i, sec := range sections {
		if len(sec.Submeshes) == 0 {
			continue
		}
		if i >= len(geom) {
			return nil, fmt.Errorf("%w: section %d has %d submeshes, geometry holds %d sections",
				cache.ErrTruncatedInput, i, len(sec.Submeshes), len(geom))
		}
		g := geom[i]
		for j, sub := range sec.Submeshes {
			m, err := ExtractTriangles(g, sub, g.Format)
			if err != nil {
				return nil, fmt.Errorf("section %d submesh %d: %w", i, j, err)
			}
			out = append(out, Part{Section: i, Submesh: j, ShaderIndex: sub.ShaderIndex, Mesh: m})
		}
	}
	return out, nil
}
