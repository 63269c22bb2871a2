package definitions

import "github.com/samcharles93/tagcache/pkg/cache"

const (
	ClassRenderModel  cache.ClassCode = "mode"
	ClassStructureBSP cache.ClassCode = "sbsp"
	ClassTemplate     cache.ClassCode = "rmt2"
	ClassMaterial     cache.ClassCode = "mat"
)

// Bounds is a closed float range.
type Bounds struct {
	Min float32 `json:"min"`
	Max float32 `json:"max"`
}

// RenderModel is a decoded "mode" tag.
type RenderModel struct {
	ID                     cache.TagID   `json:"id"`
	Name                   string        `json:"name"`
	Regions                []Region      `json:"regions"`
	InstancedGeometryIndex int32         `json:"instanced_geometry_index"`
	Shaders                []ShaderRef   `json:"shaders"`
	Sections               []Section     `json:"sections"`
	BoundingBoxes          []BoundingBox `json:"bounding_boxes"`
	RawID                  uint32        `json:"raw_id"`
}

func (*RenderModel) Class() cache.ClassCode { return ClassRenderModel }

type Region struct {
	Name         string        `json:"name"`
	Permutations []Permutation `json:"permutations"`
}

// Permutation selects the section drawn for one variant of a region.
// SectionIndex is -1 when the permutation has no geometry.
type Permutation struct {
	Name         string `json:"name"`
	SectionIndex int16  `json:"section_index"`
}

// ShaderRef points at a shader or material tag.
type ShaderRef struct {
	TagID cache.TagID `json:"tag_id"`
}

// Section groups submeshes drawn from one section of the geometry resource.
type Section struct {
	Submeshes  []Submesh `json:"submeshes"`
	FacesIndex int16     `json:"faces_index"`
}

// Submesh is a run of indices drawn with one shader.
type Submesh struct {
	ShaderIndex int16 `json:"shader_index"`
	FaceIndex   int32 `json:"face_index"`
	FaceCount   int32 `json:"face_count"`
	VertexCount int32 `json:"vertex_count"`
}

// BoundingBox holds the compression bounds for positions and texture coordinates.
type BoundingBox struct {
	Flags   int32  `json:"flags"`
	XBounds Bounds `json:"x"`
	YBounds Bounds `json:"y"`
	ZBounds Bounds `json:"z"`
	UBounds Bounds `json:"u"`
	VBounds Bounds `json:"v"`
}

func decodeModel(l modelLayout) DecodeFunc {
	return func(h *cache.Handle, entry cache.IndexEntry) (Record, error) {
		f := newFields(h, entry.Offset)
		m := &RenderModel{ID: entry.ID}
		m.Name = f.stringID(l.name)
		m.Regions = readBlock(f, l.regions, l.regionStride, func(e *fields) Region {
			return Region{
				Name: e.stringID(0),
				Permutations: readBlock(e, l.permutations, l.permutationStride, func(p *fields) Permutation {
					return Permutation{Name: p.stringID(l.permutationName), SectionIndex: p.i16(l.permutationSect)}
				}),
			}
		})
		m.InstancedGeometryIndex = f.i32(l.instancedGeometry)
		m.Shaders = readShaderRefs(f, l.shaders, l.shaderStride, l.shaderID)
		m.Sections = readSections(f, l.sections, l.sectionStride, l.section)
		m.BoundingBoxes = readBoundingBoxes(f, l.boundingBoxes, l.section.boundingStride)
		m.RawID = f.u32(l.rawID)
		if f.err != nil {
			return nil, f.err
		}
		return m, nil
	}
}

func readShaderRefs(f *fields, off int64, stride int, idField int64) []ShaderRef {
	return readBlock(f, off, stride, func(e *fields) ShaderRef {
		return ShaderRef{TagID: e.tagID(idField)}
	})
}

func readSections(f *fields, off int64, stride int, l sectionLayout) []Section {
	return readBlock(f, off, stride, func(e *fields) Section {
		return parseSection(e, l)
	})
}

func parseSection(e *fields, l sectionLayout) Section {
	return Section{
		Submeshes: readBlock(e, l.submeshes, l.submeshStride, func(s *fields) Submesh {
			sm := Submesh{ShaderIndex: s.i16(l.submeshShader), VertexCount: int32(s.u16(l.submeshVerts))}
			if l.wideSubmeshes {
				sm.FaceIndex = s.i32(l.submeshFace)
				sm.FaceCount = s.i32(l.submeshCount)
			} else {
				sm.FaceIndex = int32(s.u16(l.submeshFace))
				sm.FaceCount = int32(s.u16(l.submeshCount))
			}
			return sm
		}),
		FacesIndex: e.i16(l.facesIndex),
	}
}

func readBoundingBoxes(f *fields, off int64, stride int) []BoundingBox {
	return readBlock(f, off, stride, func(e *fields) BoundingBox {
		return BoundingBox{
			Flags:   e.i32(0),
			XBounds: e.bounds(4),
			YBounds: e.bounds(12),
			ZBounds: e.bounds(20),
			UBounds: e.bounds(28),
			VBounds: e.bounds(36),
		}
	})
}
