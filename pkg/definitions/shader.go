package definitions

import "github.com/samcharles93/tagcache/pkg/cache"

// Shader is a decoded render method ("rmsh" and friends) or, for Halo 4, a
// "mat" material. Both expose the same property tree.
type Shader struct {
	ID              cache.TagID      `json:"id"`
	ClassCode       cache.ClassCode  `json:"class"`
	BaseShaderTagID cache.TagID      `json:"base_shader"`
	Properties      []ShaderProperty `json:"properties"`
}

func (s *Shader) Class() cache.ClassCode { return s.ClassCode }

// ShaderProperty binds textures to the slots of a template.
// TemplateTagID is NullTag for materials.
type ShaderProperty struct {
	TemplateTagID cache.TagID `json:"template"`
	ShaderMaps    []ShaderMap `json:"shader_maps"`
	Tilings       []Tiling    `json:"tilings"`
}

type ShaderMap struct {
	BitmapTagID cache.TagID `json:"bitmap"`
	Type        int16       `json:"type"`
	TilingIndex uint8       `json:"tiling_index"`
}

type Tiling struct {
	U        float32 `json:"u"`
	V        float32 `json:"v"`
	Unknown0 float32 `json:"unknown0"`
	Unknown1 float32 `json:"unknown1"`
}

// Template is a decoded "rmt2" tag. Usages name the texture slots in the
// order a shader's maps fill them.
type Template struct {
	ID     cache.TagID `json:"id"`
	Usages []string    `json:"usages"`
}

func (*Template) Class() cache.ClassCode { return ClassTemplate }

func parseTiling(e *fields) Tiling {
	return Tiling{U: e.f32(0), V: e.f32(4), Unknown0: e.f32(8), Unknown1: e.f32(12)}
}

func decodeShader(l shaderLayout) DecodeFunc {
	return func(h *cache.Handle, entry cache.IndexEntry) (Record, error) {
		f := newFields(h, entry.Offset)
		s := &Shader{ID: entry.ID, ClassCode: entry.Class}
		s.BaseShaderTagID = f.tagID(l.baseShader)
		s.Properties = readBlock(f, l.properties, l.propertyStride, func(p *fields) ShaderProperty {
			return ShaderProperty{
				TemplateTagID: p.tagID(l.template),
				ShaderMaps: readBlock(p, l.maps, l.mapStride, func(m *fields) ShaderMap {
					sm := ShaderMap{BitmapTagID: m.tagID(l.mapBitmap), TilingIndex: m.u8(l.mapTiling)}
					if l.wideMapType {
						sm.Type = m.i16(l.mapType)
					} else {
						sm.Type = int16(m.u8(l.mapType))
					}
					return sm
				}),
				Tilings: readBlock(p, l.tilings, l.tilingStride, parseTiling),
			}
		})
		if f.err != nil {
			return nil, f.err
		}
		return s, nil
	}
}

func decodeTemplate(l templateLayout) DecodeFunc {
	return func(h *cache.Handle, entry cache.IndexEntry) (Record, error) {
		f := newFields(h, entry.Offset)
		t := &Template{ID: entry.ID}
		t.Usages = readBlock(f, l.usages, 4, func(e *fields) string {
			return e.stringID(0)
		})
		if f.err != nil {
			return nil, f.err
		}
		return t, nil
	}
}

// decodeMaterial reads a Halo 4 material. Elements are laid out back to back
// and each parser leaves the cursor at the end of what it consumed.
func decodeMaterial(h *cache.Handle, entry cache.IndexEntry) (Record, error) {
	f := newFields(h, entry.Offset)
	s := &Shader{ID: entry.ID, ClassCode: entry.Class}
	s.BaseShaderTagID = f.tagID(materialBaseShader)
	s.Properties = readBlock(f, materialProperties, 0, func(p *fields) ShaderProperty {
		prop := ShaderProperty{
			TemplateTagID: cache.NullTag,
			ShaderMaps: readBlock(p, materialMapsBlock, 0, func(m *fields) ShaderMap {
				sm := ShaderMap{
					BitmapTagID: m.tagID(materialMapBitmap),
					Type:        m.i16(materialMapType),
					TilingIndex: m.u8(materialMapTiling),
				}
				m.end(materialMapSize)
				return sm
			}),
			Tilings: readBlock(p, materialTilingsBlock, 0, func(t *fields) Tiling {
				v := parseTiling(t)
				t.end(materialTilingSize)
				return v
			}),
		}
		p.end(materialPropertySize)
		return prop
	})
	f.end(materialSize)
	if f.err != nil {
		return nil, f.err
	}
	return s, nil
}
