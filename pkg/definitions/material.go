package definitions

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// ErrNoDiffuseMap is returned when a shader has no texture for its base map slot.
var ErrNoDiffuseMap = errors.New("no diffuse map")

const baseMapUsage = "base_map"

// DiffuseMap is the texture a viewer draws a shader with.
type DiffuseMap struct {
	Shader      cache.TagID `json:"shader"`
	BitmapTagID cache.TagID `json:"bitmap"`
	MapIndex    int         `json:"map_index"`
	TilingU     float32     `json:"tiling_u"`
	TilingV     float32     `json:"tiling_v"`
}

// LookupDiffuseMap finds the diffuse texture of a shader or material.
//
// Up to Reach the slot is the position of the "base_map" usage in the first
// property's template, or 0 when the template has none. Halo 4 materials
// always use slot 0. Tiling falls back to 1 when the map's tiling index is out
// of range.
func LookupDiffuseMap(h *cache.Handle, shaderID cache.TagID) (DiffuseMap, error) {
	return Default.LookupDiffuseMap(h, shaderID)
}

func (r *Registry) LookupDiffuseMap(h *cache.Handle, shaderID cache.TagID) (DiffuseMap, error) {
	out := DiffuseMap{Shader: shaderID, TilingU: 1, TilingV: 1}

	rec, err := r.DecodeID(h, shaderID)
	if err != nil {
		return out, err
	}
	shader, ok := rec.(*Shader)
	if !ok {
		return out, fmt.Errorf("%s is %q, not a shader", shaderID, string(rec.Class()))
	}
	if len(shader.Properties) == 0 {
		return out, fmt.Errorf("%w: %s has no properties", ErrNoDiffuseMap, shaderID)
	}
	prop := shader.Properties[0]

	if h.Version <= cache.HaloReachRetail && !prop.TemplateTagID.IsNull() {
		rec, err := r.DecodeID(h, prop.TemplateTagID)
		if err != nil {
			return out, fmt.Errorf("template of %s: %w", shaderID, err)
		}
		if t, ok := rec.(*Template); ok {
			if i := slices.Index(t.Usages, baseMapUsage); i >= 0 {
				out.MapIndex = i
			}
		}
	}

	if out.MapIndex >= len(prop.ShaderMaps) {
		return out, fmt.Errorf("%w: %s has %d maps, want slot %d", ErrNoDiffuseMap, shaderID, len(prop.ShaderMaps), out.MapIndex)
	}
	sm := prop.ShaderMaps[out.MapIndex]
	if sm.BitmapTagID.IsNull() {
		return out, fmt.Errorf("%w: %s slot %d is empty", ErrNoDiffuseMap, shaderID, out.MapIndex)
	}
	out.BitmapTagID = sm.BitmapTagID
	if int(sm.TilingIndex) < len(prop.Tilings) {
		t := prop.Tilings[sm.TilingIndex]
		out.TilingU, out.TilingV = t.U, t.V
	}
	return out, nil
}

// MaterialSlot is the lookup result for one entry of a model's shader list.
type MaterialSlot struct {
	ShaderIndex int         `json:"shader_index"`
	Shader      cache.TagID `json:"shader"`
	Used        bool        `json:"used"`
	Diffuse     *DiffuseMap `json:"diffuse,omitempty"`
	Error       string      `json:"error,omitempty"`
	Err         error       `json:"-"`
}

// ModelMaterials resolves a diffuse map for every shader that a submesh of m
// draws with, using the Default registry.
func ModelMaterials(h *cache.Handle, m *RenderModel) []MaterialSlot {
	return Default.ModelMaterials(h, m)
}

// BSPMaterials is ModelMaterials for a structure bsp.
func BSPMaterials(h *cache.Handle, b *StructureBSP) []MaterialSlot {
	return Default.BSPMaterials(h, b)
}

// ModelMaterials resolves the material slots of m with the parsers of r.
// Unused shaders are reported without a lookup. A failed lookup is recorded
// on its slot and does not stop the others.
func (r *Registry) ModelMaterials(h *cache.Handle, m *RenderModel) []MaterialSlot {
	return r.Materials(h, m.Shaders, m.Sections)
}

func (r *Registry) BSPMaterials(h *cache.Handle, b *StructureBSP) []MaterialSlot {
	return r.Materials(h, b.Shaders, b.Sections)
}

// Materials resolves the slots of shaders as drawn by the submeshes of sections.
func (r *Registry) Materials(h *cache.Handle, shaders []ShaderRef, sections []Section) []MaterialSlot {
	used := make(map[int16]bool)
	for _, sec := range sections {
		for _, sm := range sec.Submeshes {
			used[sm.ShaderIndex] = true
		}
	}

	out := make([]MaterialSlot, len(shaders))
	for i, s := range shaders {
		slot := MaterialSlot{ShaderIndex: i, Shader: s.TagID, Used: used[int16(i)]}
		if slot.Used && !s.TagID.IsNull() {
			d, err := r.LookupDiffuseMap(h, s.TagID)
			if err != nil {
				slot.Err = err
				slot.Error = err.Error()
			} else {
				slot.Diffuse = &d
			}
		}
		out[i] = slot
	}
	return out
}
