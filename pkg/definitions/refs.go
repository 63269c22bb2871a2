package definitions

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// References returns the set of non-null tag ids a record points at.
func References(rec Record) *roaring.Bitmap {
	out := roaring.New()
	add := func(id cache.TagID) {
		if !id.IsNull() {
			out.Add(uint32(id))
		}
	}
	switch r := rec.(type) {
	case *RenderModel:
		for _, s := range r.Shaders {
			add(s.TagID)
		}
	case *StructureBSP:
		for _, s := range r.Shaders {
			add(s.TagID)
		}
		if r.Resolution != nil {
			add(r.Resolution.Scenario)
			add(r.Resolution.LevelData)
			add(r.Resolution.LevelGeometry)
		}
	case *Shader:
		add(r.BaseShaderTagID)
		for _, p := range r.Properties {
			add(p.TemplateTagID)
			for _, m := range p.ShaderMaps {
				add(m.BitmapTagID)
			}
		}
	}
	return out
}

// Dangling returns the ids in refs that are missing from the handle's index.
func Dangling(h *cache.Handle, refs *roaring.Bitmap) *roaring.Bitmap {
	return roaring.AndNot(refs, h.Index.IDs())
}
