package definitions

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/tagcache/internal/testutil"
	"github.com/samcharles93/tagcache/pkg/cache"
)

const (
	modelID    uint32 = 0xE0000001
	shaderID   uint32 = 0xE0010002
	templateID uint32 = 0xE0020003
	bitmapA    uint32 = 0xE0030004
	bitmapB    uint32 = 0xE0040005
	unusedID   uint32 = 0xE0050006
)

func openBuilder(t *testing.T, b *testutil.Builder) *cache.Handle {
	t.Helper()
	h, err := cache.OpenBytes(b.Bytes())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func buildForVersion(v cache.Version) string {
	switch v {
	case cache.Halo3Retail:
		return testutil.BuildHalo3
	case cache.Halo3ODST:
		return testutil.BuildODST
	case cache.HaloReachRetail:
		return testutil.BuildReach
	case cache.Halo4Retail:
		return testutil.BuildHalo4
	}
	return testutil.BuildUnknown
}

// writeModel adds a render model with one region of two permutations, two
// shaders, one section of two submeshes and one bounding box.
func writeModel(b *testutil.Builder, l modelLayout, shaderClass string) {
	name := b.AddString("rifle")
	region := b.AddString("body")
	base := b.AddString("base")
	broken := b.AddString("broken")

	ps := l.permutationStride
	perms := b.Alloc(2 * ps)
	perms.PutUint32(0, base).PutInt16(int(l.permutationSect), 0)
	perms.PutUint32(ps, broken).PutInt16(ps+int(l.permutationSect), -1)

	regions := b.Alloc(l.regionStride)
	regions.PutUint32(0, region).PutBlock(int(l.permutations), 2, perms)

	shaders := b.Alloc(2 * l.shaderStride)
	shaders.PutTagRef(int(l.shaderID)-12, shaderClass, shaderID)
	shaders.PutTagRef(l.shaderStride+int(l.shaderID)-12, shaderClass, unusedID)

	sl := l.section
	subs := b.Alloc(2 * sl.submeshStride)
	for i := range 2 {
		at := i * sl.submeshStride
		subs.PutInt16(at, 0)
		if sl.wideSubmeshes {
			subs.PutInt32(at+int(sl.submeshFace), int32(i*6))
			subs.PutInt32(at+int(sl.submeshCount), 6)
		} else {
			subs.PutUint16(at+int(sl.submeshFace), uint16(i*6))
			subs.PutUint16(at+int(sl.submeshCount), 6)
		}
		subs.PutUint16(at+int(sl.submeshVerts), 4)
	}
	sections := b.Alloc(l.sectionStride)
	sections.PutBlock(0, 2, subs).PutInt16(int(sl.facesIndex), 3)

	bbox := b.Alloc(sl.boundingStride)
	bbox.PutInt32(0, 1).PutFloats(4, -1, 1, -2, 2, -3, 3, 0, 1, 0.5, 1)

	mode := b.Alloc(int(l.rawID) + 4)
	mode.PutUint32(0, name)
	mode.PutBlock(int(l.regions), 1, regions)
	mode.PutInt32(int(l.instancedGeometry), -1)
	mode.PutBlock(int(l.shaders), 2, shaders)
	mode.PutBlock(int(l.sections), 1, sections)
	mode.PutBlock(int(l.boundingBoxes), 1, bbox)
	mode.PutUint32(int(l.rawID), 0xCAFE)
	b.AddTag("mode", modelID, `objects\weapons\rifle\rifle`, mode)
	b.AddTag(shaderClass, unusedID, `objects\weapons\rifle\shaders\unused`, b.Alloc(4))
}

// writeShader adds a render method whose template lists usages. Map 0 points
// at bitmapA and map 1 at bitmapB; map 1 uses tiling 0, map 0 an out of range
// tiling.
func writeShader(b *testutil.Builder, l shaderLayout, tl templateLayout, usages ...string) {
	ids := b.Alloc(4 * len(usages))
	for i, u := range usages {
		ids.PutUint32(4*i, b.AddString(u))
	}
	tmpl := b.Alloc(int(tl.usages) + 8)
	tmpl.PutBlock(int(tl.usages), int32(len(usages)), ids)
	b.AddTag("rmt2", templateID, `shaders\shader_templates\opaque`, tmpl)

	maps := b.Alloc(2 * l.mapStride)
	for i, bm := range []uint32{bitmapA, bitmapB} {
		at := i * l.mapStride
		maps.PutTagRef(at+int(l.mapBitmap)-12, "bitm", bm)
		if l.wideMapType {
			maps.PutInt16(at+int(l.mapType), int16(i+1))
		} else {
			maps.PutUint8(at+int(l.mapType), uint8(i+1))
		}
	}
	maps.PutUint8(int(l.mapTiling), 7)
	maps.PutUint8(l.mapStride+int(l.mapTiling), 0)

	tilings := b.Alloc(l.tilingStride)
	tilings.PutFloats(0, 4, 8, 0, 0)

	props := b.Alloc(l.propertyStride)
	props.PutTagRef(int(l.template)-12, "rmt2", templateID)
	props.PutBlock(int(l.maps), 2, maps)
	props.PutBlock(int(l.tilings), 1, tilings)

	shader := b.Alloc(int(l.properties) + 8)
	shader.PutUint32(int(l.baseShader), uint32(cache.NullTag))
	shader.PutBlock(int(l.properties), 1, props)
	b.AddTag("rmsh", shaderID, `objects\weapons\rifle\shaders\rifle`, shader)

	b.AddTag("bitm", bitmapA, `objects\weapons\rifle\bitmaps\rifle_bump`, b.Alloc(4))
	b.AddTag("bitm", bitmapB, `objects\weapons\rifle\bitmaps\rifle_diffuse`, b.Alloc(4))
}

// writeMaterial adds a Halo 4 material with two properties laid out back to back.
func writeMaterial(b *testutil.Builder) {
	maps0 := b.Alloc(2 * materialMapSize)
	maps0.PutTagRef(0, "bitm", bitmapB).PutInt16(materialMapType, 3).PutUint8(materialMapTiling, 0)
	maps0.PutTagRef(materialMapSize, "bitm", bitmapA).PutUint8(materialMapSize+materialMapTiling, 9)
	tilings0 := b.Alloc(materialTilingSize)
	tilings0.PutFloats(0, 2, 3, 0, 0)

	maps1 := b.Alloc(materialMapSize)
	maps1.PutTagRef(0, "bitm", bitmapA)

	props := b.Alloc(2 * materialPropertySize)
	props.PutBlock(materialMapsBlock, 2, maps0).PutBlock(materialTilingsBlock, 1, tilings0)
	props.PutBlock(materialPropertySize+materialMapsBlock, 1, maps1)

	mat := b.Alloc(materialSize)
	mat.PutUint32(materialBaseShader, uint32(cache.NullTag))
	mat.PutBlock(materialProperties, 2, props)
	b.AddTag("mat", shaderID, `objects\weapons\rifle\materials\rifle`, mat)

	b.AddTag("bitm", bitmapA, `objects\weapons\rifle\bitmaps\rifle_bump`, b.Alloc(4))
	b.AddTag("bitm", bitmapB, `objects\weapons\rifle\bitmaps\rifle_diffuse`, b.Alloc(4))
}

func newBuilder(v cache.Version) *testutil.Builder {
	b := testutil.NewBuilder(binary.BigEndian, buildForVersion(v))
	b.AddString("")
	return b
}
