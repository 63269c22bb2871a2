package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/tagcache/internal/testutil"
	"github.com/samcharles93/tagcache/pkg/cache"
)

const (
	modelID    = 0xE0000010
	templateID = 0xE0000011
	bitmapID   = 0xE0000012
	geometryID = 0x00C0FFEE
)

// quadMap builds a Halo 3 map holding a render model of one quad drawn as a
// four index strip, a shader template and a bitmap. A usages count past the
// end of the file makes the template undecodable.
func quadMap(usages int32) []byte {
	return quadMapSections(usages, 1)
}

// quadMapSections is quadMap with a model that declares n sections, each
// drawing the quad, while the geometry resource still holds only one.
func quadMapSections(usages int32, n int) []byte {
	b := testutil.NewBuilder(binary.BigEndian, testutil.BuildHalo3)
	b.AddString("")
	name := b.AddString("quad")
	baseMap := b.AddString("base_map")

	list := b.Alloc(4)
	list.PutUint32(0, baseMap)
	tmpl := b.Alloc(84)
	tmpl.PutBlock(72, usages, list)
	b.AddTag("rmt2", templateID, `shaders\shader_templates\_0_0_0`, tmpl)

	shaders := b.Alloc(36)
	shaders.PutUint32(12, uint32(cache.NullTag))

	sub := b.Alloc(16)
	sub.PutInt16(0, 0).PutUint16(4, 0).PutUint16(6, 4).PutUint16(12, 4)
	sections := b.Alloc(76 * n)
	for i := range n {
		sections.PutBlock(i*76, 1, sub).PutInt16(i*76+40, -1)
	}

	mode := b.Alloc(228)
	mode.PutUint32(0, name)
	mode.PutInt32(28, -1)
	mode.PutBlock(72, 1, shaders)
	mode.PutBlock(104, int32(n), sections)
	mode.PutUint32(224, geometryID)
	b.AddTag("mode", modelID, `objects\quad\quad`, mode)

	b.AddTag("bitm", bitmapID, `objects\quad\bitmaps\quad`, b.Alloc(16))

	b.AddResource(geometryID, testutil.EncodeGeometry(binary.BigEndian, []testutil.GeometrySection{{
		Normals:     true,
		Positions:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		TexCoords:   [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		Normal:      [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		IndexFormat: 5,
		Indices:     []uint16{0, 1, 2, 3},
	}}), 1)
	return b.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
