package cache_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/tagcache/internal/testutil"
	"github.com/samcharles93/tagcache/pkg/cache"
)

func sampleFile(t *testing.T, order binary.ByteOrder) ([]byte, *testutil.Builder) {
	t.Helper()

	b := testutil.NewBuilder(order, testutil.BuildODST)
	b.AddString("")
	b.AddString("default")
	b.AddString("base_map")

	mode := b.Alloc(64)
	mode.PutInt32(0, 1)
	b.AddTag("mode", 0xE1000001, `objects\weapons\rifle\rifle`, mode)
	b.AddTag("mat", 0xE1010002, `shaders\rifle`, b.Alloc(68))
	b.AddTag("scnr", 0xE1020003, `levels\atlas\h100\h100`, b.Alloc(32))

	b.AddResource(0x10, bytes.Repeat([]byte("geometry"), 32), 0)
	b.AddResource(0x11, bytes.Repeat([]byte("zstd-geometry"), 32), 1)
	b.AddResource(0x12, bytes.Repeat([]byte("lz4-geometry"), 32), 2)
	return b.Bytes(), b
}

func TestOpenBytesBothByteOrders(t *testing.T) {
	t.Parallel()

	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		data, b := sampleFile(t, order)
		h, err := cache.OpenBytes(data)
		require.NoError(t, err, "order=%v", order)

		require.Equal(t, cache.Halo3ODST, h.Version)
		require.Equal(t, testutil.DefaultVirtualBase-int32(b.TagDataOffset()), h.Magic)
		require.Equal(t, order, h.Reader().Order())
		require.Equal(t, 3, h.Index.Len())
		require.Equal(t, 3, h.Strings.Len())

		e, err := h.IndexByID(0xE1000001)
		require.NoError(t, err)
		require.Equal(t, cache.ClassCode("mode"), e.Class)
		require.Equal(t, `objects\weapons\rifle\rifle`, e.Filename)
		require.Equal(t, b.TagDataOffset(), e.Offset)

		mat, err := h.IndexByID(0xE1010002)
		require.NoError(t, err)
		require.Equal(t, cache.ClassCode("mat"), mat.Class)

		scnr, ok := h.Index.First("scnr")
		require.True(t, ok)
		require.Equal(t, cache.TagID(0xE1020003), scnr.ID)
		require.Len(t, h.Index.ByClass("mode"), 1)
		require.Equal(t, uint64(3), h.Index.IDs().GetCardinality())

		s, err := h.StringByID(2)
		require.NoError(t, err)
		require.Equal(t, "base_map", s)
		s, err = h.StringByID(0x08000002)
		require.NoError(t, err)
		require.Equal(t, "base_map", s, "namespace byte is ignored")

		require.NoError(t, h.Close())
	}
}

func TestOpenHighVirtualBase(t *testing.T) {
	t.Parallel()

	for _, base := range []int32{math.MinInt32, math.MinInt32 + 0x80, -0x1000} {
		b := testutil.NewBuilder(binary.BigEndian, testutil.BuildHalo3)
		b.VirtualBase = base
		b.AddString("")

		elems := b.Alloc(8)
		elems.PutInt32(0, 7).PutInt32(4, 9)
		tag := b.Alloc(16)
		tag.PutBlock(4, 2, elems)
		b.AddTag("rmt2", 0xE0020003, `shaders\shader_templates\_0_0_0`, tag)

		h, err := cache.OpenBytes(b.Bytes())
		require.NoError(t, err, "base=%#x", base)

		e, err := h.IndexByID(0xE0020003)
		require.NoError(t, err)
		require.Equal(t, b.Offset(tag), e.Offset, "base=%#x", base)

		r := h.Reader()
		require.NoError(t, r.SeekTo(e.Offset+4))
		got, err := cache.ReadBlock(r, h.Magic, 4, func(r *cache.Reader, _ int) (int32, error) {
			return r.ReadInt32()
		})
		require.NoError(t, err, "base=%#x", base)
		require.Equal(t, []int32{7, 9}, got)
		require.NoError(t, h.Close())
	}
}

func TestIndexLookupFailsDeterministically(t *testing.T) {
	t.Parallel()

	data, _ := sampleFile(t, binary.BigEndian)
	h, err := cache.OpenBytes(data)
	require.NoError(t, err)

	_, first := h.IndexByID(0xDEADBEEF)
	_, second := h.IndexByID(0xDEADBEEF)
	require.ErrorIs(t, first, cache.ErrUnknownTag)
	require.Equal(t, first.Error(), second.Error())

	var unknown *cache.UnknownTagError
	require.True(t, errors.As(first, &unknown))
	require.Equal(t, uint32(0xDEADBEEF), unknown.ID)

	_, err = h.StringByID(99)
	require.ErrorIs(t, err, cache.ErrUnknownTag)
}

func TestOpenRejectsBadFiles(t *testing.T) {
	t.Parallel()

	good, _ := sampleFile(t, binary.BigEndian)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(d []byte) []byte { return d[:0x40] }},
		{"header magic", func(d []byte) []byte { copy(d, "HEAD"); return d }},
		{"footer magic", func(d []byte) []byte { copy(d[0x58:], "feet"); return d }},
		{"size mismatch", func(d []byte) []byte { return append(d, 0, 0, 0, 0) }},
		{"unknown build", func(d []byte) []byte { copy(d[0x38:0x58], make([]byte, 32)); copy(d[0x38:], "bogus"); return d }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.mutate(bytes.Clone(good))
			_, err := cache.OpenBytes(data)
			require.ErrorIs(t, err, cache.ErrFormat)
		})
	}
}

func TestOpenTruncatedIndex(t *testing.T) {
	t.Parallel()

	data, _ := sampleFile(t, binary.BigEndian)
	binary.BigEndian.PutUint32(data[0x10:], uint32(len(data)-4)) // index offset
	_, err := cache.OpenBytes(data)
	require.ErrorIs(t, err, cache.ErrTruncatedInput)
}

func TestOpenFromDisk(t *testing.T) {
	t.Parallel()

	data, _ := sampleFile(t, binary.LittleEndian)
	path := filepath.Join(t.TempDir(), "atlas.map")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	h, err := cache.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, h.Close()) }()

	require.Equal(t, path, h.Path)
	e, err := h.IndexByID(0xE1000001)
	require.NoError(t, err)

	r := h.Reader()
	require.NoError(t, r.SeekTo(e.Offset))
	v, err := r.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(1), v)
}

func TestResources(t *testing.T) {
	t.Parallel()

	data, _ := sampleFile(t, binary.BigEndian)
	h, err := cache.OpenBytes(data)
	require.NoError(t, err)

	raw, err := h.Resource(0x10)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte("geometry"), 32), raw)

	raw, err = h.Resource(0x11)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte("zstd-geometry"), 32), raw)

	raw, err = h.Resource(0x12)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte("lz4-geometry"), 32), raw)

	_, err = h.Resource(0x99)
	require.ErrorIs(t, err, cache.ErrUnknownTag)

	list := h.Resources()
	require.Len(t, list, 3)
	require.Equal(t, cache.CodecZstd, list[1].Codec)
}

func TestBuildTable(t *testing.T) {
	entries, err := cache.ParseBuilds([]byte("builds:\n  - build: custom.build\n    version: halo4_retail\n"))
	require.NoError(t, err)
	require.Equal(t, []cache.BuildEntry{{Build: "custom.build", Version: cache.Halo4Retail}}, entries)

	_, err = cache.ParseBuilds([]byte("builds:\n  - build: x\n    version: halo5\n"))
	require.Error(t, err)

	_, ok := cache.VersionForBuild("custom.build")
	require.False(t, ok)
	cache.RegisterBuilds(entries...)
	v, ok := cache.VersionForBuild("custom.build")
	require.True(t, ok)
	require.Equal(t, cache.Halo4Retail, v)

	v, ok = cache.VersionForBuild(testutil.BuildReach)
	require.True(t, ok)
	require.Equal(t, cache.HaloReachRetail, v)
}

func TestParseTagID(t *testing.T) {
	t.Parallel()

	id, err := cache.ParseTagID("0xE1740000")
	require.NoError(t, err)
	require.Equal(t, cache.TagID(0xE1740000), id)

	id, err = cache.ParseTagID("16")
	require.NoError(t, err)
	require.Equal(t, cache.TagID(16), id)

	_, err = cache.ParseTagID("mode")
	require.Error(t, err)
	_, err = cache.ParseTagID("0x1FFFFFFFF")
	require.Error(t, err)

	text, err := cache.TagID(0xE0000001).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "0xE0000001", string(text))

	var back cache.TagID
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, cache.TagID(0xE0000001), back)
}
