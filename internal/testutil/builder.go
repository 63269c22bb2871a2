// Package testutil builds synthetic cache files for tests.
//
// Tag payloads are written into chunks allocated from the tag data region.
// A chunk's virtual address is known as soon as it is allocated, so payloads
// can point at each other before the final file layout is computed.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	DefaultVirtualBase int32 = 0x50000000

	headerSize    = 0x80
	regionAlign   = 16
	tagRefSize    = 16
	tagRefIDField = 12
)

// Builds used by tests; they match the embedded build table.
const (
	BuildHalo3   = "11.1.498295 Live"
	BuildODST    = "13895.09.04.27.2201.atlas_relea"
	BuildReach   = "11860.10.07.24.0147.omaha_relea"
	BuildHalo4   = "20810.12.09.22.1647.main"
	BuildUnknown = "00000.00.00.00.0000.unknown"
)

type tagSpec struct {
	class string
	id    uint32
	name  string
	chunk *Chunk
}

type resourceSpec struct {
	rawID   uint32
	stored  []byte
	rawSize int
	codec   int32
}

// Builder accumulates tags, strings and resources.
type Builder struct {
	Order       binary.ByteOrder
	Build       string
	VirtualBase int32

	tags      []tagSpec
	strings   []string
	resources []resourceSpec
	chunks    []*Chunk
	tagData   int
}

func NewBuilder(order binary.ByteOrder, build string) *Builder {
	return &Builder{Order: order, Build: build, VirtualBase: DefaultVirtualBase}
}

// Chunk is a region of tag data.
type Chunk struct {
	b    *Builder
	rel  int
	Data []byte
}

// Alloc reserves size zeroed bytes in the tag data region.
func (b *Builder) Alloc(size int) *Chunk {
	c := &Chunk{b: b, rel: b.tagData, Data: make([]byte, size)}
	b.tagData += align(size, 4)
	b.chunks = append(b.chunks, c)
	return c
}

// Addr is the chunk's stored (virtual) pointer.
func (c *Chunk) Addr() int32 {
	return c.b.VirtualBase + int32(c.rel)
}

func (c *Chunk) PutUint8(off int, v uint8) *Chunk {
	c.Data[off] = v
	return c
}

func (c *Chunk) PutInt16(off int, v int16) *Chunk {
	c.b.Order.PutUint16(c.Data[off:], uint16(v))
	return c
}

func (c *Chunk) PutUint16(off int, v uint16) *Chunk {
	c.b.Order.PutUint16(c.Data[off:], v)
	return c
}

func (c *Chunk) PutInt32(off int, v int32) *Chunk {
	c.b.Order.PutUint32(c.Data[off:], uint32(v))
	return c
}

func (c *Chunk) PutUint32(off int, v uint32) *Chunk {
	c.b.Order.PutUint32(c.Data[off:], v)
	return c
}

func (c *Chunk) PutFloat32(off int, v float32) *Chunk {
	c.b.Order.PutUint32(c.Data[off:], math.Float32bits(v))
	return c
}

func (c *Chunk) PutFloats(off int, vs ...float32) *Chunk {
	for i, v := range vs {
		c.PutFloat32(off+4*i, v)
	}
	return c
}

// PutBlock writes a {count, pointer} header pointing at target.
func (c *Chunk) PutBlock(off int, count int32, target *Chunk) *Chunk {
	c.PutInt32(off, count)
	if target == nil {
		return c.PutInt32(off+4, 0)
	}
	return c.PutInt32(off+4, target.Addr())
}

// PutTagRef writes a 16-byte tag reference (class at 0, id at 12).
func (c *Chunk) PutTagRef(off int, class string, id uint32) *Chunk {
	c.PutUint32(off, ClassCode(class))
	return c.PutUint32(off+tagRefIDField, id)
}

// AddTag registers chunk as the payload of a tag.
func (b *Builder) AddTag(class string, id uint32, name string, chunk *Chunk) {
	b.tags = append(b.tags, tagSpec{class: class, id: id, name: name, chunk: chunk})
}

// AddString appends a string and returns its id.
func (b *Builder) AddString(s string) uint32 {
	b.strings = append(b.strings, s)
	return uint32(len(b.strings) - 1)
}

// AddResource stores payload under rawID, compressed with codec (0 none, 1 zstd, 2 lz4).
func (b *Builder) AddResource(rawID uint32, payload []byte, codec int32) {
	stored := payload
	switch codec {
	case 1:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			panic(err)
		}
		stored = enc.EncodeAll(payload, nil)
		_ = enc.Close()
	case 2:
		dst := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, dst, nil)
		if err != nil {
			panic(err)
		}
		if n == 0 {
			panic("testutil: lz4 payload is incompressible")
		}
		stored = dst[:n]
	}
	b.resources = append(b.resources, resourceSpec{rawID: rawID, stored: stored, rawSize: len(payload), codec: codec})
}

// Bytes lays out and returns the complete file.
func (b *Builder) Bytes() []byte {
	var (
		filenames = stringRegion(b.tagNames())
		strs      = stringRegion(b.strings)
	)

	indexOff := headerSize
	fnIndexOff := align(indexOff+len(b.tags)*12, regionAlign)
	fnDataOff := align(fnIndexOff+len(b.tags)*4, regionAlign)
	strIndexOff := align(fnDataOff+len(filenames.data), regionAlign)
	strDataOff := align(strIndexOff+len(b.strings)*4, regionAlign)
	resTableOff := align(strDataOff+len(strs.data), regionAlign)
	resDataOff := align(resTableOff+len(b.resources)*20, regionAlign)
	resOffsets := make([]int, len(b.resources))
	cur := resDataOff
	for i, r := range b.resources {
		resOffsets[i] = cur
		cur = align(cur+len(r.stored), regionAlign)
	}
	tagDataOff := align(cur, regionAlign)
	size := tagDataOff + b.tagData

	out := make([]byte, size)
	o := b.Order
	put32 := func(off int, v int32) { o.PutUint32(out[off:], uint32(v)) }

	copy(out[0:4], b.magic("head"))
	put32(0x04, 11)
	put32(0x08, int32(size))
	put32(0x0C, int32(len(b.tags)))
	put32(0x10, int32(indexOff))
	put32(0x14, int32(len(b.strings)))
	put32(0x18, int32(strIndexOff))
	put32(0x1C, int32(strDataOff))
	put32(0x20, int32(fnIndexOff))
	put32(0x24, int32(fnDataOff))
	put32(0x28, b.VirtualBase)
	put32(0x2C, int32(tagDataOff))
	put32(0x30, int32(len(b.resources)))
	put32(0x34, int32(resTableOff))
	copy(out[0x38:0x58], b.Build)
	copy(out[0x58:0x5C], b.magic("foot"))

	for i, t := range b.tags {
		e := indexOff + i*12
		o.PutUint32(out[e:], ClassCode(t.class))
		o.PutUint32(out[e+4:], t.id)
		var addr int32
		if t.chunk != nil {
			addr = t.chunk.Addr()
		}
		put32(e+8, addr)
	}
	for i, off := range filenames.offsets {
		put32(fnIndexOff+i*4, int32(off))
	}
	copy(out[fnDataOff:], filenames.data)
	for i, off := range strs.offsets {
		put32(strIndexOff+i*4, int32(off))
	}
	copy(out[strDataOff:], strs.data)

	for i, r := range b.resources {
		e := resTableOff + i*20
		o.PutUint32(out[e:], r.rawID)
		put32(e+4, int32(resOffsets[i]))
		put32(e+8, int32(len(r.stored)))
		put32(e+12, int32(r.rawSize))
		put32(e+16, r.codec)
		copy(out[resOffsets[i]:], r.stored)
	}

	for _, c := range b.chunks {
		copy(out[tagDataOff+c.rel:], c.Data)
	}
	return out
}

// TagDataOffset reports where chunk data starts in the laid-out file.
func (b *Builder) TagDataOffset() int64 {
	data := b.Bytes()
	return int64(b.Order.Uint32(data[0x2C:]))
}

// Offset returns the absolute file offset of a chunk in the laid-out file.
func (b *Builder) Offset(c *Chunk) int64 {
	return b.TagDataOffset() + int64(c.rel)
}

func (b *Builder) tagNames() []string {
	names := make([]string, len(b.tags))
	for i, t := range b.tags {
		names[i] = t.name
	}
	return names
}

func (b *Builder) magic(s string) []byte {
	out := []byte(s)
	if b.Order == binary.LittleEndian {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

type region struct {
	offsets []int
	data    []byte
}

func stringRegion(values []string) region {
	var buf bytes.Buffer
	r := region{offsets: make([]int, len(values))}
	for i, s := range values {
		r.offsets[i] = buf.Len()
		buf.WriteString(s)
		buf.WriteByte(0)
	}
	r.data = buf.Bytes()
	return r
}

// ClassCode packs a class code, space padded, most significant byte first.
func ClassCode(class string) uint32 {
	var b [4]byte
	copy(b[:], "    ")
	copy(b[:], class)
	return binary.BigEndian.Uint32(b[:])
}

func align(n, a int) int {
	if rem := n % a; rem != 0 {
		return n + a - rem
	}
	return n
}
