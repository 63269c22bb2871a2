package definitions

import (
	"fmt"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// fields reads values at fixed offsets from a record base address.
// The first failure sticks: later reads return zero values and err keeps the
// original cause, so parsers can read a whole layout and check once.
type fields struct {
	h    *cache.Handle
	r    *cache.Reader
	base int64
	err  error
}

func newFields(h *cache.Handle, base int64) *fields {
	return &fields{h: h, r: h.Reader(), base: base}
}

func (f *fields) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *fields) seek(off int64) bool {
	if f.err != nil {
		return false
	}
	if err := f.r.SeekTo(f.base + off); err != nil {
		f.fail(fmt.Errorf("field +%d: %w", off, err))
		return false
	}
	return true
}

// end leaves the cursor size bytes past the base, for back-to-back elements.
func (f *fields) end(size int64) {
	f.seek(size)
}

func (f *fields) i32(off int64) int32 {
	if !f.seek(off) {
		return 0
	}
	v, err := f.r.ReadInt32()
	if err != nil {
		f.fail(fmt.Errorf("field +%d: %w", off, err))
	}
	return v
}

func (f *fields) u32(off int64) uint32 {
	return uint32(f.i32(off))
}

func (f *fields) i16(off int64) int16 {
	if !f.seek(off) {
		return 0
	}
	v, err := f.r.ReadInt16()
	if err != nil {
		f.fail(fmt.Errorf("field +%d: %w", off, err))
	}
	return v
}

func (f *fields) u16(off int64) uint16 {
	return uint16(f.i16(off))
}

func (f *fields) u8(off int64) uint8 {
	if !f.seek(off) {
		return 0
	}
	v, err := f.r.ReadUint8()
	if err != nil {
		f.fail(fmt.Errorf("field +%d: %w", off, err))
	}
	return v
}

func (f *fields) f32(off int64) float32 {
	if !f.seek(off) {
		return 0
	}
	v, err := f.r.ReadFloat32()
	if err != nil {
		f.fail(fmt.Errorf("field +%d: %w", off, err))
	}
	return v
}

func (f *fields) bounds(off int64) Bounds {
	return Bounds{Min: f.f32(off), Max: f.f32(off + 4)}
}

// tagID reads a tag id and checks it against the index. NullTag passes.
func (f *fields) tagID(off int64) cache.TagID {
	id := cache.TagID(f.u32(off))
	if f.err != nil || id.IsNull() {
		return id
	}
	if _, err := f.h.IndexByID(id); err != nil {
		f.fail(fmt.Errorf("field +%d: %w", off, err))
	}
	return id
}

// stringID reads a string id and returns its text.
func (f *fields) stringID(off int64) string {
	id := f.u32(off)
	if f.err != nil {
		return ""
	}
	s, err := f.h.StringByID(id)
	if err != nil {
		f.fail(fmt.Errorf("field +%d: %w", off, err))
	}
	return s
}

func (f *fields) blockHeader(off int64) cache.BlockHeader {
	if !f.seek(off) {
		return cache.BlockHeader{}
	}
	hdr, err := cache.ReadBlockHeader(f.r, f.h.Magic)
	if err != nil {
		f.fail(fmt.Errorf("block +%d: %w", off, err))
	}
	return hdr
}

// readBlock parses the block whose header sits at off. Each element gets its
// own fields rooted at the element start.
func readBlock[T any](f *fields, off int64, stride int, parse func(e *fields) T) []T {
	hdr := f.blockHeader(off)
	if f.err != nil {
		return nil
	}
	return readElements(f, off, hdr, stride, parse)
}

func readElements[T any](f *fields, off int64, hdr cache.BlockHeader, stride int, parse func(e *fields) T) []T {
	if f.err != nil {
		return nil
	}
	out, err := cache.ReadElements(f.r, hdr, stride, func(r *cache.Reader, _ int) (T, error) {
		e := &fields{h: f.h, r: r, base: r.Position()}
		v := parse(e)
		return v, e.err
	})
	if err != nil {
		f.fail(fmt.Errorf("block +%d: %w", off, err))
	}
	return out
}
