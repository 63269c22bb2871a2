package cache

import "fmt"

// BlockHeaderSize is the on-disk size of a {count, pointer} pair.
const BlockHeaderSize = 8

// BlockHeader describes a variable-length array stored elsewhere in the file.
type BlockHeader struct {
	Count   int32
	Pointer int32
	Address int64
}

// ReadBlockHeader reads a {count, pointer} pair at the cursor and translates
// the pointer. The cursor ends 8 bytes after where it started.
func ReadBlockHeader(r *Reader, magic int32) (BlockHeader, error) {
	count, err := r.ReadInt32()
	if err != nil {
		return BlockHeader{}, err
	}
	ptr, err := r.ReadInt32()
	if err != nil {
		return BlockHeader{}, err
	}
	if count < 0 {
		return BlockHeader{}, formatErr("negative block count %d at 0x%X", count, r.Position()-BlockHeaderSize)
	}
	return BlockHeader{Count: count, Pointer: ptr, Address: Translate(ptr, magic)}, nil
}

// ElementAddress returns the start of element i for a fixed-stride block.
func (b BlockHeader) ElementAddress(i int, stride int) int64 {
	return b.Address + int64(i)*int64(stride)
}

// ElementFunc parses one block element with the cursor at its start.
type ElementFunc[T any] func(r *Reader, index int) (T, error)

// ReadBlock reads a block header at the cursor and parses its elements.
//
// With stride > 0, element i is parsed from Address+i*stride no matter how much
// the element parser consumed. With stride == 0 elements are parsed back to
// back. Either way the cursor is left at header+8 when ReadBlock returns,
// including on error. A zero count never seeks.
func ReadBlock[T any](r *Reader, magic int32, stride int, parse ElementFunc[T]) ([]T, error) {
	hdr, err := ReadBlockHeader(r, magic)
	if err != nil {
		return nil, err
	}
	return ReadElements(r, hdr, stride, parse)
}

// ReadElements parses the elements described by hdr and restores the cursor.
// Callers that take a block's count from one tag and its address from another
// build hdr themselves.
func ReadElements[T any](r *Reader, hdr BlockHeader, stride int, parse ElementFunc[T]) ([]T, error) {
	if hdr.Count < 0 {
		return nil, formatErr("negative block count %d", hdr.Count)
	}
	if hdr.Count == 0 {
		return nil, nil
	}
	if stride > 0 {
		end := hdr.ElementAddress(int(hdr.Count), stride)
		if hdr.Address < 0 || end > r.Len() {
			return nil, &TruncatedInputError{Offset: hdr.Address, Want: int(hdr.Count) * stride, Size: r.Len()}
		}
	}

	out := make([]T, 0, min(int64(hdr.Count), r.Len()))
	err := r.Preserve(func() error {
		if err := r.SeekTo(hdr.Address); err != nil {
			return err
		}
		for i := range int(hdr.Count) {
			if stride > 0 {
				if err := r.SeekTo(hdr.ElementAddress(i, stride)); err != nil {
					return err
				}
			}
			v, err := parse(r, i)
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
