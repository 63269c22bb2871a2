package cache

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies how a resource payload is stored.
type Codec int32

const (
	CodecNone Codec = 0
	CodecZstd Codec = 1
	CodecLZ4  Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", int32(c))
	}
}

// ResourceEntry locates a raw payload (geometry buffers) referenced by raw id.
type ResourceEntry struct {
	RawID      uint32 `json:"raw_id"`
	Offset     int64  `json:"offset"`
	StoredSize int32  `json:"stored_size"`
	RawSize    int32  `json:"raw_size"`
	Codec      Codec  `json:"codec"`
}

func readResourceTable(r *Reader, h Header) (map[uint32]ResourceEntry, error) {
	out := make(map[uint32]ResourceEntry, h.ResourceCount)
	for i := range int(h.ResourceCount) {
		if err := r.SeekTo(int64(h.ResourceOffset) + int64(i)*ResourceEntrySize); err != nil {
			return nil, fmt.Errorf("resource %d: %w", i, err)
		}
		var fields [4]int32
		rawID, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("resource %d: %w", i, err)
		}
		for j := range fields {
			if fields[j], err = r.ReadInt32(); err != nil {
				return nil, fmt.Errorf("resource %d: %w", i, err)
			}
		}
		e := ResourceEntry{
			RawID:      rawID,
			Offset:     int64(fields[0]),
			StoredSize: fields[1],
			RawSize:    fields[2],
			Codec:      Codec(fields[3]),
		}
		if e.StoredSize < 0 || e.RawSize < 0 {
			return nil, formatErr("resource 0x%08X has negative size", rawID)
		}
		out[rawID] = e
	}
	return out, nil
}

var zstdDecoders = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil
		}
		return dec
	},
}

// decodeResource expands a stored payload to exactly e.RawSize bytes.
func decodeResource(e ResourceEntry, stored []byte) ([]byte, error) {
	switch e.Codec {
	case CodecNone:
		if int32(len(stored)) != e.RawSize {
			return nil, formatErr("resource 0x%08X: stored %d bytes, raw %d", e.RawID, len(stored), e.RawSize)
		}
		out := make([]byte, len(stored))
		copy(out, stored)
		return out, nil
	case CodecZstd:
		dec, _ := zstdDecoders.Get().(*zstd.Decoder)
		if dec == nil {
			return nil, fmt.Errorf("resource 0x%08X: zstd decoder unavailable", e.RawID)
		}
		defer zstdDecoders.Put(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, e.RawSize))
		if err != nil {
			return nil, fmt.Errorf("%w: resource 0x%08X: zstd: %v", ErrFormat, e.RawID, err)
		}
		if int32(len(out)) != e.RawSize {
			return nil, formatErr("resource 0x%08X: decompressed size mismatch", e.RawID)
		}
		return out, nil
	case CodecLZ4:
		out := make([]byte, e.RawSize)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("%w: resource 0x%08X: lz4: %v", ErrFormat, e.RawID, err)
		}
		if int32(n) != e.RawSize {
			return nil, formatErr("resource 0x%08X: decompressed size mismatch", e.RawID)
		}
		return out, nil
	default:
		return nil, formatErr("resource 0x%08X: unknown codec %s", e.RawID, e.Codec)
	}
}
