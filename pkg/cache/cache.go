// Package cache reads versioned tag cache files ("maps").
//
// A cache file is a header, an index of tags, a string table and tag payloads
// that point at each other through virtual addresses. Virtual addresses are
// turned into file offsets by subtracting the per-file magic. Opening a file
// builds the index and string tables once; decoding individual tags is done by
// the definitions package on top of a Handle.
package cache

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const (
	// HeaderMagic and FooterMagic read as "head"/"foot" in big-endian files and
	// byte-reversed in little-endian ones.
	HeaderMagic = "head"
	FooterMagic = "foot"

	HeaderSize = 0x80

	IndexEntrySize    = 12
	ResourceEntrySize = 20

	buildLength = 32

	// maxStringLength bounds NUL-terminated reads in the string and filename regions.
	maxStringLength = 1024
)

// TagID identifies a tag within one cache file.
type TagID uint32

// NullTag is the empty tag reference.
const NullTag TagID = 0xFFFFFFFF

func (id TagID) IsNull() bool { return id == NullTag }

func (id TagID) String() string { return fmt.Sprintf("0x%08X", uint32(id)) }

func (id TagID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TagID) UnmarshalText(b []byte) error {
	v, err := ParseTagID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// ParseTagID accepts "0xE1740000" style hex or a plain decimal id.
func ParseTagID(s string) (TagID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return NullTag, fmt.Errorf("bad tag id %q", s)
	}
	return TagID(v), nil
}

// ClassCode is a tag class four-character code with trailing spaces removed.
type ClassCode string

// ClassCodeFromUint32 converts a packed code (most significant byte first).
func ClassCodeFromUint32(v uint32) ClassCode {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return ClassCode(strings.TrimRight(string(b[:]), " \x00"))
}

// Uint32 packs the code back, padding with spaces.
func (c ClassCode) Uint32() uint32 {
	var b [4]byte
	copy(b[:], "    ")
	copy(b[:], c)
	return binary.BigEndian.Uint32(b[:])
}

// Header is the fixed region at the start of every cache file.
type Header struct {
	FileVersion         int32
	FileSize            int32
	IndexCount          int32
	IndexOffset         int32
	StringCount         int32
	StringIndexOffset   int32
	StringDataOffset    int32
	FilenameIndexOffset int32
	FilenameDataOffset  int32
	VirtualBase         int32
	TagDataOffset       int32
	ResourceCount       int32
	ResourceOffset      int32
	Build               string
}

// Magic is the pointer-translation constant for the file.
func (h *Header) Magic() int32 {
	return h.VirtualBase - h.TagDataOffset
}

// Translate converts a stored virtual pointer into an absolute file offset.
// Pointers and magic are 32-bit addresses, so the subtraction wraps the same
// way Magic does; the result is the unsigned 32-bit difference.
func Translate(pointer, magic int32) int64 {
	return int64(uint32(pointer) - uint32(magic))
}

func detectOrder(data []byte) (binary.ByteOrder, error) {
	if len(data) < HeaderSize {
		return nil, formatErr("file is %d bytes, header needs %d", len(data), HeaderSize)
	}
	switch string(data[:4]) {
	case HeaderMagic:
		return binary.BigEndian, nil
	case reverse(HeaderMagic):
		return binary.LittleEndian, nil
	default:
		return nil, formatErr("bad header magic %q", data[:4])
	}
}

func readHeader(r *Reader) (Header, error) {
	var h Header
	if err := r.SeekTo(4); err != nil {
		return h, err
	}
	fields := []*int32{
		&h.FileVersion, &h.FileSize,
		&h.IndexCount, &h.IndexOffset,
		&h.StringCount, &h.StringIndexOffset, &h.StringDataOffset,
		&h.FilenameIndexOffset, &h.FilenameDataOffset,
		&h.VirtualBase, &h.TagDataOffset,
		&h.ResourceCount, &h.ResourceOffset,
	}
	for _, f := range fields {
		v, err := r.ReadInt32()
		if err != nil {
			return h, err
		}
		*f = v
	}
	build, err := r.ReadFixedString(buildLength)
	if err != nil {
		return h, err
	}
	h.Build = strings.TrimSpace(build)

	foot, err := r.ReadBytes(4)
	if err != nil {
		return h, err
	}
	want := FooterMagic
	if r.Order() == binary.LittleEndian {
		want = reverse(FooterMagic)
	}
	if string(foot) != want {
		return h, formatErr("bad footer magic %q", foot)
	}
	if int64(h.FileSize) != r.Len() {
		return h, formatErr("header declares %d bytes, file has %d", h.FileSize, r.Len())
	}
	if h.IndexCount < 0 || h.StringCount < 0 || h.ResourceCount < 0 {
		return h, formatErr("negative table count")
	}
	return h, nil
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
