package cache

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sys/unix"
)

// Handle is one opened cache file.
//
// The index, string and resource tables are immutable and may be read from any
// goroutine. The Reader is a single shared cursor: only one decode may run on a
// Handle at a time. Open separate Handles to decode in parallel.
type Handle struct {
	Path    string
	Header  Header
	Version Version
	Magic   int32
	Index   *IndexTable
	Strings *StringTable

	resources map[uint32]ResourceEntry
	reader    *Reader
	data      []byte
	mmapped   bool
}

// Open maps a cache file read-only and builds its tables.
// If mmap is unavailable, it falls back to reading the whole file.
func Open(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := st.Size()
	if size64 < HeaderSize || size64 > int64(int(^uint32(0)>>1)) {
		return nil, formatErr("%s: unusable size %d", filepath.Base(path), size64)
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		h, parseErr := parse(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		h.Path = path
		return h, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	h, err := parse(data, false)
	if err != nil {
		return nil, err
	}
	h.Path = path
	return h, nil
}

// OpenBytes builds a Handle over an in-memory file. The slice must not be
// modified while the Handle is in use.
func OpenBytes(data []byte) (*Handle, error) {
	return parse(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parse(data []byte, mmapped bool) (*Handle, error) {
	order, err := detectOrder(data)
	if err != nil {
		return nil, err
	}
	r := NewReader(data, order)

	hdr, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	version, ok := VersionForBuild(hdr.Build)
	if !ok {
		return nil, formatErr("unknown build %q", hdr.Build)
	}

	index, err := readIndexTable(r, hdr)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	strs, err := readStringTable(r, hdr)
	if err != nil {
		return nil, fmt.Errorf("read strings: %w", err)
	}
	resources, err := readResourceTable(r, hdr)
	if err != nil {
		return nil, fmt.Errorf("read resources: %w", err)
	}
	_ = r.SeekTo(0)

	return &Handle{
		Header:    hdr,
		Version:   version,
		Magic:     hdr.Magic(),
		Index:     index,
		Strings:   strs,
		resources: resources,
		reader:    r,
		data:      data,
		mmapped:   mmapped,
	}, nil
}

// Close releases the mapping. Records decoded earlier remain valid.
func (h *Handle) Close() error {
	if h == nil || h.data == nil {
		return nil
	}
	var err error
	if h.mmapped {
		err = unix.Munmap(h.data)
	}
	h.data = nil
	h.reader = nil
	h.mmapped = false
	return err
}

// Reader exposes the shared cursor to tag parsers.
func (h *Handle) Reader() *Reader { return h.reader }

func (h *Handle) IndexByID(id TagID) (IndexEntry, error) {
	return h.Index.ByID(id)
}

func (h *Handle) StringByID(id uint32) (string, error) {
	return h.Strings.ByID(id)
}

// Translate converts a stored pointer with this file's magic.
func (h *Handle) Translate(pointer int32) int64 {
	return Translate(pointer, h.Magic)
}

// Resource returns the decompressed payload for rawID.
func (h *Handle) Resource(rawID uint32) ([]byte, error) {
	e, ok := h.resources[rawID]
	if !ok {
		return nil, &UnknownTagError{ID: rawID, Table: "resource"}
	}
	if h.data == nil {
		return nil, fmt.Errorf("resource 0x%08X: handle is closed", rawID)
	}
	end := e.Offset + int64(e.StoredSize)
	if e.Offset < 0 || end > int64(len(h.data)) {
		return nil, &TruncatedInputError{Offset: e.Offset, Want: int(e.StoredSize), Size: int64(len(h.data))}
	}
	return decodeResource(e, h.data[e.Offset:end])
}

// Resources lists the resource table sorted by raw id.
func (h *Handle) Resources() []ResourceEntry {
	out := make([]ResourceEntry, 0, len(h.resources))
	for _, e := range h.resources {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b ResourceEntry) int { return cmp.Compare(a.RawID, b.RawID) })
	return out
}
