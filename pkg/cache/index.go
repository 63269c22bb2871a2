package cache

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// IndexEntry is one tag in the file's directory.
type IndexEntry struct {
	ID       TagID     `json:"id"`
	Class    ClassCode `json:"class"`
	Offset   int64     `json:"offset"`
	Filename string    `json:"filename"`
}

// IndexTable maps tag ids to entries. It is immutable once built.
type IndexTable struct {
	entries []IndexEntry
	byID    map[TagID]int
	ids     *roaring.Bitmap
}

func newIndexTable(entries []IndexEntry) (*IndexTable, error) {
	t := &IndexTable{
		entries: entries,
		byID:    make(map[TagID]int, len(entries)),
		ids:     roaring.New(),
	}
	for i, e := range entries {
		if _, dup := t.byID[e.ID]; dup {
			return nil, formatErr("duplicate tag id %s", e.ID)
		}
		t.byID[e.ID] = i
		t.ids.Add(uint32(e.ID))
	}
	t.ids.RunOptimize()
	return t, nil
}

// ByID returns the entry for id or an *UnknownTagError.
func (t *IndexTable) ByID(id TagID) (IndexEntry, error) {
	i, ok := t.byID[id]
	if !ok {
		return IndexEntry{}, &UnknownTagError{ID: uint32(id), Table: "tag"}
	}
	return t.entries[i], nil
}

func (t *IndexTable) Len() int { return len(t.entries) }

// Entries returns a copy of the directory in file order.
func (t *IndexTable) Entries() []IndexEntry {
	out := make([]IndexEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *IndexTable) ByClass(class ClassCode) []IndexEntry {
	var out []IndexEntry
	for _, e := range t.entries {
		if e.Class == class {
			out = append(out, e)
		}
	}
	return out
}

// First returns the first entry of class in file order.
func (t *IndexTable) First(class ClassCode) (IndexEntry, bool) {
	for _, e := range t.entries {
		if e.Class == class {
			return e, true
		}
	}
	return IndexEntry{}, false
}

// IDs returns a copy of the set of tag ids present in the file.
func (t *IndexTable) IDs() *roaring.Bitmap {
	return t.ids.Clone()
}

func readIndexTable(r *Reader, h Header) (*IndexTable, error) {
	magic := h.Magic()
	entries := make([]IndexEntry, 0, h.IndexCount)
	for i := range int(h.IndexCount) {
		if err := r.SeekTo(int64(h.IndexOffset) + int64(i)*IndexEntrySize); err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		class, err := r.ReadClassCode()
		if err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		id, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		addr, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("index entry %d: %w", i, err)
		}
		name, err := readTableString(r, int64(h.FilenameIndexOffset), int64(h.FilenameDataOffset), i)
		if err != nil {
			return nil, fmt.Errorf("filename %d: %w", i, err)
		}
		entries = append(entries, IndexEntry{
			ID:       TagID(id),
			Class:    class,
			Offset:   Translate(addr, magic),
			Filename: name,
		})
	}
	return newIndexTable(entries)
}

// readTableString reads entry i of an offset-table + data-region string list.
func readTableString(r *Reader, indexOffset, dataOffset int64, i int) (string, error) {
	if err := r.SeekTo(indexOffset + int64(i)*4); err != nil {
		return "", err
	}
	rel, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if rel < 0 {
		return "", formatErr("negative string offset %d", rel)
	}
	if err := r.SeekTo(dataOffset + int64(rel)); err != nil {
		return "", err
	}
	return r.ReadNullTerminatedString(maxStringLength)
}
