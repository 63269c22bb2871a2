package meta

import (
	"fmt"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// Value is one field read from a tag. Offset is absolute. Reflexives carry
// one value list per element in Entries.
type Value struct {
	Name    string    `json:"name"`
	Kind    Kind      `json:"kind"`
	Offset  int64     `json:"offset"`
	Value   any       `json:"value,omitempty"`
	Entries [][]Value `json:"entries,omitempty"`
}

// TagRef is the value of a tagref field. Filename is empty for null refs.
type TagRef struct {
	Class    cache.ClassCode `json:"class"`
	ID       cache.TagID     `json:"id"`
	Filename string          `json:"filename,omitempty"`
}

// Read reads the plugin's fields from the tag at entry. The handle's cursor
// is restored afterwards.
func Read(h *cache.Handle, entry cache.IndexEntry, p *Plugin) ([]Value, error) {
	if p.Class != "" && p.Class != entry.Class {
		return nil, fmt.Errorf("plugin is for %q, tag %s is %q", string(p.Class), entry.ID, string(entry.Class))
	}
	r := h.Reader()
	if r == nil {
		return nil, fmt.Errorf("read %s: handle is closed", entry.ID)
	}
	var out []Value
	err := r.Preserve(func() error {
		var err error
		out, err = readFields(h, r, entry.Offset, p.Fields)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", string(entry.Class), entry.ID, err)
	}
	return out, nil
}

func readFields(h *cache.Handle, r *cache.Reader, base int64, fields []Field) ([]Value, error) {
	out := make([]Value, 0, len(fields))
	for _, f := range fields {
		v, err := readField(h, r, base, f)
		if err != nil {
			return nil, fmt.Errorf("%s %q at +%d: %w", f.Kind, f.Name, f.Offset, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func readField(h *cache.Handle, r *cache.Reader, base int64, f Field) (Value, error) {
	v := Value{Name: f.Name, Kind: f.Kind, Offset: base + f.Offset}
	if err := r.SeekTo(v.Offset); err != nil {
		return v, err
	}

	var err error
	switch f.Kind {
	case KindStringID:
		var id uint32
		if id, err = r.ReadUint32(); err == nil {
			v.Value, err = h.StringByID(id)
		}
	case KindString:
		v.Value, err = r.ReadNullTerminatedString(f.Length)
	case KindInt8:
		v.Value, err = r.ReadInt8()
	case KindUint8:
		v.Value, err = r.ReadUint8()
	case KindInt16:
		v.Value, err = r.ReadInt16()
	case KindUint16:
		v.Value, err = r.ReadUint16()
	case KindInt32:
		v.Value, err = r.ReadInt32()
	case KindUint32:
		v.Value, err = r.ReadUint32()
	case KindFloat32:
		v.Value, err = r.ReadFloat32()
	case KindTagRef:
		v.Value, err = readTagRef(h, r)
	case KindReflexive:
		v.Entries, err = cache.ReadBlock(r, h.Magic, f.Size, func(r *cache.Reader, _ int) ([]Value, error) {
			return readFields(h, r, r.Position(), f.Fields)
		})
	default:
		err = fmt.Errorf("unsupported field type %q", f.Kind)
	}
	return v, err
}

func readTagRef(h *cache.Handle, r *cache.Reader) (TagRef, error) {
	class, err := r.ReadClassCode()
	if err != nil {
		return TagRef{}, err
	}
	if err := r.Skip(8); err != nil {
		return TagRef{}, err
	}
	id, err := r.ReadUint32()
	if err != nil {
		return TagRef{}, err
	}
	ref := TagRef{Class: class, ID: cache.TagID(id)}
	if ref.ID.IsNull() {
		return ref, nil
	}
	e, err := h.IndexByID(ref.ID)
	if err != nil {
		return ref, err
	}
	ref.Class, ref.Filename = e.Class, e.Filename
	return ref, nil
}
