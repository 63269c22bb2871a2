package cache

import "fmt"

// stringIndexMask selects the table index from a string id; the high byte is
// a namespace tag that lookups ignore.
const stringIndexMask = 0x00FFFFFF

// StringEntry is one value of the string table.
type StringEntry struct {
	ID   uint32 `json:"id"`
	Text string `json:"text"`
}

// StringTable maps string ids to text. It is immutable once built.
type StringTable struct {
	values []string
}

func (t *StringTable) ByID(id uint32) (string, error) {
	i := int(id & stringIndexMask)
	if i >= len(t.values) {
		return "", &UnknownTagError{ID: id, Table: "string"}
	}
	return t.values[i], nil
}

func (t *StringTable) Len() int { return len(t.values) }

// Entries returns the table with ids equal to their index.
func (t *StringTable) Entries() []StringEntry {
	out := make([]StringEntry, len(t.values))
	for i, s := range t.values {
		out[i] = StringEntry{ID: uint32(i), Text: s}
	}
	return out
}

func readStringTable(r *Reader, h Header) (*StringTable, error) {
	values := make([]string, 0, h.StringCount)
	for i := range int(h.StringCount) {
		s, err := readTableString(r, int64(h.StringIndexOffset), int64(h.StringDataOffset), i)
		if err != nil {
			return nil, fmt.Errorf("string %d: %w", i, err)
		}
		values = append(values, s)
	}
	return &StringTable{values: values}, nil
}
