package meta

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// Kind is the type of a plugin field, named after its XML element.
type Kind string

const (
	KindStringID  Kind = "stringid"
	KindString    Kind = "string"
	KindInt8      Kind = "int8"
	KindUint8     Kind = "uint8"
	KindInt16     Kind = "int16"
	KindUint16    Kind = "uint16"
	KindInt32     Kind = "int32"
	KindUint32    Kind = "uint32"
	KindFloat32   Kind = "float32"
	KindTagRef    Kind = "tagref"
	KindReflexive Kind = "reflexive"
)

var knownKinds = map[Kind]bool{
	KindStringID: true, KindString: true,
	KindInt8: true, KindUint8: true,
	KindInt16: true, KindUint16: true,
	KindInt32: true, KindUint32: true,
	KindFloat32: true, KindTagRef: true,
	KindReflexive: true,
}

// Field is one entry of a plugin. Length is used by strings, Size (the
// element stride) and Fields by reflexives.
type Field struct {
	Kind   Kind
	Name   string
	Offset int64
	Length int
	Size   int
	Fields []Field
}

// Plugin describes the fields of one tag class.
type Plugin struct {
	Class  cache.ClassCode
	Fields []Field
}

type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ParsePlugin decodes a plugin document:
//
//	<plugin class="mode">
//	  <stringid name="name" offset="0"/>
//	  <reflexive name="regions" offset="0xC" size="16">
//	    <stringid name="name" offset="0"/>
//	  </reflexive>
//	</plugin>
func ParsePlugin(r io.Reader) (*Plugin, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("parse plugin: %w", err)
	}
	if root.XMLName.Local != "plugin" {
		return nil, fmt.Errorf("parse plugin: root element is <%s>, want <plugin>", root.XMLName.Local)
	}
	class, _ := root.attr("class")
	fields, err := parseFields(root.Nodes)
	if err != nil {
		return nil, fmt.Errorf("parse plugin %q: %w", class, err)
	}
	return &Plugin{Class: cache.ClassCode(class), Fields: fields}, nil
}

// LoadPlugin reads a plugin file.
func LoadPlugin(path string) (*Plugin, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParsePlugin(f)
}

func parseFields(nodes []xmlNode) ([]Field, error) {
	out := make([]Field, 0, len(nodes))
	for _, n := range nodes {
		kind := Kind(n.XMLName.Local)
		if kind == "comment" {
			continue
		}
		if !knownKinds[kind] {
			return nil, fmt.Errorf("unsupported field type <%s>", kind)
		}
		name, _ := n.attr("name")
		raw, ok := n.attr("offset")
		if !ok {
			return nil, fmt.Errorf("%s %q: missing offset", kind, name)
		}
		off, err := ParseOffset(raw)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, name, err)
		}
		f := Field{Kind: kind, Name: name, Offset: off}

		switch kind {
		case KindString:
			if f.Length, err = intAttr(n, "length"); err != nil {
				return nil, fmt.Errorf("%s %q: %w", kind, name, err)
			}
		case KindReflexive:
			if f.Size, err = intAttr(n, "size"); err != nil {
				return nil, fmt.Errorf("%s %q: %w", kind, name, err)
			}
			if f.Size == 0 {
				return nil, fmt.Errorf("%s %q: size must be positive", kind, name)
			}
			if f.Fields, err = parseFields(n.Nodes); err != nil {
				return nil, fmt.Errorf("%s %q: %w", kind, name, err)
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func intAttr(n xmlNode, name string) (int, error) {
	raw, ok := n.attr(name)
	if !ok {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("bad %s %q", name, raw)
	}
	return v, nil
}
