package testutil

import (
	"bytes"
	"encoding/binary"
)

// GeometrySection is the test-side form of one section of a geometry resource.
type GeometrySection struct {
	Normals     bool
	Positions   [][3]float32
	TexCoords   [][2]float32
	Normal      [][3]float32
	IndexFormat int32
	Indices     []uint16
}

// EncodeGeometry writes a geometry resource payload in order.
func EncodeGeometry(order binary.ByteOrder, sections []GeometrySection) []byte {
	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, order, v) }

	w(int32(len(sections)))
	for _, s := range sections {
		format := int32(0)
		if s.Normals {
			format = 1
		}
		w(format)
		w(int32(len(s.Positions)))
		for i, p := range s.Positions {
			w(p)
			var tex [2]float32
			if i < len(s.TexCoords) {
				tex = s.TexCoords[i]
			}
			w(tex)
			if s.Normals {
				var n [3]float32
				if i < len(s.Normal) {
					n = s.Normal[i]
				}
				w(n)
			}
		}
		w(s.IndexFormat)
		w(int32(len(s.Indices)))
		w(s.Indices)
	}
	return buf.Bytes()
}
