package definitions

import "github.com/samcharles93/tagcache/pkg/cache"

// StructureBSP is a decoded "sbsp" tag: the static geometry of one level.
type StructureBSP struct {
	ID                cache.TagID        `json:"id"`
	XBounds           Bounds             `json:"x"`
	YBounds           Bounds             `json:"y"`
	ZBounds           Bounds             `json:"z"`
	Clusters          []Cluster          `json:"clusters"`
	Shaders           []ShaderRef        `json:"shaders"`
	GeometryInstances []GeometryInstance `json:"geometry_instances"`
	Sections          []Section          `json:"sections"`
	BoundingBoxes     []BoundingBox      `json:"bounding_boxes"`
	RawID1            uint32             `json:"raw_id1"`
	RawID2            uint32             `json:"raw_id2"`
	RawID3            uint32             `json:"raw_id3"`

	// GeometryRawID is the resource holding the section vertex data.
	GeometryRawID uint32 `json:"geometry_raw_id"`

	// Resolution is set when the sections were located through the scenario.
	Resolution *Resolution `json:"resolution,omitempty"`
}

func (*StructureBSP) Class() cache.ClassCode { return ClassStructureBSP }

type Cluster struct {
	XBounds      Bounds `json:"x"`
	YBounds      Bounds `json:"y"`
	ZBounds      Bounds `json:"z"`
	SectionIndex int16  `json:"section_index"`
}

// GeometryInstance places a shared section in the level.
type GeometryInstance struct {
	Scale        float32       `json:"scale"`
	Transform    [4][3]float32 `json:"transform"`
	SectionIndex int16         `json:"section_index"`
	Name         string        `json:"name"`
}

func decodeBSP(l bspLayout) DecodeFunc {
	return func(h *cache.Handle, entry cache.IndexEntry) (Record, error) {
		b := &StructureBSP{ID: entry.ID}

		if l.resolvesSections {
			res, err := ResolveLevelGeometry(h, entry.Offset)
			if err != nil {
				return nil, err
			}
			b.Resolution = &res
			b.GeometryRawID = res.GeometryRawID
		}

		f := newFields(h, entry.Offset)
		b.XBounds = f.bounds(l.bounds)
		b.YBounds = f.bounds(l.bounds + 8)
		b.ZBounds = f.bounds(l.bounds + 16)
		b.Clusters = readBlock(f, l.clusters, l.clusterStride, func(e *fields) Cluster {
			return Cluster{
				XBounds:      e.bounds(0),
				YBounds:      e.bounds(8),
				ZBounds:      e.bounds(16),
				SectionIndex: e.i16(l.clusterSection),
			}
		})
		b.Shaders = readShaderRefs(f, l.shaders, l.shaderStride, l.shaderID)
		b.GeometryInstances = readBlock(f, l.instances, l.instanceStride, func(e *fields) GeometryInstance {
			gi := GeometryInstance{Scale: e.f32(0)}
			for row := range gi.Transform {
				for col := range gi.Transform[row] {
					gi.Transform[row][col] = e.f32(int64(4 + 4*(row*3+col)))
				}
			}
			gi.SectionIndex = e.i16(l.instanceSection)
			gi.Name = e.stringID(l.instanceName)
			return gi
		})
		b.RawID1 = f.u32(l.rawID1)

		if b.Resolution != nil {
			// count from the bsp, elements from the level geometry tag
			hdr := f.blockHeader(l.sections)
			hdr.Address = b.Resolution.SectionAddress
			b.Sections = readElements(f, l.sections, hdr, l.sectionStride, func(e *fields) Section {
				return parseSection(e, l.section)
			})
		} else {
			b.Sections = readSections(f, l.sections, l.sectionStride, l.section)
		}

		b.BoundingBoxes = readBoundingBoxes(f, l.boundingBoxes, l.section.boundingStride)
		b.RawID2 = f.u32(l.rawID2)
		b.RawID3 = f.u32(l.rawID3)
		if b.Resolution == nil {
			b.GeometryRawID = b.RawID3
		}
		if f.err != nil {
			return nil, f.err
		}
		return b, nil
	}
}
