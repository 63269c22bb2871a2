package definitions

import (
	"fmt"

	"github.com/samcharles93/tagcache/pkg/cache"
)

// Hop names used in *cache.ResolutionError.
const (
	HopScenario      = "scenario"
	HopBSPIndex      = "bsp-index"
	HopLevelData     = "level-data"
	HopLevelGeometry = "level-geometry"
	HopSection       = "section"
)

const (
	classScenario      cache.ClassCode = "scnr"
	classLevelData     cache.ClassCode = "sldt"
	classLevelGeometry cache.ClassCode = "lbsp"

	scenarioBSPs          = 20
	scenarioBSPStride     = 108
	scenarioBSPID         = 12
	scenarioLevelData     = 1852 + 12
	levelDataGeometry     = 4
	levelDataStride       = 16
	levelDataGeometryID   = 12
	levelGeometrySections = 312
	levelGeometryRawID    = 428
)

// Resolution is where a structure bsp's section data actually lives. In
// builds that split a level across several tags, the bsp only carries the
// section count; the address and raw geometry id come from the level
// geometry tag found through the scenario.
type Resolution struct {
	Scenario       cache.TagID `json:"scenario"`
	BSPIndex       int         `json:"bsp_index"`
	LevelData      cache.TagID `json:"level_data"`
	LevelGeometry  cache.TagID `json:"level_geometry"`
	SectionAddress int64       `json:"section_address"`
	GeometryRawID  uint32      `json:"geometry_raw_id"`
}

// ResolveLevelGeometry follows scenario -> bsp index -> level data -> level
// geometry for the bsp stored at bspOffset. The handle's cursor is restored.
// The first scenario in the index is used.
func ResolveLevelGeometry(h *cache.Handle, bspOffset int64) (Resolution, error) {
	var res Resolution
	rd := h.Reader()
	if rd == nil {
		return res, &cache.ResolutionError{Hop: HopScenario, Err: fmt.Errorf("handle is closed")}
	}
	err := rd.Preserve(func() error {
		scnr, err := resolveScenario(h)
		if err != nil {
			return err
		}
		res.Scenario = scnr.ID

		if res.BSPIndex, err = resolveBSPIndex(h, scnr, bspOffset); err != nil {
			return err
		}

		sldt, err := resolveTagRef(h, scnr.Offset+scenarioLevelData, classLevelData, HopLevelData)
		if err != nil {
			return err
		}
		res.LevelData = sldt.ID

		lbsp, err := resolveLevelGeometry(h, sldt, res.BSPIndex)
		if err != nil {
			return err
		}
		res.LevelGeometry = lbsp.ID

		f := newFields(h, lbsp.Offset)
		ptr := f.i32(levelGeometrySections)
		res.GeometryRawID = f.u32(levelGeometryRawID)
		if f.err != nil {
			return &cache.ResolutionError{Hop: HopSection, Err: f.err}
		}
		res.SectionAddress = h.Translate(ptr)
		return nil
	})
	return res, err
}

func resolveScenario(h *cache.Handle) (cache.IndexEntry, error) {
	scnr, ok := h.Index.First(classScenario)
	if !ok {
		return scnr, &cache.ResolutionError{Hop: HopScenario, Err: fmt.Errorf("no %q tag", string(classScenario))}
	}
	return scnr, nil
}

func resolveBSPIndex(h *cache.Handle, scnr cache.IndexEntry, bspOffset int64) (int, error) {
	f := newFields(h, scnr.Offset)
	ids := readBlock(f, scenarioBSPs, scenarioBSPStride, func(e *fields) cache.TagID {
		return cache.TagID(e.u32(scenarioBSPID))
	})
	if f.err != nil {
		return 0, &cache.ResolutionError{Hop: HopBSPIndex, Err: f.err}
	}
	for i, id := range ids {
		if id.IsNull() {
			continue
		}
		e, err := h.IndexByID(id)
		if err != nil {
			return 0, &cache.ResolutionError{Hop: HopBSPIndex, Err: err}
		}
		if e.Offset == bspOffset {
			return i, nil
		}
	}
	return 0, &cache.ResolutionError{
		Hop: HopBSPIndex,
		Err: fmt.Errorf("bsp at 0x%X is not listed by scenario %s", bspOffset, scnr.ID),
	}
}

func resolveTagRef(h *cache.Handle, at int64, class cache.ClassCode, hop string) (cache.IndexEntry, error) {
	f := newFields(h, at)
	id := cache.TagID(f.u32(0))
	if f.err != nil {
		return cache.IndexEntry{}, &cache.ResolutionError{Hop: hop, Err: f.err}
	}
	return expectClass(h, id, class, hop)
}

func resolveLevelGeometry(h *cache.Handle, sldt cache.IndexEntry, bspIndex int) (cache.IndexEntry, error) {
	f := newFields(h, sldt.Offset)
	hdr := f.blockHeader(levelDataGeometry)
	if f.err != nil {
		return cache.IndexEntry{}, &cache.ResolutionError{Hop: HopLevelGeometry, Err: f.err}
	}
	if bspIndex >= int(hdr.Count) {
		return cache.IndexEntry{}, &cache.ResolutionError{
			Hop: HopLevelGeometry,
			Err: fmt.Errorf("bsp index %d out of range, level data lists %d", bspIndex, hdr.Count),
		}
	}
	elem := &fields{h: h, r: h.Reader(), base: hdr.ElementAddress(bspIndex, levelDataStride)}
	id := cache.TagID(elem.u32(levelDataGeometryID))
	if elem.err != nil {
		return cache.IndexEntry{}, &cache.ResolutionError{Hop: HopLevelGeometry, Err: elem.err}
	}
	return expectClass(h, id, classLevelGeometry, HopLevelGeometry)
}

func expectClass(h *cache.Handle, id cache.TagID, class cache.ClassCode, hop string) (cache.IndexEntry, error) {
	e, err := h.IndexByID(id)
	if err != nil {
		return e, &cache.ResolutionError{Hop: hop, Err: err}
	}
	if e.Class != class {
		return e, &cache.ResolutionError{
			Hop: hop,
			Err: fmt.Errorf("%w: %s is %q, want %q", cache.ErrFormat, id, string(e.Class), string(class)),
		}
	}
	return e, nil
}
