package definitions

import "github.com/samcharles93/tagcache/pkg/cache"

// Field offsets per class and version. Offsets are relative to the tag (or
// element) start; block offsets point at the {count, pointer} header.
// Supporting another build of a known class means adding a row here.

type sectionLayout struct {
	submeshes      int64
	submeshStride  int
	facesIndex     int64
	submeshFace    int64
	submeshCount   int64
	submeshVerts   int64
	wideSubmeshes  bool // face index and count are i32 instead of u16
	submeshShader  int64
	boundingStride int
}

type modelLayout struct {
	min, max cache.Version

	name              int64
	regions           int64
	regionStride      int
	permutations      int64
	permutationStride int
	permutationName   int64
	permutationSect   int64
	instancedGeometry int64
	shaders           int64
	shaderStride      int
	shaderID          int64
	sections          int64
	sectionStride     int
	boundingBoxes     int64
	rawID             int64
	section           sectionLayout
}

var (
	halo3Sections = sectionLayout{
		submeshStride:  16,
		facesIndex:     40,
		submeshFace:    4,
		submeshCount:   6,
		submeshVerts:   12,
		boundingStride: 44,
	}
	reachSections = sectionLayout{
		submeshStride:  24,
		facesIndex:     56,
		submeshFace:    4,
		submeshCount:   8,
		submeshVerts:   16,
		wideSubmeshes:  true,
		boundingStride: 52,
	}
)

var modelLayouts = []modelLayout{
	{
		min:               cache.Halo3Retail,
		max:               cache.Halo3ODST,
		regions:           12,
		regionStride:      16,
		permutations:      4,
		permutationStride: 24,
		permutationSect:   4,
		instancedGeometry: 28,
		shaders:           72,
		shaderStride:      36,
		shaderID:          12,
		sections:          104,
		sectionStride:     76,
		boundingBoxes:     116,
		rawID:             224,
		section:           halo3Sections,
	},
	{
		min:               cache.HaloReachRetail,
		max:               cache.HaloReachRetail,
		regions:           12,
		regionStride:      16,
		permutations:      4,
		permutationStride: 24,
		permutationSect:   4,
		instancedGeometry: 28,
		shaders:           88,
		shaderStride:      44,
		shaderID:          12,
		sections:          116,
		sectionStride:     92,
		boundingBoxes:     128,
		rawID:             236,
		section:           reachSections,
	},
	{
		min:               cache.Halo4Retail,
		max:               cache.Halo4Retail,
		regions:           12,
		regionStride:      16,
		permutations:      4,
		permutationStride: 28,
		permutationSect:   4,
		instancedGeometry: 28,
		shaders:           100,
		shaderStride:      44,
		shaderID:          12,
		sections:          128,
		sectionStride:     112,
		boundingBoxes:     140,
		rawID:             252,
		section:           reachSections,
	},
}

type bspLayout struct {
	min, max cache.Version

	bounds           int64
	clusters         int64
	clusterStride    int
	clusterSection   int64
	shaders          int64
	shaderStride     int
	shaderID         int64
	instances        int64
	instanceStride   int
	instanceSection  int64
	instanceName     int64
	rawID1           int64
	sections         int64
	sectionStride    int
	boundingBoxes    int64
	rawID2           int64
	rawID3           int64
	resolvesSections bool // section address and geometry raw id come from the level geometry tag
	section          sectionLayout
}

var bspLayouts = []bspLayout{
	{
		min:             cache.Halo3Retail,
		max:             cache.Halo3Retail,
		bounds:          60,
		clusters:        180,
		clusterStride:   236,
		clusterSection:  172,
		shaders:         192,
		shaderStride:    36,
		shaderID:        12,
		instances:       432,
		instanceStride:  120,
		instanceSection: 52,
		instanceName:    84,
		rawID1:          580,
		sections:        740,
		sectionStride:   76,
		boundingBoxes:   752,
		rawID2:          860,
		rawID3:          892,
		section:         halo3Sections,
	},
	{
		min:              cache.Halo3ODST,
		max:              cache.Halo3ODST,
		bounds:           64,
		clusters:         184,
		clusterStride:    220,
		clusterSection:   156,
		shaders:          196,
		shaderStride:     36,
		shaderID:         12,
		instances:        436,
		instanceStride:   120,
		instanceSection:  52,
		instanceName:     84,
		rawID1:           584,
		sections:         744,
		sectionStride:    76,
		boundingBoxes:    756,
		rawID2:           864,
		rawID3:           896,
		resolvesSections: true,
		section:          halo3Sections,
	},
}

// shaderClasses share one render method layout.
var shaderClasses = []cache.ClassCode{"rmsh", "rmtr", "rmhg", "rmfl", "rmcs", "rmss", "rmd", "rmw", "rmgl"}

type shaderLayout struct {
	min, max cache.Version

	baseShader     int64
	properties     int64
	propertyStride int
	template       int64
	maps           int64
	mapStride      int
	mapBitmap      int64
	mapType        int64
	wideMapType    bool // type is i16 instead of u8
	mapTiling      int64
	tilings        int64
	tilingStride   int
}

var shaderLayouts = []shaderLayout{
	{
		min:            cache.Halo3Retail,
		max:            cache.Halo3ODST,
		baseShader:     12,
		properties:     28,
		propertyStride: 132,
		template:       12,
		maps:           16,
		mapStride:      20,
		mapBitmap:      12,
		mapType:        16,
		mapTiling:      17,
		tilings:        40,
		tilingStride:   16,
	},
	{
		min:            cache.HaloReachRetail,
		max:            cache.HaloReachRetail,
		baseShader:     12,
		properties:     28,
		propertyStride: 148,
		template:       12,
		maps:           16,
		mapStride:      24,
		mapBitmap:      12,
		mapType:        16,
		wideMapType:    true,
		mapTiling:      19,
		tilings:        40,
		tilingStride:   16,
	},
}

type templateLayout struct {
	min, max cache.Version
	usages   int64
}

var templateLayouts = []templateLayout{
	{min: cache.Halo3Retail, max: cache.Halo3ODST, usages: 72},
	{min: cache.HaloReachRetail, max: cache.HaloReachRetail, usages: 84},
}

// Halo 4 materials are read back to back; these are the consumed sizes.
const (
	materialBaseShader   = 12
	materialProperties   = 28
	materialSize         = 68
	materialPropertySize = 160
	materialMapsBlock    = 0
	materialTilingsBlock = 12
	materialMapSize      = 24
	materialMapBitmap    = 12
	materialMapType      = 16
	materialMapTiling    = 19
	materialTilingSize   = 16
)
