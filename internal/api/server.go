package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/tagcache/internal/logger"
	"github.com/samcharles93/tagcache/pkg/cache"
	"github.com/samcharles93/tagcache/pkg/definitions"
)

type ServerConfig struct {
	Provider HandleProvider
	// Registry defaults to definitions.Default.
	Registry *definitions.Registry
	Metrics  *Metrics
	// Gatherer, when set, is served on /metrics.
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

type Server struct {
	provider HandleProvider
	registry *definitions.Registry
	metrics  *Metrics
	gatherer prometheus.Gatherer
	log      logger.Logger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Registry == nil {
		cfg.Registry = definitions.Default
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &Server{
		provider: cfg.Provider,
		registry: cfg.Registry,
		metrics:  cfg.Metrics,
		gatherer: cfg.Gatherer,
		log:      cfg.Logger,
	}
}

func (s *Server) Register(e *echo.Echo) {
	g := e.Group("/v1", requestContext(s.log))
	g.GET("/maps", s.handleListMaps)
	g.GET("/maps/:map", s.handleGetMap)
	g.GET("/maps/:map/tags", s.handleListTags)
	g.GET("/maps/:map/tags/:id", s.handleGetTag)
	g.GET("/maps/:map/tags/:id/record", s.handleGetRecord)
	g.GET("/maps/:map/tags/:id/refs", s.handleGetRefs)
	g.GET("/maps/:map/strings/:id", s.handleGetString)

	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

type listResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

func newList[T any](data []T) listResponse[T] {
	if data == nil {
		data = []T{}
	}
	return listResponse[T]{Object: "list", Data: data}
}

type MapRef struct {
	ID string `json:"id"`
}

type MapSummary struct {
	ID        string                  `json:"id"`
	Build     string                  `json:"build"`
	Version   cache.Version           `json:"version"`
	ByteOrder string                  `json:"byte_order"`
	Tags      int                     `json:"tags"`
	Strings   int                     `json:"strings"`
	Resources int                     `json:"resources"`
	Classes   map[cache.ClassCode]int `json:"classes"`
}

type TagResponse struct {
	cache.IndexEntry
	Supported bool `json:"supported"`
}

type RecordResponse struct {
	Tag       cache.IndexEntry           `json:"tag"`
	Record    definitions.Record         `json:"record"`
	Materials []definitions.MaterialSlot `json:"materials,omitempty"`
}

type RefsResponse struct {
	Tag        cache.IndexEntry `json:"tag"`
	References []cache.TagID    `json:"references"`
	Dangling   []cache.TagID    `json:"dangling"`
}

func (s *Server) handleListMaps(c *echo.Context) error {
	names, err := s.provider.ListMaps()
	if err != nil {
		return writeFailure(c, err)
	}
	refs := make([]MapRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, MapRef{ID: name})
	}
	return render(c, http.StatusOK, newList(refs))
}

func (s *Server) handleGetMap(c *echo.Context) error {
	name := c.Param("map")
	var out MapSummary
	err := s.provider.WithHandle(c.Request().Context(), name, func(h *cache.Handle) error {
		out = MapSummary{
			ID:        name,
			Build:     h.Header.Build,
			Version:   h.Version,
			ByteOrder: h.Reader().Order().String(),
			Tags:      h.Index.Len(),
			Strings:   h.Strings.Len(),
			Resources: len(h.Resources()),
			Classes:   make(map[cache.ClassCode]int),
		}
		for _, e := range h.Index.Entries() {
			out.Classes[e.Class]++
		}
		return nil
	})
	if err != nil {
		return writeFailure(c, err)
	}
	return render(c, http.StatusOK, out)
}

func (s *Server) handleListTags(c *echo.Context) error {
	class := cache.ClassCode(strings.TrimSpace(c.QueryParam("class")))
	var entries []cache.IndexEntry
	err := s.provider.WithHandle(c.Request().Context(), c.Param("map"), func(h *cache.Handle) error {
		if class != "" {
			entries = h.Index.ByClass(class)
		} else {
			entries = h.Index.Entries()
		}
		return nil
	})
	if err != nil {
		return writeFailure(c, err)
	}
	return render(c, http.StatusOK, newList(entries))
}

func (s *Server) handleGetTag(c *echo.Context) error {
	id, err := tagIDParam(c)
	if err != nil {
		return writeFailure(c, err)
	}
	var out TagResponse
	err = s.provider.WithHandle(c.Request().Context(), c.Param("map"), func(h *cache.Handle) error {
		e, err := h.IndexByID(id)
		if err != nil {
			return err
		}
		out = TagResponse{IndexEntry: e, Supported: s.registry.Supports(e.Class, h.Version)}
		return nil
	})
	if err != nil {
		return writeFailure(c, err)
	}
	return render(c, http.StatusOK, out)
}

func (s *Server) handleGetRecord(c *echo.Context) error {
	id, err := tagIDParam(c)
	if err != nil {
		return writeFailure(c, err)
	}
	withMaterials, _ := strconv.ParseBool(c.QueryParam("materials"))

	var out RecordResponse
	err = s.provider.WithHandle(c.Request().Context(), c.Param("map"), func(h *cache.Handle) error {
		rec, entry, err := s.decode(h, id)
		if err != nil {
			return err
		}
		out = RecordResponse{Tag: entry, Record: rec}
		if withMaterials {
			switch r := rec.(type) {
			case *definitions.RenderModel:
				out.Materials = s.registry.ModelMaterials(h, r)
			case *definitions.StructureBSP:
				out.Materials = s.registry.BSPMaterials(h, r)
			}
		}
		return nil
	})
	if err != nil {
		return writeFailure(c, err)
	}
	return render(c, http.StatusOK, out)
}

func (s *Server) handleGetRefs(c *echo.Context) error {
	id, err := tagIDParam(c)
	if err != nil {
		return writeFailure(c, err)
	}
	var out RefsResponse
	err = s.provider.WithHandle(c.Request().Context(), c.Param("map"), func(h *cache.Handle) error {
		rec, entry, err := s.decode(h, id)
		if err != nil {
			return err
		}
		refs := definitions.References(rec)
		out = RefsResponse{
			Tag:        entry,
			References: toTagIDs(refs.ToArray()),
			Dangling:   toTagIDs(definitions.Dangling(h, refs).ToArray()),
		}
		return nil
	})
	if err != nil {
		return writeFailure(c, err)
	}
	return render(c, http.StatusOK, out)
}

func (s *Server) handleGetString(c *echo.Context) error {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return writeBadRequest(c, "bad string id "+strconv.Quote(raw))
	}
	var out cache.StringEntry
	err = s.provider.WithHandle(c.Request().Context(), c.Param("map"), func(h *cache.Handle) error {
		text, err := h.StringByID(uint32(id))
		out = cache.StringEntry{ID: uint32(id), Text: text}
		return err
	})
	if err != nil {
		return writeFailure(c, err)
	}
	return render(c, http.StatusOK, out)
}

func (s *Server) decode(h *cache.Handle, id cache.TagID) (definitions.Record, cache.IndexEntry, error) {
	e, err := h.IndexByID(id)
	if err != nil {
		return nil, e, err
	}
	start := time.Now()
	rec, err := s.registry.Decode(h, e)
	s.metrics.ObserveDecode(e.Class, time.Since(start), err)
	if err != nil {
		s.log.Debug("decode failed", "map", h.Path, "tag", e.ID.String(), "class", string(e.Class), "err", err)
	}
	return rec, e, err
}

func tagIDParam(c *echo.Context) (cache.TagID, error) {
	id, err := cache.ParseTagID(c.Param("id"))
	if err != nil {
		return cache.NullTag, newInvalidRequest(err.Error())
	}
	return id, nil
}

func toTagIDs(ids []uint32) []cache.TagID {
	out := make([]cache.TagID, len(ids))
	for i, id := range ids {
		out[i] = cache.TagID(id)
	}
	return out
}
