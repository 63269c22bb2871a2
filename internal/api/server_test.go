package api

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samcharles93/tagcache/internal/testutil"
	"github.com/samcharles93/tagcache/pkg/cache"
)

const (
	templateID = 0xE0000001
	shaderID   = 0xE0000002
	bitmapID   = 0xE0000003
)

func sampleMap() []byte {
	b := testutil.NewBuilder(binary.BigEndian, testutil.BuildHalo3)
	b.AddString("")
	baseMap := b.AddString("base_map")
	detailMap := b.AddString("detail_map")

	usages := b.Alloc(8)
	usages.PutUint32(0, baseMap).PutUint32(4, detailMap)
	tmpl := b.Alloc(84)
	tmpl.PutBlock(72, 2, usages)
	b.AddTag("rmt2", templateID, `shaders\shader_templates\_0_0_0`, tmpl)

	shader := b.Alloc(40)
	shader.PutUint32(12, templateID)
	b.AddTag("rmsh", shaderID, `objects\crate\shaders\crate`, shader)

	b.AddTag("bitm", bitmapID, `objects\crate\bitmaps\crate`, b.Alloc(16))
	return b.Bytes()
}

type testEnv struct {
	e       *echo.Echo
	metrics *Metrics
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	data := sampleMap()
	mustWriteFile(t, filepath.Join(dir, "alpha.map"), data)
	mustWriteFile(t, filepath.Join(dir, "beta.map"), data)
	mustWriteFile(t, filepath.Join(dir, "notes.txt"), []byte("x"))

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	provider := NewCachedHandleProvider(HandleProviderConfig{MapsPath: dir, OnOpen: metrics.ObserveOpen})
	t.Cleanup(func() { _ = provider.Close() })

	server := NewServer(ServerConfig{Provider: provider, Metrics: metrics, Gatherer: reg})
	e := echo.New()
	server.Register(e)
	return testEnv{e: e, metrics: metrics}
}

func (env testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestListMapsAndSummary(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/v1/maps")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: got %d body=%s", rec.Code, rec.Body.String())
	}
	list := decodeBody[listResponse[MapRef]](t, rec)
	if len(list.Data) != 2 || list.Data[0].ID != "alpha" || list.Data[1].ID != "beta" {
		t.Fatalf("unexpected maps: %+v", list.Data)
	}

	rec = env.get(t, "/v1/maps/alpha")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status: got %d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`"version":"halo3_retail"`, `"tags":3`, `"strings":3`, `"rmsh":1`, `"byte_order":"BigEndian"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("summary missing %s: %s", want, body)
		}
	}
	if got := promtest.ToFloat64(env.metrics.MapsOpened); got != 1 {
		t.Fatalf("maps opened = %v, want 1", got)
	}
}

func TestListAndGetTags(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/v1/maps/alpha/tags?class=rmsh")
	if rec.Code != http.StatusOK {
		t.Fatalf("tags status: got %d body=%s", rec.Code, rec.Body.String())
	}
	tags := decodeBody[listResponse[cache.IndexEntry]](t, rec)
	if len(tags.Data) != 1 || tags.Data[0].ID != shaderID || tags.Data[0].Filename != `objects\crate\shaders\crate` {
		t.Fatalf("unexpected tags: %+v", tags.Data)
	}
	if !strings.Contains(rec.Body.String(), `"id":"0xE0000002"`) {
		t.Fatalf("tag ids should render as hex: %s", rec.Body.String())
	}

	rec = env.get(t, "/v1/maps/alpha/tags?class=mode")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Fatalf("empty class: got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.get(t, "/v1/maps/alpha/tags/0xE0000001")
	if !strings.Contains(rec.Body.String(), `"supported":true`) {
		t.Fatalf("template should be supported: %s", rec.Body.String())
	}
	rec = env.get(t, "/v1/maps/alpha/tags/0xE0000003")
	if !strings.Contains(rec.Body.String(), `"supported":false`) {
		t.Fatalf("bitmap should not be supported: %s", rec.Body.String())
	}
}

func TestGetRecord(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/v1/maps/alpha/tags/0xE0000001/record")
	if rec.Code != http.StatusOK {
		t.Fatalf("record status: got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeBody[struct {
		Tag    cache.IndexEntry `json:"tag"`
		Record struct {
			Usages []string `json:"usages"`
		} `json:"record"`
	}](t, rec)
	if body.Tag.Class != "rmt2" {
		t.Fatalf("tag class = %q", body.Tag.Class)
	}
	if got := strings.Join(body.Record.Usages, ","); got != "base_map,detail_map" {
		t.Fatalf("usages = %q", got)
	}

	// Decoding twice gives the same answer.
	again := env.get(t, "/v1/maps/alpha/tags/0xE0000001/record")
	if again.Body.String() != rec.Body.String() {
		t.Fatalf("second decode differs:\n%s\n%s", rec.Body.String(), again.Body.String())
	}
	if got := promtest.ToFloat64(env.metrics.Decodes.WithLabelValues("rmt2", "ok")); got != 2 {
		t.Fatalf("ok decodes = %v, want 2", got)
	}
}

func TestGetRefs(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/v1/maps/alpha/tags/0xE0000002/refs")
	if rec.Code != http.StatusOK {
		t.Fatalf("refs status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"references":["0xE0000001"],"dangling":[]`) {
		t.Fatalf("unexpected refs: %s", rec.Body.String())
	}
}

func TestGetString(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/v1/maps/beta/strings/2")
	if rec.Code != http.StatusOK {
		t.Fatalf("string status: got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody[cache.StringEntry](t, rec)
	if got.ID != 2 || got.Text != "detail_map" {
		t.Fatalf("unexpected string: %+v", got)
	}
}

func TestErrorStatuses(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		path    string
		status  int
		errType string
	}{
		{"/v1/maps/missing", http.StatusNotFound, "not_found_error"},
		{"/v1/maps/alpha/tags/0xE00000FF", http.StatusNotFound, "not_found_error"},
		{"/v1/maps/alpha/tags/crate", http.StatusBadRequest, "invalid_request_error"},
		{"/v1/maps/alpha/tags/0xE0000003/record", http.StatusUnprocessableEntity, "unsupported_error"},
		{"/v1/maps/alpha/strings/99", http.StatusNotFound, "not_found_error"},
		{"/v1/maps/alpha/strings/x", http.StatusBadRequest, "invalid_request_error"},
	}
	for _, tc := range tests {
		rec := env.get(t, tc.path)
		if rec.Code != tc.status {
			t.Fatalf("%s: status %d, want %d body=%s", tc.path, rec.Code, tc.status, rec.Body.String())
		}
		body := decodeBody[struct {
			Error ResponseError `json:"error"`
		}](t, rec)
		if body.Error.Type != tc.errType {
			t.Fatalf("%s: error type %q, want %q", tc.path, body.Error.Type, tc.errType)
		}
		if body.Error.RequestID == "" {
			t.Fatalf("%s: error body is missing the request id", tc.path)
		}
	}

	rec := env.get(t, "/v1/maps/alpha/strings/x")
	body := decodeBody[struct {
		Error ResponseError `json:"error"`
	}](t, rec)
	if body.Error.Message != `bad string id "x"` {
		t.Fatalf("bad string id message = %q", body.Error.Message)
	}
	if got := promtest.ToFloat64(env.metrics.Decodes.WithLabelValues("bitm", "unsupported")); got != 1 {
		t.Fatalf("unsupported decodes = %v, want 1", got)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.get(t, "/v1/maps")
	if _, err := uuid.Parse(rec.Header().Get(echo.HeaderXRequestID)); err != nil {
		t.Fatalf("response request id is not a uuid: %q", rec.Header().Get(echo.HeaderXRequestID))
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/v1/maps", nil)
	req.Header.Set(echo.HeaderXRequestID, id)
	rec = httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != id {
		t.Fatalf("request id = %q, want %q", got, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/maps", nil)
	req.Header.Set(echo.HeaderXRequestID, "not-a-uuid")
	rec = httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got == "not-a-uuid" || got == "" {
		t.Fatalf("invalid client id should be replaced, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.get(t, "/v1/maps/alpha/tags/0xE0000001/record")
	rec := env.get(t, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: got %d", rec.Code)
	}
	for _, want := range []string{
		`tagcache_decodes_total{class="rmt2",result="ok"} 1`,
		`tagcache_decode_duration_seconds_count{class="rmt2"} 1`,
		`tagcache_maps_opened_total 1`,
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("metrics missing %q:\n%s", want, rec.Body.String())
		}
	}
}

func mustWriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
