package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samcharles93/tagcache/internal/logger"
	"github.com/samcharles93/tagcache/pkg/cache"
)

func TestLoadMeshQuad(t *testing.T) {
	t.Parallel()

	h, err := cache.OpenBytes(quadMap(1))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer func() { _ = h.Close() }()

	ctx := logger.WithContext(context.Background(), logger.Discard())
	data, err := loadMesh(ctx, h, modelID)
	if err != nil {
		t.Fatalf("loadMesh: %v", err)
	}
	if len(data.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(data.Parts))
	}
	mesh := data.Parts[0].Mesh
	if len(mesh.Vertices) != 4 {
		t.Fatalf("vertices = %d, want 4", len(mesh.Vertices))
	}
	want := [][3]uint16{{0, 1, 2}, {1, 3, 2}}
	if len(mesh.Triangles) != len(want) {
		t.Fatalf("triangles = %v, want %v", mesh.Triangles, want)
	}
	for i := range want {
		if mesh.Triangles[i] != want[i] {
			t.Fatalf("triangle %d = %v, want %v", i, mesh.Triangles[i], want[i])
		}
	}
	if len(data.Materials) != 1 || !data.Materials[0].Used || data.Materials[0].Diffuse != nil {
		t.Fatalf("unexpected materials: %+v", data.Materials)
	}
	if got := materialName(data, 0); got != "shader_0" {
		t.Fatalf("material name = %q", got)
	}
}

func TestLoadMeshRejectsOtherClasses(t *testing.T) {
	t.Parallel()

	h, err := cache.OpenBytes(quadMap(1))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer func() { _ = h.Close() }()

	ctx := logger.WithContext(context.Background(), logger.Discard())
	if _, err := loadMesh(ctx, h, templateID); err == nil {
		t.Fatal("expected an error for a shader template")
	}
	if _, err := loadMesh(ctx, h, 0xE00000FF); !errors.Is(err, cache.ErrUnknownTag) {
		t.Fatalf("unknown tag error = %v", err)
	}
}

func TestLoadMeshMissingSectionGeometry(t *testing.T) {
	t.Parallel()

	h, err := cache.OpenBytes(quadMapSections(1, 2))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer func() { _ = h.Close() }()

	ctx := logger.WithContext(context.Background(), logger.Discard())
	data, err := loadMesh(ctx, h, modelID)
	if !errors.Is(err, cache.ErrTruncatedInput) {
		t.Fatalf("loadMesh error = %v, want truncated input", err)
	}
	if !strings.Contains(err.Error(), "section 1 has 1 submeshes") {
		t.Fatalf("error does not name the section: %v", err)
	}
	if len(data.Parts) != 0 {
		t.Fatalf("expected no parts, got %d", len(data.Parts))
	}
}
