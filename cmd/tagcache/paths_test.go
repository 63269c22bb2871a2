package main

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveMapPath(t *testing.T) {
	dir := t.TempDir()
	guardian := writeFile(t, dir, "guardian.map", []byte("g"))
	plain := writeFile(t, dir, "plain", []byte("p"))

	t.Run("name in maps dir", func(t *testing.T) {
		got, err := resolveMapPath("guardian", dir)
		if err != nil || got != guardian {
			t.Fatalf("resolveMapPath = %q, %v; want %q", got, err, guardian)
		}
	})

	t.Run("name without extension", func(t *testing.T) {
		got, err := resolveMapPath("plain", dir)
		if err != nil || got != plain {
			t.Fatalf("resolveMapPath = %q, %v; want %q", got, err, plain)
		}
	})

	t.Run("explicit path", func(t *testing.T) {
		got, err := resolveMapPath(guardian, "")
		if err != nil || got != guardian {
			t.Fatalf("resolveMapPath = %q, %v; want %q", got, err, guardian)
		}
	})

	t.Run("env maps dir", func(t *testing.T) {
		t.Setenv(envMapsDir, dir)
		got, err := resolveMapPath("guardian", "")
		if err != nil || got != guardian {
			t.Fatalf("resolveMapPath = %q, %v; want %q", got, err, guardian)
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Setenv(envMapsDir, "")
		if _, err := resolveMapPath("", dir); err == nil {
			t.Fatal("expected an error for an empty name")
		}
		if _, err := resolveMapPath("guardian", ""); err == nil {
			t.Fatal("expected an error without a maps dir")
		}
		if _, err := resolveMapPath("zanzibar", dir); err == nil {
			t.Fatal("expected an error for a missing map")
		}
	})
}

func TestResolveScanTargets(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.map", []byte("b"))
	a := writeFile(t, dir, "a.MAP", []byte("a"))
	writeFile(t, dir, "readme.txt", []byte("x"))
	extra := writeFile(t, t.TempDir(), "extra.bin", []byte("e"))

	got, err := resolveScanTargets([]string{dir, extra}, "")
	if err != nil {
		t.Fatalf("resolveScanTargets: %v", err)
	}
	if want := []string{a, b, extra}; !reflect.DeepEqual(got, want) {
		t.Fatalf("targets = %v, want %v", got, want)
	}

	got, err = resolveScanTargets(nil, dir)
	if err != nil || len(got) != 2 {
		t.Fatalf("maps dir targets = %v, %v", got, err)
	}

	t.Setenv(envMapsDir, "")
	if _, err := resolveScanTargets(nil, ""); err == nil {
		t.Fatal("expected an error without targets")
	}
	if _, err := resolveScanTargets([]string{filepath.Join(dir, "missing.map")}, ""); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 << 30, "3.0 GB"},
	} {
		if got := formatSize(tc.in); got != tc.want {
			t.Fatalf("formatSize(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
