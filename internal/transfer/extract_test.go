package transfer

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestZipExtractorFlattensEntries(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f1, _ := zw.Create("nested/dir/ak_US4.mbtiles")
	f1.Write([]byte("charts"))
	f2, _ := zw.Create("readme.txt")
	f2.Write([]byte("notes"))
	zw.Close()

	archive := filepath.Join(dir, "pack.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "packs")
	os.MkdirAll(dest, 0755)

	ex := &ZipExtractor{}
	if !ex.CanExtract(archive) {
		t.Fatal("CanExtract(.zip) = false")
	}

	paths, err := ex.Extract(context.Background(), archive, dest, "ak_US4.mbtiles")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("extracted %d files, want 2", len(paths))
	}

	// Nested entries land flat in the destination
	got, err := os.ReadFile(filepath.Join(dest, "ak_US4.mbtiles"))
	if err != nil {
		t.Fatalf("flattened file missing: %v", err)
	}
	if string(got) != "charts" {
		t.Errorf("content = %q", got)
	}
}

func TestGzipExtractorDropsSuffix(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("terrain tiles"))
	gz.Close()

	archive := filepath.Join(dir, "terrain_z0-9.mbtiles.gz")
	if err := os.WriteFile(archive, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	ex := &GzipExtractor{}
	if !ex.CanExtract(archive) {
		t.Fatal("CanExtract(.gz) = false")
	}
	if ex.CanExtract("plain.mbtiles") {
		t.Error("CanExtract(.mbtiles) = true")
	}

	paths, err := ex.Extract(context.Background(), archive, dir, "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "terrain_z0-9.mbtiles" {
		t.Fatalf("paths = %v, want terrain_z0-9.mbtiles", paths)
	}

	got, _ := os.ReadFile(paths[0])
	if string(got) != "terrain tiles" {
		t.Errorf("content = %q", got)
	}
}

func TestGzipExtractorHonorsTargetName(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("terrain tiles"))
	gz.Close()

	// Engine temp names prefix the region; the output must carry the
	// resolved local name, not one derived from the temp name.
	archive := filepath.Join(dir, "ak__terrain_z0-9.mbtiles.gz")
	if err := os.WriteFile(archive, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	ex := &GzipExtractor{}
	paths, err := ex.Extract(context.Background(), archive, dir, "ak_terrain_z0-9.mbtiles")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "ak_terrain_z0-9.mbtiles" {
		t.Fatalf("paths = %v, want ak_terrain_z0-9.mbtiles", paths)
	}
}
