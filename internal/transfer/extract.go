package transfer

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor defines the behavior for extracting compressed pack archives.
type Extractor interface {
	// Extract extracts the archive at the given path into the destination
	// directory, flattening any internal folder structure. destName is the
	// resolved local filename the package should land under; extractors
	// whose output name would otherwise derive from the archive's own
	// (temp) filename use it. Returns the list of extracted file paths.
	Extract(ctx context.Context, archivePath, destDir, destName string) ([]string, error)

	// CanExtract checks if this extractor can handle the given file.
	CanExtract(filename string) bool

	// Name returns the human-readable name of this extractor (e.g. "ZIP").
	Name() string
}

func defaultExtractors() []Extractor {
	return []Extractor{&ZipExtractor{}, &GzipExtractor{}}
}

// ZipExtractor unpacks .zip containers with the standard library. Entries
// land in destDir under their base names only; archive paths are never
// trusted.
type ZipExtractor struct{}

func (z *ZipExtractor) Name() string { return "ZIP" }

func (z *ZipExtractor) CanExtract(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".zip")
}

// Extract ignores destName: zip entries carry their own names, and a
// mismatch against the expected local name is the caller's concern.
func (z *ZipExtractor) Extract(ctx context.Context, archivePath, destDir, _ string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip %s: %w", filepath.Base(archivePath), err)
	}
	defer r.Close()

	var finalPaths []string
	for _, entry := range r.File {
		select {
		case <-ctx.Done():
			return finalPaths, ctx.Err()
		default:
		}

		if entry.FileInfo().IsDir() {
			continue
		}

		name := filepath.Base(entry.Name)
		if name == "." || strings.HasPrefix(name, "._") {
			continue
		}

		targetPath := filepath.Join(destDir, name)
		if err := copyZipEntry(entry, targetPath); err != nil {
			return finalPaths, err
		}
		finalPaths = append(finalPaths, targetPath)
	}

	return finalPaths, nil
}

func copyZipEntry(entry *zip.File, targetPath string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", targetPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return nil
}

// GzipExtractor unpacks single-file .gz containers. A gzip archive carries
// no entry name of its own, so the output lands under destName; without one
// it falls back to the archive name with the .gz suffix dropped. The
// fallback must never see an engine temp name, which embeds the region and
// would not match any resolved local filename.
type GzipExtractor struct{}

func (g *GzipExtractor) Name() string { return "GZIP" }

func (g *GzipExtractor) CanExtract(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".gz")
}

func (g *GzipExtractor) Extract(ctx context.Context, archivePath, destDir, destName string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	src, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(archivePath), err)
	}
	defer src.Close()

	gz, err := gzip.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip %s: %w", filepath.Base(archivePath), err)
	}
	defer gz.Close()

	name := destName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(archivePath), ".gz")
	}
	targetPath := filepath.Join(destDir, name)

	dst, err := os.Create(targetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", targetPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, gz); err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", name, err)
	}

	return []string{targetPath}, nil
}
