// Package manifest writes the index the external tile server reads to
// discover installed chart packages. Generation is a full rescan of the
// package directory; the manifest is the single source of truth downstream,
// so it is always written whole and swapped in atomically.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/tidemark/chartpack/internal/infra/logger"
	"github.com/tidemark/chartpack/internal/regions"
)

// Entry describes one installed chart-scale file.
type Entry struct {
	ID        string           `json:"id"` // region-prefixed, e.g. "ak_US4"
	Region    string           `json:"region"`
	Scale     string           `json:"scale"`
	File      string           `json:"file"`
	SizeBytes int64            `json:"size_bytes"`
	Bounds    regions.Bounds   `json:"bounds"`
	Zoom      regions.ZoomRange `json:"zoom"`
}

// Manifest is the on-disk index document.
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Entries     []Entry   `json:"entries"`
}

type Generator struct {
	PackDir      string
	ManifestPath string
	Logger       *logger.Logger
}

var chartFilePattern = regexp.MustCompile(`^(US\d+)\.mbtiles$`)

// Generate rescans the package directory across every known region prefix
// and rewrites the manifest. Idempotent; safe to call arbitrarily often.
func (g *Generator) Generate() error {
	entries := []Entry{}

	for _, cfg := range regions.All() {
		files, err := filepath.Glob(filepath.Join(g.PackDir, cfg.Prefix+"_US*.mbtiles"))
		if err != nil {
			return fmt.Errorf("failed to scan package directory: %w", err)
		}

		for _, file := range files {
			base := filepath.Base(file)
			m := chartFilePattern.FindStringSubmatch(base[len(cfg.Prefix)+1:])
			if m == nil {
				continue
			}
			scale := m[1]

			fi, err := os.Stat(file)
			if err != nil {
				// File vanished between glob and stat; next rescan catches up.
				g.Logger.Warn("manifest: skipping %s: %v", base, err)
				continue
			}

			zoom, ok := regions.ScaleZoom(scale)
			if !ok {
				g.Logger.Warn("manifest: %s has unknown scale %s", base, scale)
				continue
			}

			entries = append(entries, Entry{
				ID:        cfg.Prefix + "_" + scale,
				Region:    cfg.ID,
				Scale:     scale,
				File:      base,
				SizeBytes: fi.Size(),
				Bounds:    cfg.Bounds,
				Zoom:      zoom,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	doc := Manifest{
		GeneratedAt: time.Now().UTC(),
		Entries:     entries,
	}

	return g.writeAtomic(doc)
}

// writeAtomic lands the document under a temp name first so the tile server
// can never observe a partially written manifest.
func (g *Generator) writeAtomic(doc Manifest) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(g.ManifestPath), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmpPath := g.ManifestPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpPath, g.ManifestPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	g.Logger.Info("manifest regenerated: %d entries", len(doc.Entries))
	return nil
}

// Load reads a manifest back. Used by status reporting and tests.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Manifest
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	return &doc, nil
}
