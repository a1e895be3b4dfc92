package packs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/infra/logger"
	"github.com/tidemark/chartpack/internal/naming"
	"github.com/tidemark/chartpack/internal/regions"
)

// ManifestRebuilder regenerates the tile server's index. Deletion always
// finishes with a rebuild so the downstream view matches the disk.
type ManifestRebuilder interface {
	Generate() error
}

// Registry clears a region's capability flags once its data is gone.
type Registry interface {
	ClearFlags(regionID string) error
}

// DeleteResult summarizes what a region deletion removed.
type DeleteResult struct {
	FilesDeleted int   `json:"files_deleted"`
	BytesFreed   int64 `json:"bytes_freed"`
}

type Remover struct {
	PackDir  string
	AuxDir   string
	Manifest ManifestRebuilder
	Registry Registry
	Logger   *logger.Logger
}

// DeleteRegion removes every on-disk artifact belonging to the region. The
// shared place-names file is removed only when no other region remains
// installed; it must never be destroyed out from under a region that still
// depends on it. Per-region auxiliary databases outside the package
// directory go too.
func (r *Remover) DeleteRegion(regionID string, otherInstalledRegionIDs []string) (DeleteResult, error) {
	var result DeleteResult

	entries, err := os.ReadDir(r.PackDir)
	if err != nil && !os.IsNotExist(err) {
		return result, fmt.Errorf("%w: failed to scan package directory: %v", domain.ErrFilesystem, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := naming.MatchInstalled(entry.Name(), regionID)
		if !ok {
			continue
		}
		if id == naming.PlaceNamesID && len(otherInstalledRegionIDs) > 0 {
			r.Logger.Debug("keeping shared %s: %d other regions installed", entry.Name(), len(otherInstalledRegionIDs))
			continue
		}
		r.remove(filepath.Join(r.PackDir, entry.Name()), &result)
	}

	// Auxiliary databases live outside the package directory.
	if cfg, ok := regions.Get(regionID); ok && r.AuxDir != "" {
		for _, name := range auxFiles(cfg) {
			r.remove(filepath.Join(r.AuxDir, name), &result)
		}
	}

	if r.Registry != nil {
		if err := r.Registry.ClearFlags(regionID); err != nil {
			r.Logger.Error("failed to clear registry flags for %s: %v", regionID, err)
		}
	}

	// The manifest must immediately reflect the deletion.
	if err := r.Manifest.Generate(); err != nil {
		return result, fmt.Errorf("deleted %d files but manifest rebuild failed: %w", result.FilesDeleted, err)
	}

	r.Logger.Info("deleted region %s: %d files, %d bytes freed", regionID, result.FilesDeleted, result.BytesFreed)
	return result, nil
}

func (r *Remover) remove(path string, result *DeleteResult) {
	fi, err := os.Stat(path)
	if err != nil {
		return
	}
	if err := os.Remove(path); err != nil {
		r.Logger.Error("failed to delete %s: %v", path, err)
		return
	}
	result.FilesDeleted++
	result.BytesFreed += fi.Size()
}

func auxFiles(cfg regions.Config) []string {
	files := []string{
		cfg.Prefix + "_buoys.json",
		cfg.Prefix + "_zones.json",
	}
	if cfg.PredictionDB != "" {
		files = append(files, cfg.PredictionDB)
	}
	return files
}
