// Package packs answers "what is on disk" questions about the shared
// package directory and removes a region's artifacts when it is
// uninstalled. Nothing here is cached: the directory is rescanned on every
// call, so the answers always match the filesystem.
package packs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/naming"
	"github.com/tidemark/chartpack/internal/regions"
)

// InstalledPackageIDs scans the package directory and returns the ids of
// every package installed for the region, derived purely from filenames.
func InstalledPackageIDs(packDir, regionID string) ([]string, error) {
	entries, err := os.ReadDir(packDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to scan package directory: %v", domain.ErrFilesystem, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := naming.MatchInstalled(entry.Name(), regionID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// InstalledRegionIDs returns every known region with at least one
// region-specific package file on disk, excluding skipID. The shared
// place-names file belongs to no single region, so it never counts toward
// presence; otherwise its own existence would keep it alive forever.
func InstalledRegionIDs(packDir, skipID string) ([]string, error) {
	var out []string
	for _, cfg := range regions.All() {
		if cfg.ID == skipID {
			continue
		}
		ids, err := InstalledPackageIDs(packDir, cfg.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if id != naming.PlaceNamesID {
				out = append(out, cfg.ID)
				break
			}
		}
	}
	return out, nil
}

// IsInstalled reports whether a package's resolved local file exists.
func IsInstalled(packDir string, pkg domain.DownloadPackage, regionID string) bool {
	_, err := os.Stat(filepath.Join(packDir, naming.ResolveLocalName(pkg, regionID)))
	return err == nil
}
