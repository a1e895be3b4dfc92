// Package naming maps (package, region) pairs to collision-free local
// filenames and back. The mapping is pure and total: every package type has
// exactly one rule, two regions can never produce the same name, and the
// shared place-names catalog resolves to one canonical name for every region
// so it is installed at most once.
package naming

import (
	"path"
	"regexp"
	"strings"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/regions"
)

// PlaceNamesFile is the single canonical filename shared by every region.
const PlaceNamesFile = "gnis_names.db"

// PlaceNamesID is the package id every region's place-names package carries.
const PlaceNamesID = "gnis-names"

// LandBaseID is the package id of a region's land basemap.
const LandBaseID = "land-base"

var scalePattern = regexp.MustCompile(`^US\d+$`)

// ResolveLocalName returns the local filename for a package installed under
// a region. Rules, in priority order:
//
//  1. Chart scales: {prefix}_{scale}.mbtiles
//  2. Place names: the shared PlaceNamesFile, deliberately unprefixed
//  3. Land basemap: the fixed per-region name from the static region table,
//     normalizing inconsistent upstream naming
//  4. Satellite/ocean/terrain: {prefix}_{originalBase}, preserving any zoom
//     suffix embedded in the storage path's base name
func ResolveLocalName(pkg domain.DownloadPackage, regionID string) string {
	prefix := regions.Prefix(regionID)

	switch pkg.Type {
	case domain.TypeChartScale:
		return prefix + "_" + pkg.Scale + ".mbtiles"
	case domain.TypePlaceNames:
		return PlaceNamesFile
	case domain.TypeLandBase:
		if cfg, ok := regions.Get(regionID); ok && cfg.LandBasemap != "" {
			return cfg.LandBasemap
		}
		return prefix + "_land.mbtiles"
	default:
		return prefix + "_" + storageBase(pkg.StoragePath)
	}
}

// MatchInstalled is the exact inverse of ResolveLocalName: given a filename
// found in the package directory and a region id, it returns the package id
// the file belongs to, or false when the file is not one of that region's
// packages.
func MatchInstalled(filename, regionID string) (string, bool) {
	prefix := regions.Prefix(regionID)

	if filename == PlaceNamesFile {
		return PlaceNamesID, true
	}
	if cfg, ok := regions.Get(regionID); ok && filename == cfg.LandBasemap {
		return LandBaseID, true
	}
	if filename == prefix+"_land.mbtiles" {
		return LandBaseID, true
	}

	rest, ok := strings.CutPrefix(filename, prefix+"_")
	if !ok {
		return "", false
	}

	if scale, found := strings.CutSuffix(rest, ".mbtiles"); found && scalePattern.MatchString(scale) {
		return "chart-" + scale, true
	}

	// Satellite/ocean/terrain keep their storage base name after the prefix.
	base := trimKnownExt(rest)
	token, _, _ := strings.Cut(base, "_")
	switch token {
	case "satellite", "ocean", "terrain":
		return strings.ReplaceAll(base, "_", "-"), true
	}

	return "", false
}

// PackageID derives the canonical package id for a descriptor. Catalog
// documents carry ids already, but synthetic callers (directory scans,
// deletion) use this to stay aligned with MatchInstalled.
func PackageID(pkg domain.DownloadPackage) string {
	switch pkg.Type {
	case domain.TypeChartScale:
		return "chart-" + pkg.Scale
	case domain.TypePlaceNames:
		return PlaceNamesID
	case domain.TypeLandBase:
		return LandBaseID
	default:
		return strings.ReplaceAll(trimKnownExt(storageBase(pkg.StoragePath)), "_", "-")
	}
}

// storageBase strips the directory part and any archive extension from a
// cloud storage path: "ak/satellite_z0-5.mbtiles.zip" -> "satellite_z0-5.mbtiles".
func storageBase(storagePath string) string {
	base := path.Base(storagePath)
	for _, ext := range []string{".zip", ".gz"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func trimKnownExt(name string) string {
	for _, ext := range []string{".mbtiles", ".db", ".sqlite"} {
		if trimmed, ok := strings.CutSuffix(name, ext); ok {
			return trimmed
		}
	}
	return name
}
