package domain

// PackageType enumerates the kinds of downloadable artifacts a region offers.
type PackageType string

const (
	TypeChartScale PackageType = "chart-scale" // tiled vector charts at one scale band
	TypePlaceNames PackageType = "place-names" // shared nationwide names catalog
	TypeSatellite  PackageType = "satellite"   // satellite imagery tile set
	TypeLandBase   PackageType = "land-base"   // land basemap
	TypeOceanBase  PackageType = "ocean-base"  // ocean basemap
	TypeTerrain    PackageType = "terrain"     // terrain/relief tile set
)

// DownloadPackage describes one downloadable artifact within a region.
// Immutable value; produced by the catalog reader.
type DownloadPackage struct {
	ID          string      `json:"id"`
	Type        PackageType `json:"type"`
	Scale       string      `json:"scale,omitempty"` // band label, e.g. "US4", for chart scales
	SizeBytes   int64       `json:"size_bytes"`
	StoragePath string      `json:"storage_path"` // key within the object storage bucket
	Required    bool        `json:"required"`
}

// Region is an immutable catalog snapshot for one geographic partition.
// It is fetched fresh per session and never cached locally.
type Region struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Code     string            `json:"code"`
	Packages []DownloadPackage `json:"packages"`
	Metadata RegionMetadata    `json:"metadata"`
}

// RegionMetadata carries counts/sizes used to estimate the synthetic
// non-package items (predictions, buoys, zones) for progress weighting.
type RegionMetadata struct {
	StationCount   int   `json:"station_count"`
	BuoyCount      int   `json:"buoy_count"`
	ZoneCount      int   `json:"zone_count"`
	PredictionSize int64 `json:"prediction_size,omitempty"`
}

// RequiredPackages returns the subset of packages flagged required, in
// catalog order.
func (r *Region) RequiredPackages() []DownloadPackage {
	var out []DownloadPackage
	for _, p := range r.Packages {
		if p.Required {
			out = append(out, p)
		}
	}
	return out
}
