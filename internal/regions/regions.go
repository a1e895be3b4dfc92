// Package regions holds the static per-region configuration: filename
// prefix, geographic bounds, and the fixed land-basemap filename. Everything
// lives in one embedded YAML document keyed by region id so the tables
// cannot drift apart.
package regions

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
}

// Config is the full static configuration for one region.
type Config struct {
	ID           string `yaml:"id"`
	Prefix       string `yaml:"prefix"`
	Name         string `yaml:"name"`
	Bounds       Bounds `yaml:"bounds"`
	LandBasemap  string `yaml:"land_basemap"`
	PredictionDB string `yaml:"prediction_db"`
}

// ZoomRange is the min/max zoom for one chart scale band.
type ZoomRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

type file struct {
	Regions []Config             `yaml:"regions"`
	Scales  map[string]ZoomRange `yaml:"scales"`
}

var (
	byID     map[string]Config
	byPrefix map[string]Config
	scales   map[string]ZoomRange
)

func init() {
	var f file
	if err := yaml.Unmarshal(regionsYAML, &f); err != nil {
		panic(fmt.Sprintf("regions: bad embedded table: %v", err))
	}

	byID = make(map[string]Config, len(f.Regions))
	byPrefix = make(map[string]Config, len(f.Regions))
	for _, r := range f.Regions {
		if r.ID == "" || r.Prefix == "" {
			panic(fmt.Sprintf("regions: entry missing id or prefix: %+v", r))
		}
		if _, dup := byID[r.ID]; dup {
			panic(fmt.Sprintf("regions: duplicate id %q", r.ID))
		}
		if _, dup := byPrefix[r.Prefix]; dup {
			panic(fmt.Sprintf("regions: duplicate prefix %q", r.Prefix))
		}
		byID[r.ID] = r
		byPrefix[r.Prefix] = r
	}
	scales = f.Scales
}

// Get returns the static config for a region id.
func Get(regionID string) (Config, bool) {
	c, ok := byID[regionID]
	return c, ok
}

// Prefix returns the filename prefix for a region id, or the id itself when
// the region has no dedicated entry.
func Prefix(regionID string) string {
	if c, ok := byID[regionID]; ok {
		return c.Prefix
	}
	return regionID
}

// All returns every configured region, in no particular order.
func All() []Config {
	out := make([]Config, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	return out
}

// ScaleZoom returns the zoom range for a chart scale band like "US4".
func ScaleZoom(scale string) (ZoomRange, bool) {
	z, ok := scales[scale]
	return z, ok
}
