package domain

// RegionFlags are the per-region capability booleans the registry tracks.
// They tell the rest of the app what an installed region can do offline.
type RegionFlags struct {
	HasCharts      bool `json:"has_charts"`
	HasPredictions bool `json:"has_predictions"`
	HasBuoys       bool `json:"has_buoys"`
	HasZones       bool `json:"has_zones"`
}
