package sequencer

import (
	"context"

	"github.com/tidemark/chartpack/internal/domain"
)

// ItemKind tells the sequencer which capability a completed item unlocks.
type ItemKind string

const (
	KindChart       ItemKind = "chart"
	KindPackage     ItemKind = "package" // non-chart package (imagery, basemap)
	KindPredictions ItemKind = "predictions"
	KindBuoys       ItemKind = "buoys"
	KindZones       ItemKind = "zones"
)

// Item is one unit of work in a region install run: either a true download
// package or a synthetic fetcher with its own routine. Both report through
// the same status shape so the run can aggregate them uniformly.
type Item interface {
	ID() string
	Kind() ItemKind

	// Region names the region this item belongs to. A global resume run
	// carries items from several regions at once, and registry flags must
	// land on each item's own region, not on the run's label.
	Region() string

	// SizeEstimate weights this item in the overall progress calculation.
	// Exact for packages, estimated from region metadata for synthetic items.
	SizeEstimate() int64

	Run(ctx context.Context, report ReportFunc) error
}

// ReportFunc delivers a per-item status update. May be called from the
// transport's goroutine; the sequencer serializes internally.
type ReportFunc func(state domain.ItemState, percent float64, message string)

// TransferEngine is the slice of the transfer engine the sequencer needs.
type TransferEngine interface {
	Transfer(ctx context.Context, pkg domain.DownloadPackage, regionID string, onProgress domain.ProgressFunc) error
}

// PackageItem adapts one DownloadPackage to the Item interface.
type PackageItem struct {
	Pkg      domain.DownloadPackage
	RegionID string
	Engine   TransferEngine
}

func (p *PackageItem) ID() string     { return p.Pkg.ID }
func (p *PackageItem) Region() string { return p.RegionID }

func (p *PackageItem) Kind() ItemKind {
	if p.Pkg.Type == domain.TypeChartScale {
		return KindChart
	}
	return KindPackage
}

func (p *PackageItem) SizeEstimate() int64 {
	if p.Pkg.SizeBytes > 0 {
		return p.Pkg.SizeBytes
	}
	return 1
}

func (p *PackageItem) Run(ctx context.Context, report ReportFunc) error {
	return p.Engine.Transfer(ctx, p.Pkg, p.RegionID, func(prog domain.TransferProgress) {
		state := domain.ItemDownloading
		if prog.Percent >= 100 {
			// Bytes are down; the engine is unpacking.
			state = domain.ItemExtracting
		}
		report(state, prog.Percent, "")
	})
}

// FetchFunc is the external collaborator contract for synthetic items
// (predictions, buoy catalog, marine zones).
type FetchFunc func(ctx context.Context, regionID string, onProgress domain.FetchProgressFunc) error

// FetchItem adapts a synthetic fetch routine to the Item interface.
type FetchItem struct {
	ItemID   string
	ItemKind ItemKind
	RegionID string
	Estimate int64
	Fetch    FetchFunc
}

func (f *FetchItem) ID() string     { return f.ItemID }
func (f *FetchItem) Kind() ItemKind { return f.ItemKind }
func (f *FetchItem) Region() string { return f.RegionID }

func (f *FetchItem) SizeEstimate() int64 {
	if f.Estimate > 0 {
		return f.Estimate
	}
	return 1
}

func (f *FetchItem) Run(ctx context.Context, report ReportFunc) error {
	return f.Fetch(ctx, f.RegionID, func(message string, percent float64) {
		report(domain.ItemDownloading, percent, message)
	})
}
