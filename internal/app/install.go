package app

import (
	"context"
	"fmt"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/sequencer"
)

// Rough per-record sizes used to weight synthetic fetch items against real
// package downloads. Only the ratios matter for progress aggregation.
const (
	predictionBytesPerStation = 32 * 1024
	buoyBytesPerRecord        = 8 * 1024
	zoneBytesPerRecord        = 16 * 1024
)

// InstallRegion resolves the region from the catalog and runs the full
// install sequence: required packages (optional ones too when requested),
// then the synthetic fetchers. Blocks until the run finishes; callers that
// need it backgrounded run it on their own goroutine.
func (a *Context) InstallRegion(ctx context.Context, regionID string, includeOptional bool) (sequencer.Outcome, error) {
	region, err := a.Catalog.GetRegion(ctx, regionID)
	if err != nil {
		return sequencer.Outcome{}, err
	}

	items := a.buildItems(region, includeOptional, nil)
	return a.runItems(ctx, regionID, items)
}

// ResumeRegion requeues the region's incomplete transfers and re-runs just
// those packages. Storage URLs are re-resolved fresh; the ledger checkpoint
// decides where each download picks up. An empty regionID resumes everything.
func (a *Context) ResumeRegion(ctx context.Context, regionID string) (sequencer.Outcome, error) {
	records, err := a.Ledger.ResumeAll(regionID)
	if err != nil {
		return sequencer.Outcome{}, err
	}
	if len(records) == 0 {
		return sequencer.Outcome{}, nil
	}

	// Incomplete records can span regions when resuming globally.
	byRegion := map[string]map[string]bool{}
	for _, rec := range records {
		if byRegion[rec.RegionID] == nil {
			byRegion[rec.RegionID] = map[string]bool{}
		}
		byRegion[rec.RegionID][rec.PackageID] = true
	}

	var items []sequencer.Item
	for rid, wanted := range byRegion {
		region, err := a.Catalog.GetRegion(ctx, rid)
		if err != nil {
			return sequencer.Outcome{}, fmt.Errorf("resolving region %s for resume: %w", rid, err)
		}
		items = append(items, a.buildItems(region, true, wanted)...)
	}

	label := regionID
	if label == "" {
		label = "all"
	}
	return a.runItems(ctx, label, items)
}

func (a *Context) runItems(ctx context.Context, regionID string, items []sequencer.Item) (sequencer.Outcome, error) {
	a.beginRun(regionID, items)
	outcome, err := a.Sequencer.Run(ctx, regionID, items, a.trackItem, a.trackOverall)
	a.endRun(outcome)
	return outcome, err
}

// buildItems orders the run: packages in catalog order, synthetic fetchers
// after. When only is non-nil, packages outside it are dropped (resume path)
// and the fetchers are skipped entirely.
func (a *Context) buildItems(region *domain.Region, includeOptional bool, only map[string]bool) []sequencer.Item {
	var items []sequencer.Item

	for _, pkg := range region.Packages {
		if only != nil && !only[pkg.ID] {
			continue
		}
		if only == nil && !pkg.Required && !includeOptional {
			continue
		}
		items = append(items, &sequencer.PackageItem{
			Pkg:      pkg,
			RegionID: region.ID,
			Engine:   a.Engine,
		})
	}

	if only != nil || a.Fetchers == nil {
		return items
	}

	meta := region.Metadata
	if a.Config.Fetchers.PredictionsURL != "" {
		estimate := meta.PredictionSize
		if estimate == 0 {
			estimate = int64(meta.StationCount) * predictionBytesPerStation
		}
		items = append(items, &sequencer.FetchItem{
			ItemID:   "predictions",
			ItemKind: sequencer.KindPredictions,
			RegionID: region.ID,
			Estimate: estimate,
			Fetch:    a.Fetchers.FetchPredictions,
		})
	}
	if a.Config.Fetchers.BuoysURL != "" {
		items = append(items, &sequencer.FetchItem{
			ItemID:   "buoys",
			ItemKind: sequencer.KindBuoys,
			RegionID: region.ID,
			Estimate: int64(meta.BuoyCount) * buoyBytesPerRecord,
			Fetch:    a.Fetchers.FetchBuoys,
		})
	}
	if a.Config.Fetchers.ZonesURL != "" {
		items = append(items, &sequencer.FetchItem{
			ItemID:   "zones",
			ItemKind: sequencer.KindZones,
			RegionID: region.ID,
			Estimate: int64(meta.ZoneCount) * zoneBytesPerRecord,
			Fetch:    a.Fetchers.FetchZones,
		})
	}

	return items
}
