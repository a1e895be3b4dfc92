// Package sequencer walks the ordered item list for one region install run,
// aggregating byte-weighted progress across heterogeneous items. One item
// failing never aborts the run; only cancellation or a filesystem-fatal
// error does. Transfers are sequential: the manifest is regenerated exactly
// once, after every chart item has had its turn.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/ksuid"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/infra/logger"
)

// ManifestRebuilder regenerates the tile server index after chart changes.
type ManifestRebuilder interface {
	Generate() error
}

// Registry records which capabilities a region has after a run.
type Registry interface {
	GetFlags(regionID string) (domain.RegionFlags, error)
	SetFlags(regionID string, flags domain.RegionFlags) error
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID     string              `json:"run_id"`
	Completed int                 `json:"completed"`
	Failed    int                 `json:"failed"`
	Skipped   int                 `json:"skipped"`
	Cancelled bool                `json:"cancelled"`
	Statuses  []domain.ItemStatus `json:"statuses"`
}

type Sequencer struct {
	Manifest ManifestRebuilder
	Registry Registry
	Logger   *logger.Logger
}

// Run executes the items in order. onItem receives every per-item status
// change; onOverall receives the byte-weighted overall percent. Both may be
// nil. Progress callbacks from items can arrive on transport goroutines, so
// all aggregation is serialized behind one mutex.
func (s *Sequencer) Run(ctx context.Context, regionID string, items []Item, onItem func(domain.ItemStatus), onOverall func(float64)) (Outcome, error) {
	outcome := Outcome{RunID: ksuid.New().String()}

	weights := make([]int64, len(items))
	var totalWeight int64
	for i, item := range items {
		weights[i] = item.SizeEstimate()
		totalWeight += weights[i]
	}

	var mu sync.Mutex
	statuses := make([]domain.ItemStatus, len(items))
	for i, item := range items {
		statuses[i] = domain.ItemStatus{ItemID: item.ID(), State: domain.ItemPending}
	}
	cancelled := false

	overall := func() float64 {
		if totalWeight == 0 {
			return 0
		}
		var acc float64
		for i := range statuses {
			p := statuses[i].Percent
			if statuses[i].State == domain.ItemComplete {
				p = 100
			}
			acc += float64(weights[i]) * p
		}
		return acc / float64(totalWeight)
	}

	report := func(idx int, state domain.ItemState, percent float64, message string) {
		mu.Lock()
		if cancelled || ctx.Err() != nil {
			// Once cancellation lands no further progress goes out, even
			// from transfers still winding down on their own goroutines.
			mu.Unlock()
			return
		}
		statuses[idx].State = state
		statuses[idx].Percent = percent
		statuses[idx].Message = message
		st := statuses[idx]
		ov := overall()
		mu.Unlock()

		if onItem != nil {
			onItem(st)
		}
		if onOverall != nil {
			onOverall(ov)
		}
	}

	var fatal error
	chartCompleted := false
	// Completions are bucketed per item region: a global resume run mixes
	// items from several regions under one run label, and the label itself
	// names no region.
	completedByRegion := map[string]map[ItemKind]bool{}
	markCompleted := func(item Item) {
		region := item.Region()
		if region == "" {
			region = regionID
		}
		if completedByRegion[region] == nil {
			completedByRegion[region] = map[ItemKind]bool{}
		}
		completedByRegion[region][item.Kind()] = true
	}

	for i, item := range items {
		// Cooperative cancellation: checked at the top of every iteration.
		if ctx.Err() != nil {
			mu.Lock()
			cancelled = true
			mu.Unlock()
			outcome.Cancelled = true
			outcome.Skipped = len(items) - i
			break
		}

		s.Logger.Info("run %s: item %d/%d %s", outcome.RunID, i+1, len(items), item.ID())
		report(i, domain.ItemDownloading, 0, "")

		err := item.Run(ctx, func(state domain.ItemState, percent float64, message string) {
			report(i, state, percent, message)
		})

		switch {
		case err == nil:
			report(i, domain.ItemComplete, 100, "")
			outcome.Completed++
			markCompleted(item)
			if item.Kind() == KindChart {
				chartCompleted = true
			}
		case errors.Is(err, context.Canceled) || ctx.Err() != nil:
			mu.Lock()
			cancelled = true
			mu.Unlock()
			outcome.Cancelled = true
			outcome.Skipped = len(items) - i - 1
		case errors.Is(err, domain.ErrFilesystem):
			// Disk trouble poisons everything after it; stop the run.
			report(i, domain.ItemError, currentPercent(&mu, statuses, i), err.Error())
			outcome.Failed++
			fatal = err
		default:
			// Recorded and moved past: one bad item never sinks the run.
			s.Logger.Warn("run %s: item %s failed: %v", outcome.RunID, item.ID(), err)
			report(i, domain.ItemError, currentPercent(&mu, statuses, i), err.Error())
			outcome.Failed++
			continue
		}

		if outcome.Cancelled || fatal != nil {
			break
		}
	}

	// Manifest regeneration happens once per run, and only when a chart item
	// actually landed. A run cancelled before any chart completed must not
	// touch the manifest.
	if chartCompleted {
		if err := s.Manifest.Generate(); err != nil {
			s.Logger.Error("run %s: manifest rebuild failed: %v", outcome.RunID, err)
			if fatal == nil {
				fatal = err
			}
		}
	}
	for region, kinds := range completedByRegion {
		s.updateRegistry(region, kinds)
	}

	mu.Lock()
	outcome.Statuses = append([]domain.ItemStatus(nil), statuses...)
	mu.Unlock()

	if fatal != nil {
		return outcome, fmt.Errorf("run %s aborted: %w", outcome.RunID, fatal)
	}
	return outcome, nil
}

func currentPercent(mu *sync.Mutex, statuses []domain.ItemStatus, i int) float64 {
	mu.Lock()
	defer mu.Unlock()
	return statuses[i].Percent
}

// updateRegistry merges the run's completed capabilities into the region's
// existing flags: a run that only added predictions must not clear has_charts.
func (s *Sequencer) updateRegistry(regionID string, completed map[ItemKind]bool) {
	if s.Registry == nil {
		return
	}
	flags, err := s.Registry.GetFlags(regionID)
	if err != nil {
		s.Logger.Error("failed to read registry flags for %s: %v", regionID, err)
		return
	}
	if completed[KindChart] {
		flags.HasCharts = true
	}
	if completed[KindPredictions] {
		flags.HasPredictions = true
	}
	if completed[KindBuoys] {
		flags.HasBuoys = true
	}
	if completed[KindZones] {
		flags.HasZones = true
	}
	if err := s.Registry.SetFlags(regionID, flags); err != nil {
		s.Logger.Error("failed to update registry flags for %s: %v", regionID, err)
	}
}
