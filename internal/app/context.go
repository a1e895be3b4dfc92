package app

import (
	"context"
	"sync"
	"time"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/infra/config"
	"github.com/tidemark/chartpack/internal/infra/logger"
	"github.com/tidemark/chartpack/internal/ledger"
	"github.com/tidemark/chartpack/internal/manifest"
	"github.com/tidemark/chartpack/internal/packs"
	"github.com/tidemark/chartpack/internal/sequencer"
)

// Catalog is the remote region catalog, bucket or database backed.
// This allows the app to serve regions without importing the catalog package.
type Catalog interface {
	GetRegion(ctx context.Context, regionID string) (*domain.Region, error)
}

// Registry records region capability flags. Ledger-backed by default; a
// remote fleet registry can stand in without touching callers.
type Registry interface {
	GetFlags(regionID string) (domain.RegionFlags, error)
	SetFlags(regionID string, flags domain.RegionFlags) error
	ClearFlags(regionID string) error
}

// Fetchers covers the synthetic fetch routines mixed into an install run.
type Fetchers interface {
	FetchPredictions(ctx context.Context, regionID string, onProgress domain.FetchProgressFunc) error
	FetchBuoys(ctx context.Context, regionID string, onProgress domain.FetchProgressFunc) error
	FetchZones(ctx context.Context, regionID string, onProgress domain.FetchProgressFunc) error
}

// RunStatus is the snapshot reported while an install run is in flight, and
// retained after it ends so the last run stays inspectable.
type RunStatus struct {
	RegionID  string              `json:"region_id"`
	Active    bool                `json:"active"`
	Overall   float64             `json:"overall_percent"`
	Statuses  []domain.ItemStatus `json:"items"`
	StartedAt time.Time           `json:"started_at"`
}

// Context holds the core environment and shared resources for chartpack.
// It acts as the "Single Source of Truth" for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	Catalog   Catalog
	Registry  Registry
	Ledger    *ledger.PersistentLedger
	Engine    sequencer.TransferEngine
	Sequencer *sequencer.Sequencer
	Fetchers  Fetchers
	Remover   *packs.Remover
	Manifest  *manifest.Generator

	mu  sync.RWMutex
	run *RunStatus
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}

// Status returns a copy of the current or most recent run state. Nil when no
// run has happened since startup.
func (a *Context) Status() *RunStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.run == nil {
		return nil
	}
	snap := *a.run
	snap.Statuses = append([]domain.ItemStatus(nil), a.run.Statuses...)
	return &snap
}

func (a *Context) beginRun(regionID string, items []sequencer.Item) {
	statuses := make([]domain.ItemStatus, len(items))
	for i, item := range items {
		statuses[i] = domain.ItemStatus{ItemID: item.ID(), State: domain.ItemPending}
	}
	a.mu.Lock()
	a.run = &RunStatus{
		RegionID:  regionID,
		Active:    true,
		Statuses:  statuses,
		StartedAt: time.Now().UTC(),
	}
	a.mu.Unlock()
}

func (a *Context) trackItem(st domain.ItemStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.run == nil {
		return
	}
	for i := range a.run.Statuses {
		if a.run.Statuses[i].ItemID == st.ItemID {
			a.run.Statuses[i] = st
			return
		}
	}
}

func (a *Context) trackOverall(percent float64) {
	a.mu.Lock()
	if a.run != nil {
		a.run.Overall = percent
	}
	a.mu.Unlock()
}

func (a *Context) endRun(outcome sequencer.Outcome) {
	a.mu.Lock()
	if a.run != nil {
		a.run.Active = false
		a.run.Statuses = outcome.Statuses
		if outcome.Completed > 0 && outcome.Failed == 0 && !outcome.Cancelled {
			a.run.Overall = 100
		}
	}
	a.mu.Unlock()
}
