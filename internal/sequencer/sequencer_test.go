package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/infra/logger"
)

type fakeItem struct {
	id     string
	kind   ItemKind
	region string
	size   int64
	run    func(ctx context.Context, report ReportFunc) error
}

func (f *fakeItem) ID() string          { return f.id }
func (f *fakeItem) Kind() ItemKind      { return f.kind }
func (f *fakeItem) Region() string      { return f.region }
func (f *fakeItem) SizeEstimate() int64 { return f.size }
func (f *fakeItem) Run(ctx context.Context, report ReportFunc) error {
	return f.run(ctx, report)
}

func succeed(ctx context.Context, report ReportFunc) error {
	report(domain.ItemDownloading, 50, "")
	return nil
}

type fakeManifest struct {
	mu    sync.Mutex
	calls int
}

func (m *fakeManifest) Generate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return nil
}

type fakeRegistry struct {
	flags map[string]domain.RegionFlags
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{flags: map[string]domain.RegionFlags{}}
}

func (r *fakeRegistry) GetFlags(regionID string) (domain.RegionFlags, error) {
	return r.flags[regionID], nil
}

func (r *fakeRegistry) SetFlags(regionID string, flags domain.RegionFlags) error {
	r.flags[regionID] = flags
	return nil
}

func testSequencer() (*Sequencer, *fakeManifest, *fakeRegistry) {
	m := &fakeManifest{}
	r := newFakeRegistry()
	return &Sequencer{Manifest: m, Registry: r, Logger: logger.Discard()}, m, r
}

func TestByteWeightedOverallProgress(t *testing.T) {
	s, _, _ := testSequencer()

	// Sizes [10, 90]: when the first completes and the second has not
	// started, overall must be 10%, not 50%.
	var overallAfterFirst float64
	firstDone := false

	items := []Item{
		&fakeItem{id: "small", kind: KindPackage, size: 10, run: succeed},
		&fakeItem{id: "big", kind: KindPackage, size: 90, run: func(ctx context.Context, report ReportFunc) error {
			return errors.New("stop here")
		}},
	}

	_, err := s.Run(context.Background(), "ak", items, func(st domain.ItemStatus) {
		if st.ItemID == "small" && st.State == domain.ItemComplete {
			firstDone = true
		}
	}, func(overall float64) {
		if firstDone && overallAfterFirst == 0 {
			overallAfterFirst = overall
		}
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if overallAfterFirst != 10 {
		t.Errorf("overall after first item = %v%%, want 10%%", overallAfterFirst)
	}
}

func TestItemFailureDoesNotAbortRun(t *testing.T) {
	s, _, _ := testSequencer()

	var ran []string
	items := []Item{
		&fakeItem{id: "a", kind: KindPackage, size: 1, run: func(ctx context.Context, report ReportFunc) error {
			ran = append(ran, "a")
			return fmt.Errorf("%w: boom", domain.ErrTransferFailed)
		}},
		&fakeItem{id: "b", kind: KindPackage, size: 1, run: func(ctx context.Context, report ReportFunc) error {
			ran = append(ran, "b")
			return nil
		}},
	}

	outcome, err := s.Run(context.Background(), "ak", items, nil, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ran) != 2 {
		t.Fatalf("ran %v, want both items", ran)
	}
	if outcome.Failed != 1 || outcome.Completed != 1 {
		t.Errorf("outcome = %+v, want 1 failed 1 completed", outcome)
	}
	if outcome.Statuses[0].State != domain.ItemError {
		t.Errorf("item a state = %s, want error", outcome.Statuses[0].State)
	}
}

func TestFilesystemErrorAbortsRun(t *testing.T) {
	s, _, _ := testSequencer()

	var ranSecond bool
	items := []Item{
		&fakeItem{id: "a", kind: KindPackage, size: 1, run: func(ctx context.Context, report ReportFunc) error {
			return fmt.Errorf("%w: disk full", domain.ErrFilesystem)
		}},
		&fakeItem{id: "b", kind: KindPackage, size: 1, run: func(ctx context.Context, report ReportFunc) error {
			ranSecond = true
			return nil
		}},
	}

	_, err := s.Run(context.Background(), "ak", items, nil, nil)
	if err == nil {
		t.Fatal("filesystem error should surface as run error")
	}
	if !errors.Is(err, domain.ErrFilesystem) {
		t.Errorf("error = %v, want ErrFilesystem", err)
	}
	if ranSecond {
		t.Error("run continued past a filesystem-fatal error")
	}
}

func TestCancelSkipsRemainingItemsAndManifest(t *testing.T) {
	s, m, _ := testSequencer()

	ctx, cancel := context.WithCancel(context.Background())

	var ran []string
	items := []Item{
		// Non-chart item: its completion must not trigger a manifest rebuild.
		&fakeItem{id: "buoys", kind: KindBuoys, size: 1, run: func(ctx context.Context, report ReportFunc) error {
			ran = append(ran, "buoys")
			cancel()
			return nil
		}},
		&fakeItem{id: "b", kind: KindChart, size: 1, run: func(ctx context.Context, report ReportFunc) error {
			ran = append(ran, "b")
			return nil
		}},
		&fakeItem{id: "c", kind: KindChart, size: 1, run: func(ctx context.Context, report ReportFunc) error {
			ran = append(ran, "c")
			return nil
		}},
	}

	outcome, err := s.Run(ctx, "ak", items, nil, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(ran) != 1 || ran[0] != "buoys" {
		t.Errorf("ran %v, want only the first item", ran)
	}
	if !outcome.Cancelled {
		t.Error("outcome should be cancelled")
	}
	if outcome.Completed != 1 || outcome.Skipped != 2 {
		t.Errorf("outcome = %+v, want 1 completed 2 skipped", outcome)
	}
	if m.calls != 0 {
		t.Errorf("manifest generated %d times, want 0 (no chart item completed)", m.calls)
	}
}

func TestManifestRegeneratedOncePerRun(t *testing.T) {
	s, m, _ := testSequencer()

	items := []Item{
		&fakeItem{id: "chart-US1", kind: KindChart, size: 5, run: succeed},
		&fakeItem{id: "chart-US4", kind: KindChart, size: 50, run: succeed},
		&fakeItem{id: "predictions", kind: KindPredictions, size: 1, run: succeed},
	}

	if _, err := s.Run(context.Background(), "ak", items, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.calls != 1 {
		t.Errorf("manifest generated %d times, want exactly 1", m.calls)
	}
}

func TestRegistryFlagsMergeAcrossRuns(t *testing.T) {
	s, _, r := testSequencer()

	chartRun := []Item{&fakeItem{id: "chart-US1", kind: KindChart, size: 1, run: succeed}}
	if _, err := s.Run(context.Background(), "ak", chartRun, nil, nil); err != nil {
		t.Fatal(err)
	}

	flags, _ := r.GetFlags("ak")
	if !flags.HasCharts || flags.HasPredictions {
		t.Errorf("flags after chart run = %+v", flags)
	}

	// A later predictions-and-charts run must not clear has_charts.
	mixed := []Item{
		&fakeItem{id: "chart-US4", kind: KindChart, size: 1, run: succeed},
		&fakeItem{id: "predictions", kind: KindPredictions, size: 1, run: succeed},
	}
	if _, err := s.Run(context.Background(), "ak", mixed, nil, nil); err != nil {
		t.Fatal(err)
	}

	flags, _ = r.GetFlags("ak")
	if !flags.HasCharts || !flags.HasPredictions {
		t.Errorf("flags after mixed run = %+v, want charts and predictions", flags)
	}
}

func TestRegistryFlagsFollowItemRegion(t *testing.T) {
	s, _, r := testSequencer()

	// A global resume run mixes regions under a label that names no region.
	items := []Item{
		&fakeItem{id: "chart-US4", kind: KindChart, region: "ak", size: 1, run: succeed},
		&fakeItem{id: "chart-US1", kind: KindChart, region: "wc", size: 1, run: succeed},
		&fakeItem{id: "buoys", kind: KindBuoys, region: "wc", size: 1, run: succeed},
	}
	if _, err := s.Run(context.Background(), "all", items, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	ak, _ := r.GetFlags("ak")
	if !ak.HasCharts {
		t.Errorf("ak flags = %+v, want has_charts", ak)
	}
	wc, _ := r.GetFlags("wc")
	if !wc.HasCharts || !wc.HasBuoys {
		t.Errorf("wc flags = %+v, want charts and buoys", wc)
	}
	if all, _ := r.GetFlags("all"); all != (domain.RegionFlags{}) {
		t.Errorf("run label picked up flags: %+v", all)
	}
}

func TestNonChartCompletionStillRecordsFlag(t *testing.T) {
	s, m, r := testSequencer()

	items := []Item{&fakeItem{id: "predictions", kind: KindPredictions, size: 1, run: succeed}}
	if _, err := s.Run(context.Background(), "ak", items, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	flags, _ := r.GetFlags("ak")
	if !flags.HasPredictions {
		t.Errorf("flags = %+v, want has_predictions", flags)
	}
	if m.calls != 0 {
		t.Errorf("manifest generated %d times, want 0 (no chart completed)", m.calls)
	}
}

func TestCancelledItemReportsNoFurtherProgress(t *testing.T) {
	s, _, _ := testSequencer()

	ctx, cancel := context.WithCancel(context.Background())

	var afterCancel int
	items := []Item{
		&fakeItem{id: "a", kind: KindPackage, size: 1, run: func(ctx context.Context, report ReportFunc) error {
			report(domain.ItemDownloading, 10, "")
			cancel()
			// In-flight work may still try to report; it must be swallowed.
			report(domain.ItemDownloading, 20, "late")
			return context.Canceled
		}},
	}

	_, err := s.Run(ctx, "ak", items, func(st domain.ItemStatus) {
		if st.Message == "late" {
			afterCancel++
		}
	}, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if afterCancel != 0 {
		t.Error("progress reported after cancellation")
	}
}
