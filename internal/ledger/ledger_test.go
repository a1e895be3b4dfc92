package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tidemark/chartpack/internal/domain"
)

func openTestLedger(t *testing.T) *PersistentLedger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSaveAndGetRecord(t *testing.T) {
	l := openTestLedger(t)

	rec := &domain.TransferRecord{
		PackageID:       "chart-US4",
		RegionID:        "ak",
		DestPath:        "/packs/ak_US4.mbtiles",
		BytesDownloaded: 1024,
		TotalBytes:      50 << 20,
		State:           domain.TransferActive,
	}
	if err := l.SaveRecord(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := l.GetRecord("ak", "chart-US4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("record not found after save")
	}
	if got.BytesDownloaded != 1024 || got.State != domain.TransferActive {
		t.Errorf("got %+v, want checkpoint 1024 active", got)
	}

	// Upsert with a newer checkpoint
	rec.BytesDownloaded = 4096
	if err := l.SaveRecord(rec); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, _ = l.GetRecord("ak", "chart-US4")
	if got.BytesDownloaded != 4096 {
		t.Errorf("checkpoint = %d, want 4096", got.BytesDownloaded)
	}
}

func TestGetRecordMissing(t *testing.T) {
	l := openTestLedger(t)

	got, err := l.GetRecord("ak", "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record, got %+v", got)
	}
}

func TestGetIncompleteScoping(t *testing.T) {
	l := openTestLedger(t)

	recs := []*domain.TransferRecord{
		{PackageID: "chart-US1", RegionID: "ak", State: domain.TransferActive},
		{PackageID: "chart-US4", RegionID: "ak", State: domain.TransferPaused},
		{PackageID: "chart-US2", RegionID: "wc", State: domain.TransferFailed},
		{PackageID: "chart-US3", RegionID: "wc", State: domain.TransferDone},
	}
	for _, r := range recs {
		if err := l.SaveRecord(r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	all, err := l.GetIncomplete("")
	if err != nil {
		t.Fatalf("get incomplete: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("global incomplete = %d, want 3", len(all))
	}

	ak, err := l.GetIncomplete("ak")
	if err != nil {
		t.Fatalf("get incomplete ak: %v", err)
	}
	if len(ak) != 2 {
		t.Errorf("ak incomplete = %d, want 2", len(ak))
	}
}

func TestPauseAllRetainsCheckpointAndReleasesHandle(t *testing.T) {
	l := openTestLedger(t)

	rec := &domain.TransferRecord{
		PackageID:       "chart-US4",
		RegionID:        "ak",
		BytesDownloaded: 9000,
		TotalBytes:      10000,
		State:           domain.TransferActive,
	}
	if err := l.SaveRecord(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, cancel := context.WithCancel(context.Background())
	released := make(chan struct{})
	l.RegisterCancel("ak", "chart-US4", func() {
		cancel()
		close(released)
	})

	if err := l.PauseAll("ak"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	select {
	case <-released:
	default:
		t.Error("pause did not release the transport handle")
	}

	got, _ := l.GetRecord("ak", "chart-US4")
	if got.State != domain.TransferPaused {
		t.Errorf("state = %s, want paused", got.State)
	}
	if got.BytesDownloaded != 9000 {
		t.Errorf("checkpoint lost on pause: %d", got.BytesDownloaded)
	}
}

func TestSaveCheckpointPreservesPausedState(t *testing.T) {
	l := openTestLedger(t)

	rec := &domain.TransferRecord{
		PackageID:       "chart-US4",
		RegionID:        "ak",
		BytesDownloaded: 1000,
		TotalBytes:      10000,
		State:           domain.TransferActive,
	}
	if err := l.SaveRecord(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := l.PauseAll("ak"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// A checkpoint landing after the pause must update the bytes without
	// flipping the record back to active.
	if err := l.SaveCheckpoint("ak", "chart-US4", 2500, 10000); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	got, _ := l.GetRecord("ak", "chart-US4")
	if got.State != domain.TransferPaused {
		t.Errorf("state = %s, want paused", got.State)
	}
	if got.BytesDownloaded != 2500 {
		t.Errorf("checkpoint = %d, want 2500", got.BytesDownloaded)
	}
}

func TestSaveCheckpointAfterCancelIsNoOp(t *testing.T) {
	l := openTestLedger(t)

	_ = l.SaveRecord(&domain.TransferRecord{PackageID: "p1", RegionID: "ak", State: domain.TransferActive})
	if err := l.CancelAll("ak"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Cancelled work is gone; a straggling checkpoint must not bring it back.
	if err := l.SaveCheckpoint("ak", "p1", 500, 1000); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if rec, _ := l.GetRecord("ak", "p1"); rec != nil {
		t.Errorf("checkpoint resurrected a cancelled record: %+v", rec)
	}
}

func TestPauseAllScopedToRegion(t *testing.T) {
	l := openTestLedger(t)

	_ = l.SaveRecord(&domain.TransferRecord{PackageID: "p1", RegionID: "ak", State: domain.TransferActive})
	_ = l.SaveRecord(&domain.TransferRecord{PackageID: "p2", RegionID: "wc", State: domain.TransferActive})

	if err := l.PauseAll("ak"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	ak, _ := l.GetRecord("ak", "p1")
	wc, _ := l.GetRecord("wc", "p2")
	if ak.State != domain.TransferPaused {
		t.Errorf("ak state = %s, want paused", ak.State)
	}
	if wc.State != domain.TransferActive {
		t.Errorf("wc state = %s, want active (untouched)", wc.State)
	}
}

func TestResumeAllRequeues(t *testing.T) {
	l := openTestLedger(t)

	_ = l.SaveRecord(&domain.TransferRecord{PackageID: "p1", RegionID: "ak", BytesDownloaded: 100, State: domain.TransferPaused})
	_ = l.SaveRecord(&domain.TransferRecord{PackageID: "p2", RegionID: "ak", State: domain.TransferFailed})

	recs, err := l.ResumeAll("ak")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("resumed %d records, want 2", len(recs))
	}
	for _, r := range recs {
		if r.State != domain.TransferQueued {
			t.Errorf("%s state = %s, want queued", r.PackageID, r.State)
		}
	}
	// Checkpoints survive the requeue
	p1, _ := l.GetRecord("ak", "p1")
	if p1.BytesDownloaded != 100 {
		t.Errorf("checkpoint = %d, want 100", p1.BytesDownloaded)
	}
}

func TestCancelAllDeletesRecords(t *testing.T) {
	l := openTestLedger(t)

	_ = l.SaveRecord(&domain.TransferRecord{PackageID: "p1", RegionID: "ak", State: domain.TransferActive})
	_ = l.SaveRecord(&domain.TransferRecord{PackageID: "p2", RegionID: "wc", State: domain.TransferActive})

	if err := l.CancelAll("ak"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if rec, _ := l.GetRecord("ak", "p1"); rec != nil {
		t.Error("ak record should be deleted on cancel")
	}
	if rec, _ := l.GetRecord("wc", "p2"); rec == nil {
		t.Error("wc record should survive a scoped cancel")
	}
}

func TestRegionFlags(t *testing.T) {
	l := openTestLedger(t)

	flags, err := l.GetFlags("ak")
	if err != nil {
		t.Fatalf("get flags: %v", err)
	}
	if flags != (domain.RegionFlags{}) {
		t.Errorf("unset flags = %+v, want zero", flags)
	}

	want := domain.RegionFlags{HasCharts: true, HasPredictions: true}
	if err := l.SetFlags("ak", want); err != nil {
		t.Fatalf("set flags: %v", err)
	}
	flags, _ = l.GetFlags("ak")
	if flags != want {
		t.Errorf("flags = %+v, want %+v", flags, want)
	}

	if err := l.ClearFlags("ak"); err != nil {
		t.Fatalf("clear flags: %v", err)
	}
	flags, _ = l.GetFlags("ak")
	if flags != (domain.RegionFlags{}) {
		t.Errorf("cleared flags = %+v, want zero", flags)
	}
}

func TestDurabilityAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = l.SaveRecord(&domain.TransferRecord{
		PackageID: "chart-US4", RegionID: "ak",
		BytesDownloaded: 5555, TotalBytes: 9999, State: domain.TransferActive,
	})
	l.Close()

	// Simulates the process being killed and restarted
	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	recs, err := l2.GetIncomplete("")
	if err != nil {
		t.Fatalf("get incomplete: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("incomplete after reopen = %d, want 1", len(recs))
	}
	if recs[0].BytesDownloaded != 5555 || !recs[0].Resumable() {
		t.Errorf("record after reopen = %+v", recs[0])
	}
}
