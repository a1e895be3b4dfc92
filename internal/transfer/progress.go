package transfer

import (
	"time"

	"github.com/tidemark/chartpack/internal/domain"
)

// attemptTracker computes percent/speed/ETA for one download attempt. Speed
// is measured against bytes moved since this attempt began, not since the
// ledger record was first created, so a resumed transfer reports its real
// throughput instead of an inflated average.
type attemptTracker struct {
	start      time.Time
	startBytes int64
	total      int64
}

func newAttemptTracker(startBytes, total int64) *attemptTracker {
	return &attemptTracker{
		start:      time.Now(),
		startBytes: startBytes,
		total:      total,
	}
}

func (t *attemptTracker) snapshot(bytes int64) domain.TransferProgress {
	p := domain.TransferProgress{
		BytesDownloaded: bytes,
		TotalBytes:      t.total,
	}
	if t.total > 0 {
		p.Percent = float64(bytes) / float64(t.total) * 100
	}

	elapsed := time.Since(t.start).Seconds()
	if elapsed > 0 {
		p.SpeedBps = float64(bytes-t.startBytes) / elapsed
	}
	if p.SpeedBps > 0 && t.total > bytes {
		p.ETASeconds = float64(t.total-bytes) / p.SpeedBps
	}
	return p
}
