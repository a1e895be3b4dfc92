package domain

import "time"

type TransferState string

const (
	TransferQueued TransferState = "queued"
	TransferActive TransferState = "active"
	TransferPaused TransferState = "paused"
	TransferFailed TransferState = "failed"
	TransferDone   TransferState = "done"
)

// TransferRecord is the durable ledger entry for one in-flight package
// transfer. It survives process termination; the bytes checkpoint lets a
// later attempt resume with a ranged request instead of starting over.
type TransferRecord struct {
	PackageID       string        `json:"package_id"`
	RegionID        string        `json:"region_id"`
	DestPath        string        `json:"dest_path"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	TotalBytes      int64         `json:"total_bytes"`
	State           TransferState `json:"state"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Resumable reports whether the record represents interrupted work a caller
// may offer to resume.
func (t *TransferRecord) Resumable() bool {
	switch t.State {
	case TransferPaused, TransferFailed, TransferQueued, TransferActive:
		// Active records found at startup are leftovers from a killed
		// process, so they count as resumable too.
		return true
	}
	return false
}
