package domain

// ItemState tracks one item inside a sequencer run. In-memory only; the
// slice of statuses is discarded when the run ends.
type ItemState string

const (
	ItemPending     ItemState = "pending"
	ItemDownloading ItemState = "downloading"
	ItemExtracting  ItemState = "extracting"
	ItemComplete    ItemState = "complete"
	ItemError       ItemState = "error"
)

// ItemStatus is the per-item progress snapshot delivered to run observers.
type ItemStatus struct {
	ItemID  string    `json:"item_id"`
	State   ItemState `json:"state"`
	Percent float64   `json:"percent"`
	Message string    `json:"message,omitempty"`
}

// TransferProgress is the progress callback contract of the transfer engine.
// Speed and ETA are measured from the start of the current attempt, not from
// when the ledger record was first created.
type TransferProgress struct {
	Percent         float64
	BytesDownloaded int64
	TotalBytes      int64
	SpeedBps        float64
	ETASeconds      float64
}

// ProgressFunc receives TransferProgress ticks. Callbacks may arrive on the
// transport's goroutine; receivers must treat them as async notifications.
type ProgressFunc func(TransferProgress)

// FetchProgressFunc is the (message, percent) contract shared by the
// synthetic non-package fetchers.
type FetchProgressFunc func(message string, percent float64)
