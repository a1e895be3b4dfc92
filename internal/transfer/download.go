package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidemark/chartpack/internal/domain"
)

const copyBufferSize = 128 * 1024

// download streams the URL into partPath, resuming from however many bytes
// the file already holds. The file size on disk, not the ledger, is the
// source of truth for the resume offset; the ledger checkpoint follows it.
func (e *Engine) download(ctx context.Context, fetchURL, partPath string, rec *domain.TransferRecord, onProgress domain.ProgressFunc) error {
	var offset int64
	if fi, err := os.Stat(partPath); err == nil {
		offset = fi.Size()
	}

	// The request runs under its own cancellable context so the stall
	// watchdog can abort a hung body read.
	reqCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}

	resp, err := e.cfg.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flags |= os.O_APPEND
	case http.StatusOK:
		// Server ignored the Range header; the conservative fallback is to
		// restart the whole package.
		flags |= os.O_TRUNC
		offset = 0
	default:
		return fmt.Errorf("%w: unexpected status %d", domain.ErrTransferFailed, resp.StatusCode)
	}

	total := totalSize(resp, offset)
	if total == 0 {
		total = rec.TotalBytes
	}
	rec.TotalBytes = total

	out, err := os.OpenFile(partPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}
	defer out.Close()

	tracker := newAttemptTracker(offset, total)

	// Stall watchdog: no forward progress within the window cancels the
	// attempt with a transient error, leaving the checkpoint resumable.
	var lastActivity atomic.Int64
	lastActivity.Store(time.Now().UnixNano())
	var stalled atomic.Bool

	go func() {
		ticker := time.NewTicker(e.cfg.StallTimeout / 4)
		defer ticker.Stop()
		for {
			select {
			case <-reqCtx.Done():
				return
			case <-ticker.C:
				idle := time.Since(time.Unix(0, lastActivity.Load()))
				if idle > e.cfg.StallTimeout {
					stalled.Store(true)
					cancelRead()
					return
				}
			}
		}
	}()

	buf := make([]byte, copyBufferSize)
	bytes := offset
	lastCheckpoint := time.Now()

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				rec.BytesDownloaded = bytes
				_ = e.cfg.Ledger.SaveCheckpoint(rec.RegionID, rec.PackageID, bytes, rec.TotalBytes)
				return fmt.Errorf("%w: %v", domain.ErrFilesystem, werr)
			}
			bytes += int64(n)
			lastActivity.Store(time.Now().UnixNano())

			rec.BytesDownloaded = bytes
			if time.Since(lastCheckpoint) >= e.cfg.CheckpointInterval {
				_ = e.cfg.Ledger.SaveCheckpoint(rec.RegionID, rec.PackageID, bytes, rec.TotalBytes)
				lastCheckpoint = time.Now()
			}

			if onProgress != nil {
				onProgress(tracker.snapshot(bytes))
			}
		}

		if readErr == nil {
			continue
		}

		// Persist the checkpoint unconditionally. The write touches only the
		// byte counters, so the state a concurrent PauseAll set is kept, and
		// after a CancelAll the row is gone and the update is a no-op. Bytes
		// received since the last throttled tick survive a pause this way.
		rec.BytesDownloaded = bytes
		_ = e.cfg.Ledger.SaveCheckpoint(rec.RegionID, rec.PackageID, bytes, rec.TotalBytes)

		if readErr == io.EOF {
			if total > 0 && bytes < total {
				return fmt.Errorf("%w: short body: %d of %d bytes", domain.ErrTransferFailed, bytes, total)
			}
			if onProgress != nil {
				onProgress(tracker.snapshot(bytes))
			}
			return nil
		}
		if stalled.Load() {
			return fmt.Errorf("%w after %d bytes", domain.ErrStalled, bytes)
		}
		if ctx.Err() != nil || errors.Is(readErr, context.Canceled) {
			return context.Canceled
		}
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, readErr)
	}
}

// totalSize works out the full artifact size from the response headers.
func totalSize(resp *http.Response, offset int64) int64 {
	if resp.StatusCode == http.StatusPartialContent {
		// Content-Range: bytes <start>-<end>/<total>
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			if idx := strings.LastIndex(cr, "/"); idx >= 0 {
				if total, err := strconv.ParseInt(cr[idx+1:], 10, 64); err == nil {
					return total
				}
			}
		}
		if resp.ContentLength > 0 {
			return offset + resp.ContentLength
		}
		return 0
	}
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	return 0
}
