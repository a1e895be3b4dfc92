package domain

import "errors"

// ErrRegionNotFound indicates the catalog has no document for the region id.
var ErrRegionNotFound = errors.New("region not found")

// ErrRemoteUnavailable indicates the catalog or object storage backend could
// not be reached. Surfaced to the caller as-is; retry policy lives there.
var ErrRemoteUnavailable = errors.New("remote backend unavailable")

// ErrTransferFailed indicates a download or extraction error for one package.
// Recorded per item; a run continues past it.
var ErrTransferFailed = errors.New("transfer failed")

// ErrFilesystem indicates a local disk failure (full, permissions). Fatal to
// the current item and surfaced.
var ErrFilesystem = errors.New("filesystem error")

// ErrPartialExtraction indicates the archive extracted but the expected
// package file was not among its entries. Logged, non-fatal.
var ErrPartialExtraction = errors.New("expected file missing after extraction")

// ErrStalled indicates a download made no progress for longer than the stall
// window. Transient; the retained checkpoint stays eligible for resume.
var ErrStalled = errors.New("download stalled")
