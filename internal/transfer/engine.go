// Package transfer performs one resumable download + extraction + placement
// for a single package. It is the unit of retryable work: every attempt
// checkpoints into the ledger so a killed process can pick up mid-file.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/infra/logger"
	"github.com/tidemark/chartpack/internal/naming"
)

// Ledger is the slice of the persistent ledger the engine needs. SaveRecord
// performs state transitions; SaveCheckpoint only advances the byte counters
// and must leave the state column untouched.
type Ledger interface {
	SaveRecord(rec *domain.TransferRecord) error
	SaveCheckpoint(regionID, packageID string, bytesDownloaded, totalBytes int64) error
	GetRecord(regionID, packageID string) (*domain.TransferRecord, error)
	DeleteRecord(regionID, packageID string) error
	RegisterCancel(regionID, packageID string, cancel context.CancelFunc)
	UnregisterCancel(regionID, packageID string)
}

type Config struct {
	PackDir  string
	TmpDir   string
	Resolver URLResolver
	Ledger   Ledger
	Logger   *logger.Logger

	// Client defaults to http.DefaultClient.
	Client *http.Client

	// StallTimeout aborts a download making no progress for this long with a
	// transient error. Default 90s.
	StallTimeout time.Duration

	// CheckpointInterval throttles ledger checkpoint writes. Default 500ms.
	CheckpointInterval time.Duration
}

type Engine struct {
	cfg        Config
	extractors []Extractor
}

func NewEngine(cfg Config) *Engine {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.StallTimeout == 0 {
		cfg.StallTimeout = 90 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 500 * time.Millisecond
	}
	return &Engine{cfg: cfg, extractors: defaultExtractors()}
}

// Transfer moves one package from cloud storage into the package directory.
// Steps: resolve a time-limited URL, stream to a temp file (resuming from
// any ledger checkpoint), extract, finalize. On failure the ledger record is
// left in the failed state with its checkpoint intact so a later attempt can
// resume instead of starting over.
func (e *Engine) Transfer(ctx context.Context, pkg domain.DownloadPackage, regionID string, onProgress domain.ProgressFunc) error {
	destName := naming.ResolveLocalName(pkg, regionID)
	destPath := filepath.Join(e.cfg.PackDir, destName)

	if err := os.MkdirAll(e.cfg.PackDir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create package directory: %v", domain.ErrFilesystem, err)
	}
	if err := os.MkdirAll(e.cfg.TmpDir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create temp directory: %v", domain.ErrFilesystem, err)
	}

	rec, err := e.cfg.Ledger.GetRecord(regionID, pkg.ID)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	if rec == nil {
		rec = &domain.TransferRecord{
			PackageID:  pkg.ID,
			RegionID:   regionID,
			DestPath:   destPath,
			TotalBytes: pkg.SizeBytes,
		}
	}
	rec.State = domain.TransferActive
	if err := e.cfg.Ledger.SaveRecord(rec); err != nil {
		return fmt.Errorf("failed to save ledger record: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cfg.Ledger.RegisterCancel(regionID, pkg.ID, cancel)
	defer e.cfg.Ledger.UnregisterCancel(regionID, pkg.ID)

	// Resolve
	fetchURL, err := e.cfg.Resolver.ResolveURL(ctx, pkg.StoragePath)
	if err != nil {
		e.markFailed(rec, err)
		return fmt.Errorf("%w: resolve %s: %v", domain.ErrRemoteUnavailable, pkg.ID, err)
	}

	// Temp names carry the region so two regions' packages never collide
	// in the shared temp directory.
	archivePath := filepath.Join(e.cfg.TmpDir, regionID+"__"+path.Base(pkg.StoragePath))
	partPath := archivePath + ".part"

	// Download
	if err := e.download(ctx, fetchURL, partPath, rec, onProgress); err != nil {
		// The .part file stays put: its bytes are the resume checkpoint.
		e.markFailed(rec, err)
		return err
	}

	if err := os.Rename(partPath, archivePath); err != nil {
		e.markFailed(rec, err)
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}
	// The compressed artifact is removed no matter how extraction goes;
	// leaving it behind orphans temp space on every failure.
	defer os.Remove(archivePath)

	// Extract
	if err := e.place(ctx, archivePath, destPath); err != nil {
		e.markFailed(rec, err)
		return err
	}

	// An archive whose entries didn't include the expected name is not a
	// hard failure: the installed-check will report the package missing and
	// a later run can repair it.
	if _, statErr := os.Stat(destPath); statErr != nil {
		e.cfg.Logger.Warn("package %s/%s: %v (wanted %s)", regionID, pkg.ID, domain.ErrPartialExtraction, destName)
	}

	// Finalize
	if err := e.cfg.Ledger.DeleteRecord(regionID, pkg.ID); err != nil {
		return fmt.Errorf("failed to clear ledger record: %w", err)
	}

	return nil
}

// place extracts an archive into the package directory, or moves the file
// straight in when it isn't a recognized container.
func (e *Engine) place(ctx context.Context, archivePath, destPath string) error {
	for _, ex := range e.extractors {
		if !ex.CanExtract(archivePath) {
			continue
		}
		e.cfg.Logger.Debug("extracting %s with %s", filepath.Base(archivePath), ex.Name())
		if _, err := ex.Extract(ctx, archivePath, e.cfg.PackDir, filepath.Base(destPath)); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("%w: extraction: %v", domain.ErrTransferFailed, err)
		}
		return nil
	}

	// Not an archive; the artifact is the package itself.
	if err := os.Rename(archivePath, destPath); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}
	return nil
}

// markFailed leaves the record resumable. A cancelled context means pause or
// cancel already adjusted the record through the ledger, so it stays as-is.
func (e *Engine) markFailed(rec *domain.TransferRecord, cause error) {
	if errors.Is(cause, context.Canceled) {
		return
	}
	rec.State = domain.TransferFailed
	if err := e.cfg.Ledger.SaveRecord(rec); err != nil {
		e.cfg.Logger.Error("failed to persist failed state for %s/%s: %v", rec.RegionID, rec.PackageID, err)
	}
}
