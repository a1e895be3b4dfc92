// Package fetchers holds the non-package fetch routines the sequencer mixes
// into a region run: tide/current predictions, the buoy catalog, and marine
// zone boundaries. They live outside the transfer engine but report through
// the same (message, percent) progress contract.
package fetchers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tidemark/chartpack/internal/domain"
	"github.com/tidemark/chartpack/internal/infra/logger"
	"github.com/tidemark/chartpack/internal/regions"
)

type Client struct {
	PredictionsURL string
	BuoysURL       string
	ZonesURL       string
	AuxDir         string
	HTTP           *http.Client
	Logger         *logger.Logger
}

func New(predictionsURL, buoysURL, zonesURL, auxDir string, log *logger.Logger) *Client {
	return &Client{
		PredictionsURL: predictionsURL,
		BuoysURL:       buoysURL,
		ZonesURL:       zonesURL,
		AuxDir:         auxDir,
		HTTP:           http.DefaultClient,
		Logger:         log,
	}
}

// FetchPredictions pulls the region's tide/current prediction database into
// the auxiliary directory, outside the shared package directory.
func (c *Client) FetchPredictions(ctx context.Context, regionID string, onProgress domain.FetchProgressFunc) error {
	cfg, ok := regions.Get(regionID)
	if !ok {
		return fmt.Errorf("%w: unknown region %s", domain.ErrTransferFailed, regionID)
	}
	url := c.PredictionsURL + "/" + regionID + "/predictions.db"
	return c.fetch(ctx, url, cfg.PredictionDB, "tide predictions", onProgress)
}

// FetchBuoys pulls the region's buoy catalog.
func (c *Client) FetchBuoys(ctx context.Context, regionID string, onProgress domain.FetchProgressFunc) error {
	url := c.BuoysURL + "/" + regionID + "/buoys.json"
	return c.fetch(ctx, url, regions.Prefix(regionID)+"_buoys.json", "buoy catalog", onProgress)
}

// FetchZones pulls the region's marine zone boundaries.
func (c *Client) FetchZones(ctx context.Context, regionID string, onProgress domain.FetchProgressFunc) error {
	url := c.ZonesURL + "/" + regionID + "/zones.json"
	return c.fetch(ctx, url, regions.Prefix(regionID)+"_zones.json", "marine zones", onProgress)
}

func (c *Client) fetch(ctx context.Context, url, destName, label string, onProgress domain.FetchProgressFunc) error {
	if err := os.MkdirAll(c.AuxDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}

	if onProgress != nil {
		onProgress("fetching "+label, 0)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", domain.ErrTransferFailed, label, resp.StatusCode)
	}

	destPath := filepath.Join(c.AuxDir, destName)
	tmpPath := destPath + ".part"

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}

	total := resp.ContentLength
	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(tmpPath)
				return fmt.Errorf("%w: %v", domain.ErrFilesystem, werr)
			}
			written += int64(n)
			if onProgress != nil && total > 0 {
				onProgress("fetching "+label, float64(written)/float64(total)*100)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(tmpPath)
			if ctx.Err() != nil {
				return context.Canceled
			}
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, readErr)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
	}

	if onProgress != nil {
		onProgress(label+" ready", 100)
	}
	c.Logger.Debug("fetched %s for %s (%d bytes)", label, filepath.Base(destPath), written)
	return nil
}
