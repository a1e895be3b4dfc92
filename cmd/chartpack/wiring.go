package main

import (
	"context"
	"fmt"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/tidemark/chartpack/internal/app"
	"github.com/tidemark/chartpack/internal/catalog"
	"github.com/tidemark/chartpack/internal/fetchers"
	"github.com/tidemark/chartpack/internal/infra/config"
	"github.com/tidemark/chartpack/internal/infra/logger"
	"github.com/tidemark/chartpack/internal/ledger"
	"github.com/tidemark/chartpack/internal/manifest"
	"github.com/tidemark/chartpack/internal/packs"
	"github.com/tidemark/chartpack/internal/sequencer"
	"github.com/tidemark/chartpack/internal/transfer"
)

// buildApp wires the full application from config. The returned cleanup
// closes the ledger and any bucket/database handles.
func buildApp(ctx context.Context) (*app.Context, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, nil, fmt.Errorf("logger error: %w", err)
	}

	a := app.NewContext(cfg, log)

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var bucket *blob.Bucket
	if cfg.Storage.BucketURL != "" {
		bucket, err = blob.OpenBucket(ctx, cfg.Storage.BucketURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to open storage bucket: %w", err)
		}
		cleanups = append(cleanups, func() { bucket.Close() })
	}

	var resolver transfer.URLResolver
	if bucket != nil && cfg.Storage.BaseURL == "" {
		resolver = &transfer.BucketResolver{
			Bucket: bucket,
			Expiry: time.Duration(cfg.Storage.SignedURLExpiryMinutes) * time.Minute,
		}
	} else {
		resolver = &transfer.StaticResolver{BaseURL: cfg.Storage.BaseURL}
	}

	switch cfg.Catalog.Backend {
	case "postgres":
		pg, err := catalog.NewPGCatalog(ctx, cfg.Catalog.PostgresURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, pg.Close)
		a.Catalog = pg
	default:
		if bucket == nil {
			cleanup()
			return nil, nil, fmt.Errorf("catalog backend 'bucket' requires storage.bucket_url")
		}
		a.Catalog = catalog.NewBucketCatalog(bucket)
	}

	led, err := ledger.Open(cfg.Packs.LedgerPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	cleanups = append(cleanups, func() { led.Close() })
	a.Ledger = led
	a.Registry = led

	a.Engine = transfer.NewEngine(transfer.Config{
		PackDir:      cfg.Packs.Dir,
		TmpDir:       cfg.Packs.TmpDir,
		Resolver:     resolver,
		Ledger:       led,
		Logger:       log,
		StallTimeout: time.Duration(cfg.Packs.StallTimeoutSeconds) * time.Second,
	})

	a.Manifest = &manifest.Generator{
		PackDir:      cfg.Packs.Dir,
		ManifestPath: cfg.Packs.ManifestPath,
		Logger:       log,
	}

	a.Fetchers = fetchers.New(
		cfg.Fetchers.PredictionsURL,
		cfg.Fetchers.BuoysURL,
		cfg.Fetchers.ZonesURL,
		cfg.Packs.AuxDir,
		log,
	)

	a.Remover = &packs.Remover{
		PackDir:  cfg.Packs.Dir,
		AuxDir:   cfg.Packs.AuxDir,
		Manifest: a.Manifest,
		Registry: led,
		Logger:   log,
	}

	a.Sequencer = &sequencer.Sequencer{
		Manifest: a.Manifest,
		Registry: led,
		Logger:   log,
	}

	return a, cleanup, nil
}
