package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tidemark/chartpack/internal/domain"
)

// PGCatalog queries a Postgres catalog database instead of bucket
// documents. Used by shore-side deployments that publish the catalog
// through the fleet database.
type PGCatalog struct {
	pool *pgxpool.Pool
}

func NewPGCatalog(ctx context.Context, connURL string) (*PGCatalog, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	return &PGCatalog{pool: pool}, nil
}

func (c *PGCatalog) Close() {
	c.pool.Close()
}

func (c *PGCatalog) GetRegion(ctx context.Context, regionID string) (*domain.Region, error) {
	region := &domain.Region{ID: regionID}

	row := c.pool.QueryRow(ctx,
		`SELECT name, code, station_count, buoy_count, zone_count
         FROM regions WHERE id = $1`, regionID)

	err := row.Scan(&region.Name, &region.Code,
		&region.Metadata.StationCount, &region.Metadata.BuoyCount, &region.Metadata.ZoneCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, regionID)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	rows, err := c.pool.Query(ctx,
		`SELECT id, type, scale, size_bytes, storage_path, required
         FROM region_packages WHERE region_id = $1 ORDER BY position`, regionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pkg domain.DownloadPackage
		if err := rows.Scan(&pkg.ID, &pkg.Type, &pkg.Scale, &pkg.SizeBytes, &pkg.StoragePath, &pkg.Required); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
		}
		region.Packages = append(region.Packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	return region, nil
}
