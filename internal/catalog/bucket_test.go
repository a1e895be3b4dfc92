package catalog

import (
	"context"
	"errors"
	"testing"

	"gocloud.dev/blob/memblob"

	"github.com/tidemark/chartpack/internal/domain"
)

const akDoc = `{
  "id": "ak",
  "name": "Alaska",
  "code": "AK",
  "packages": [
    {"id": "chart-US1", "type": "chart-scale", "scale": "US1", "size_bytes": 5242880, "storage_path": "ak/chart_US1.mbtiles.zip", "required": true},
    {"id": "chart-US4", "type": "chart-scale", "scale": "US4", "size_bytes": 52428800, "storage_path": "ak/chart_US4.mbtiles.zip", "required": true},
    {"id": "satellite-z0-5", "type": "satellite", "size_bytes": 31457280, "storage_path": "ak/satellite_z0-5.mbtiles.zip", "required": false}
  ],
  "metadata": {"station_count": 120, "buoy_count": 40, "zone_count": 12}
}`

func TestBucketCatalogGetRegion(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	ctx := context.Background()
	if err := bucket.WriteAll(ctx, "regions/ak.json", []byte(akDoc), nil); err != nil {
		t.Fatal(err)
	}

	c := NewBucketCatalog(bucket)
	region, err := c.GetRegion(ctx, "ak")
	if err != nil {
		t.Fatalf("get region: %v", err)
	}

	if region.ID != "ak" || region.Name != "Alaska" {
		t.Errorf("region = %+v", region)
	}
	if len(region.Packages) != 3 {
		t.Fatalf("packages = %d, want 3", len(region.Packages))
	}

	required := region.RequiredPackages()
	if len(required) != 2 {
		t.Fatalf("required = %d, want 2", len(required))
	}
	var total int64
	for _, p := range required {
		total += p.SizeBytes
	}
	if total != 55*1024*1024 {
		t.Errorf("required bytes = %d, want 55MB", total)
	}

	if region.Metadata.StationCount != 120 {
		t.Errorf("metadata = %+v", region.Metadata)
	}
}

func TestBucketCatalogNotFound(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	c := NewBucketCatalog(bucket)
	_, err := c.GetRegion(context.Background(), "atlantis")
	if !errors.Is(err, domain.ErrRegionNotFound) {
		t.Errorf("error = %v, want ErrRegionNotFound", err)
	}
}

func TestBucketCatalogBadDocument(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	ctx := context.Background()
	if err := bucket.WriteAll(ctx, "regions/ak.json", []byte("not json"), nil); err != nil {
		t.Fatal(err)
	}

	c := NewBucketCatalog(bucket)
	_, err := c.GetRegion(ctx, "ak")
	if !errors.Is(err, domain.ErrRemoteUnavailable) {
		t.Errorf("error = %v, want ErrRemoteUnavailable", err)
	}
}
