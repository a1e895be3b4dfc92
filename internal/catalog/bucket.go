package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/tidemark/chartpack/internal/domain"
)

// BucketCatalog reads region documents stored as regions/<id>.json in the
// object storage bucket alongside the packs themselves.
type BucketCatalog struct {
	Bucket *blob.Bucket
}

func NewBucketCatalog(bucket *blob.Bucket) *BucketCatalog {
	return &BucketCatalog{Bucket: bucket}
}

func (c *BucketCatalog) GetRegion(ctx context.Context, regionID string) (*domain.Region, error) {
	key := "regions/" + regionID + ".json"

	data, err := c.Bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, regionID)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	var region domain.Region
	if err := json.Unmarshal(data, &region); err != nil {
		return nil, fmt.Errorf("%w: bad region document %s: %v", domain.ErrRemoteUnavailable, key, err)
	}
	if region.ID == "" {
		region.ID = regionID
	}

	return &region, nil
}
