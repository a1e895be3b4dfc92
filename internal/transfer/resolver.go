package transfer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"gocloud.dev/blob"
)

// URLResolver turns a storage path into a fetchable URL. The production
// implementation asks the object store for a time-limited signed URL.
type URLResolver interface {
	ResolveURL(ctx context.Context, storagePath string) (string, error)
}

// BucketResolver issues signed URLs against a gocloud bucket.
type BucketResolver struct {
	Bucket *blob.Bucket
	Expiry time.Duration
}

func (r *BucketResolver) ResolveURL(ctx context.Context, storagePath string) (string, error) {
	expiry := r.Expiry
	if expiry == 0 {
		expiry = 15 * time.Minute
	}
	signed, err := r.Bucket.SignedURL(ctx, storagePath, &blob.SignedURLOptions{Expiry: expiry})
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", storagePath, err)
	}
	return signed, nil
}

// StaticResolver joins storage paths onto a fixed base URL. Used for local
// mirrors and tests, where nothing needs signing.
type StaticResolver struct {
	BaseURL string
}

func (r *StaticResolver) ResolveURL(_ context.Context, storagePath string) (string, error) {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", err
	}
	return u.JoinPath(storagePath).String(), nil
}
