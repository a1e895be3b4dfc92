// Package catalog fetches a region's available download packages from the
// remote document store. Pure read: no local state, no retries — retry
// policy belongs to the caller.
package catalog

import (
	"context"

	"github.com/tidemark/chartpack/internal/domain"
)

// Reader is the catalog contract. Implementations must be safe to call
// repeatedly and must not cache beyond the current call.
type Reader interface {
	GetRegion(ctx context.Context, regionID string) (*domain.Region, error)
}
