package interfaces

import (
	"context"

	"price-scout/src/models"
)

// -----------------------------------------------------------------------------
// IExtractor looks up a part on one vendor.
// -----------------------------------------------------------------------------

type IExtractor interface {

	// Vendor returns the retailer this extractor queries.
	Vendor() models.Vendor

	// -----------------------------------------------------------------------------

	// Search returns the vendor's best listing for mpn. A missing listing is
	// reported as helpers.ErrNotFound (or a nil candidate). Implementations must
	// return promptly once ctx is done.
	Search(ctx context.Context, mpn string) (*models.MCandidate, error)
}
