package interfaces

import (
	"context"
	"time"

	"price-scout/src/models"
)

// -----------------------------------------------------------------------------
// IFetcher queries several vendors for one part under a deadline.
// -----------------------------------------------------------------------------

type IFetcher interface {

	// FetchAll returns exactly one observation per requested vendor. The error
	// is reserved for invalid arguments.
	FetchAll(ctx context.Context, mpn string, vendors []models.Vendor, deadline time.Duration) ([]models.MObservation, error)

	// -----------------------------------------------------------------------------

	// Vendors lists the registered vendors in priority order.
	Vendors() []models.Vendor
}
