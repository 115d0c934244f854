package interfaces

import (
	"context"
	"time"

	"price-scout/src/models"
)

// -----------------------------------------------------------------------------
// IPriceRecorder accepts successful observations into price history.
// -----------------------------------------------------------------------------

type IPriceRecorder interface {
	Record(ctx context.Context, obs models.MObservation) (models.MRecordResult, error)
}

// -----------------------------------------------------------------------------
// IPriceStore defines the contract for price history storage.
// -----------------------------------------------------------------------------

type IPriceStore interface {
	IPriceRecorder

	// -----------------------------------------------------------------------------

	// Initialize opens the connection and creates missing tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// History returns records oldest first. Empty vendor or mpn means any.
	History(ctx context.Context, vendor models.Vendor, mpn string) ([]models.MPriceRecord, error)

	// -----------------------------------------------------------------------------

	// Latest returns the most recently seen record per vendor for mpn.
	Latest(ctx context.Context, mpn string) (map[models.Vendor]models.MPriceRecord, error)

	// -----------------------------------------------------------------------------

	// Stats summarises recorded price points. Empty vendor means all vendors.
	Stats(ctx context.Context, vendor models.Vendor) (models.MPriceStats, error)

	// -----------------------------------------------------------------------------

	// MPNs lists every part with at least one record.
	MPNs(ctx context.Context) ([]string, error)

	// -----------------------------------------------------------------------------

	// Trends groups the history of mpn by vendor.
	Trends(ctx context.Context, mpn string) (map[models.Vendor][]models.MPriceRecord, error)

	// -----------------------------------------------------------------------------

	// Prune deletes records last seen before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
