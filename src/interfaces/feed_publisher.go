package interfaces

import "price-scout/src/models"

// -----------------------------------------------------------------------------
// IFeedPublisher pushes batch updates to live subscribers.
// -----------------------------------------------------------------------------

type IFeedPublisher interface {
	Publish(event models.MFeedEvent)
}
