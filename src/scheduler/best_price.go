package scheduler

import "price-scout/src/models"

// SelectBest returns the cheapest successful observation. Ties go to the
// earliest fetch, then to the higher priority vendor. Nil when nothing
// succeeded.
func SelectBest(observations []models.MObservation) *models.MObservation {
	var best *models.MObservation
	for i := range observations {
		o := &observations[i]
		if !o.Succeeded() {
			continue
		}
		if best == nil || better(o, best) {
			best = o
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// -----------------------------------------------------------------------------

func better(a, b *models.MObservation) bool {
	if c := a.Price.Cmp(*b.Price); c != 0 {
		return c < 0
	}
	if !a.FetchedAt.Equal(b.FetchedAt) {
		return a.FetchedAt.Before(b.FetchedAt)
	}
	return a.Vendor.Priority() < b.Vendor.Priority()
}
