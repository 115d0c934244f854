package analysis

import (
	"sort"

	"price-scout/src/analysis/core"
	"price-scout/src/models"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// SummarizePrices aggregates distinct recorded price points. Each point
// counts once regardless of how often it was polled.
func SummarizePrices(vendor models.Vendor, prices []decimal.Decimal) models.MPriceStats {
	stats := models.MPriceStats{Vendor: vendor, Count: len(prices)}
	if len(prices) == 0 {
		return stats
	}

	stats.Min, stats.Max = core.CalculateMinMax(prices)
	mean, std := core.CalculateMeanStd(prices)
	stats.Avg = mean.Round(2)
	stats.StdDev = std.Round(2)
	return stats
}

// -----------------------------------------------------------------------------

// SummarizeTrend describes how a vendor's price for one part moved over its
// recorded history. Records are sorted oldest first.
func SummarizeTrend(vendor models.Vendor, mpn string, records []models.MPriceRecord) models.MPriceTrend {
	trend := models.MPriceTrend{Vendor: vendor, MPN: mpn, Points: len(records), Records: records}
	if len(records) == 0 {
		return trend
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FirstSeenAt.Before(records[j].FirstSeenAt)
	})

	prices := make([]decimal.Decimal, len(records))
	for i, r := range records {
		prices[i] = r.Price
	}

	first, last := records[0], records[len(records)-1]
	trend.First = first.Price
	trend.Current = last.Price
	trend.Low, trend.High = core.CalculateMinMax(prices)
	trend.ChangePct = core.CalculateChangePercent(last.Price, first.Price)
	trend.Since = first.FirstSeenAt
	trend.LastSeen = last.LastSeenAt
	return trend
}
