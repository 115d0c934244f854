package extractors

import (
	"net/url"
	"regexp"
	"strings"

	"price-scout/src/models"

	"github.com/shopspring/decimal"
)

var priceRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// -----------------------------------------------------------------------------

// ParsePrice reads the first amount in text such as "$1,299.00 inc GST".
// Returns nil when no amount is present.
func ParsePrice(text string) *decimal.Decimal {
	m := priceRe.FindString(text)
	if m == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return nil
	}
	d = d.Round(2)
	return &d
}

// -----------------------------------------------------------------------------

// ParseStock maps availability text onto a stock state.
func ParseStock(text string) models.StockState {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return models.StockUnknown
	case strings.Contains(t, "out of stock"), strings.Contains(t, "sold out"),
		strings.Contains(t, "unavailable"), strings.Contains(t, "discontinued"):
		return models.StockOut
	case strings.Contains(t, "in stock"), strings.Contains(t, "available"), strings.Contains(t, "ready to ship"):
		return models.StockIn
	}
	return models.StockUnknown
}

// -----------------------------------------------------------------------------

// ExpandURL substitutes the query-escaped part number for {mpn}.
func ExpandURL(pattern, mpn string) string {
	return strings.ReplaceAll(pattern, "{mpn}", url.QueryEscape(mpn))
}
