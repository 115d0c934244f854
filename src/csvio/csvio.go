// Package csvio reads batch input files and writes batch result tables.
package csvio

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"price-scout/src/helpers"
	"price-scout/src/models"
)

// MPN column names in lookup order.
var mpnColumns = []string{"mpn", "name"}

// -----------------------------------------------------------------------------

// ReadMPNs reads the part numbers from the mpn column of a CSV file, or from
// name when there is no mpn column. Blank cells are skipped.
func ReadMPNs(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, helpers.NewValidationError("csv is empty")
	}
	if err != nil {
		return nil, helpers.NewValidationError("read csv header: %v", err)
	}

	col := -1
	for _, name := range mpnColumns {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, helpers.NewValidationError("csv must contain an 'mpn' column, got %v", header)
	}

	var mpns []string
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, helpers.NewValidationError("read csv line %d: %v", line, err)
		}
		if col >= len(row) {
			continue
		}
		if mpn := strings.TrimSpace(row[col]); mpn != "" {
			mpns = append(mpns, mpn)
		}
	}
	return mpns, nil
}

// -----------------------------------------------------------------------------

// WriteResults writes one row per batch result with the lowest price and a
// price/url column pair per vendor.
func WriteResults(w io.Writer, results []models.MBatchResult, vendors []models.Vendor) error {
	cw := csv.NewWriter(w)

	header := []string{"mpn", "lowest_price", "lowest_price_vendor", "lowest_price_url"}
	for _, v := range vendors {
		header = append(header, string(v)+"_price", string(v)+"_url")
	}
	header = append(header, "status")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		row := []string{res.MPN, "", "", ""}
		if res.Best != nil {
			row[1] = res.Best.Price.StringFixed(2)
			row[2] = string(res.Best.Vendor)
			row[3] = res.Best.URL
		}

		byVendor := make(map[models.Vendor]models.MObservation, len(res.Observations))
		for _, o := range res.Observations {
			byVendor[o.Vendor] = o
		}
		for _, v := range vendors {
			o, ok := byVendor[v]
			switch {
			case !ok:
				row = append(row, "", "")
			case o.Succeeded():
				row = append(row, o.Price.StringFixed(2), o.URL)
			default:
				row = append(row, string(o.Status), o.URL)
			}
		}

		status := "ok"
		if res.Failed {
			status = "failed"
		}
		row = append(row, status)

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
