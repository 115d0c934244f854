package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"price-scout/src/helpers"
	"price-scout/src/models"
)

// -----------------------------------------------------------------------------

// parseVendors reads a comma separated vendor list. Empty input yields def.
func parseVendors(raw []string, def []models.Vendor) ([]models.Vendor, error) {
	var out []models.Vendor
	for _, item := range raw {
		for _, name := range strings.Split(item, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			v, err := models.ParseVendor(name)
			if err != nil {
				return nil, helpers.NewValidationError("%v", err)
			}
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def, nil
	}
	models.SortVendors(out)
	return out, nil
}

// -----------------------------------------------------------------------------

func safeBool(raw string) bool {
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}

// -----------------------------------------------------------------------------

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		vErr   *helpers.ValidationError
		cfgErr *helpers.ConfigurationError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, helpers.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
