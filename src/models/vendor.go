package models

import (
	"fmt"
	"sort"
	"strings"
)

// Vendor identifies a retailer. The set is closed: only names listed in
// KnownVendors are accepted.
type Vendor string

const (
	VendorDigicor          Vendor = "digicor"
	VendorScorptec         Vendor = "scorptec"
	VendorMwave            Vendor = "mwave"
	VendorPCCaseGear       Vendor = "pccasegear"
	VendorJWComputers      Vendor = "jwcomputers"
	VendorUmart            Vendor = "umart"
	VendorEbayAU           Vendor = "ebay_au"
	VendorCentreCom        Vendor = "centrecom"
	VendorComputerAlliance Vendor = "computeralliance"
	VendorCPL              Vendor = "cpl"
)

// KnownVendors is ordered by tie-break priority, highest first.
var KnownVendors = []Vendor{
	VendorDigicor,
	VendorScorptec,
	VendorMwave,
	VendorPCCaseGear,
	VendorJWComputers,
	VendorUmart,
	VendorEbayAU,
	VendorCentreCom,
	VendorComputerAlliance,
	VendorCPL,
}

var vendorPriority = func() map[Vendor]int {
	m := make(map[Vendor]int, len(KnownVendors))
	for i, v := range KnownVendors {
		m[v] = i
	}
	return m
}()

// -----------------------------------------------------------------------------

// ParseVendor accepts a vendor name case-insensitively.
func ParseVendor(name string) (Vendor, error) {
	v := Vendor(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := vendorPriority[v]; !ok {
		return "", fmt.Errorf("unknown vendor %q", name)
	}
	return v, nil
}

// -----------------------------------------------------------------------------

// Priority returns the tie-break rank of the vendor; lower wins.
func (v Vendor) Priority() int {
	if p, ok := vendorPriority[v]; ok {
		return p
	}
	return len(KnownVendors)
}

// -----------------------------------------------------------------------------

func (v Vendor) String() string {
	return string(v)
}

// -----------------------------------------------------------------------------

// SortVendors orders vendors by priority in place.
func SortVendors(vendors []Vendor) {
	sort.SliceStable(vendors, func(i, j int) bool {
		pi, pj := vendors[i].Priority(), vendors[j].Priority()
		if pi != pj {
			return pi < pj
		}
		return vendors[i] < vendors[j]
	})
}
